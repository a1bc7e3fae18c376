package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance/metrics"
)

// Recorder builds the immutable attendance record and commits it through the
// event repository's atomic append.
type Recorder struct {
	events  EventRepository
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderLogger attaches a structured logger.
func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = logger }
}

// WithRecorderMetrics attaches module metrics.
func WithRecorderMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

// WithRecorderClock overrides the wall clock, for tests.
func WithRecorderClock(clock func() time.Time) RecorderOption {
	return func(r *Recorder) { r.clock = clock }
}

// NewRecorder constructs a Recorder.
func NewRecorder(events EventRepository, opts ...RecorderOption) (*Recorder, error) {
	if events == nil {
		return nil, fmt.Errorf("event repository is required")
	}
	r := &Recorder{
		events: events,
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record builds and commits the attendance record for an approved scan. The
// within-radius flag is recomputed here from the live geofence rather than
// trusted from the validation step, closing the race window between
// validation and commit. The append is idempotent per student ID: a
// concurrent duplicate surfaces as AppendAlreadyPresent, never as a second
// stored record.
func (r *Recorder) Record(ctx context.Context, event *EventRecord, requester StudentIdentity, token Token, fix *LocationFix) (AttendanceRecord, AppendResult, error) {
	record := AttendanceRecord{
		ID:                   uuid.NewString(),
		StudentID:            requester.StudentID,
		StudentName:          requester.Name,
		Course:               requester.Course,
		YearLevel:            requester.YearLevel,
		Block:                requester.Block,
		Gender:               requester.Gender,
		ScannedAt:            r.clock().UTC(),
		QRIssuedAt:           token.IssuedAt,
		QRExpiresAt:          token.ExpiresAt,
		UsesManualExpiration: token.UsesManualExpiration,
	}

	if fix != nil {
		loc := RecordedLocation{
			Latitude:       fix.Coordinate.Latitude,
			Longitude:      fix.Coordinate.Longitude,
			AccuracyMeters: fix.AccuracyMeters,
		}
		if event.RequiresGeofence() {
			if within, meters, ok := event.Geofence.WithinRadius(fix.Coordinate); ok {
				loc.WithinRadius = within
				loc.DistanceMeters = meters
			}
		}
		record.Location = &loc
	}

	result, err := r.events.AppendAttendeeIfAbsent(ctx, event.ID, record)
	if err != nil {
		r.metrics.IncrementCommit("failed")
		r.logger.ErrorContext(ctx, "attendance commit failed",
			"event_id", event.ID,
			"student_id", requester.StudentID,
			"error", err,
		)
		return AttendanceRecord{}, 0, fmt.Errorf("commit attendance record: %w", err)
	}

	switch result {
	case AppendCommitted:
		r.metrics.IncrementCommit("committed")
		r.logger.InfoContext(ctx, "attendance recorded",
			"event_id", event.ID,
			"student_id", requester.StudentID,
			"location_attached", record.Location != nil,
		)
	case AppendAlreadyPresent:
		r.metrics.IncrementCommit("already_present")
	}
	return record, result, nil
}
