package attendance_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance/store"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/geo"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/platform/sentinel"
)

// brokenRepo refuses every append.
type brokenRepo struct {
	*store.InMemoryEventStore
}

func (r *brokenRepo) AppendAttendeeIfAbsent(context.Context, string, attendance.AttendanceRecord) (attendance.AppendResult, error) {
	return 0, fmt.Errorf("write attendance: %w", sentinel.ErrUnavailable)
}

func testRequester() attendance.StudentIdentity {
	return attendance.StudentIdentity{
		StudentID: studentID,
		Name:      "Janel Cajes",
		Course:    "BSIT",
		YearLevel: "3",
		Block:     "B",
		Gender:    "F",
	}
}

func seededRecorder(t *testing.T, event *attendance.EventRecord) (*attendance.Recorder, *store.InMemoryEventStore) {
	t.Helper()
	repo := store.NewInMemory()
	require.NoError(t, repo.Put(context.Background(), event))
	recorder, err := attendance.NewRecorder(repo,
		attendance.WithRecorderClock(func() time.Time { return scanNow }),
	)
	require.NoError(t, err)
	return recorder, repo
}

func TestRecorderCommit(t *testing.T) {
	event := &attendance.EventRecord{ID: "evt-1", Title: "Assembly", StartTime: scanNow.Add(-time.Hour)}
	recorder, repo := seededRecorder(t, event)
	token := attendance.Token{EventID: "evt-1", IssuedAt: scanNow.Add(-time.Hour), ExpiresAt: scanNow.Add(23 * time.Hour)}

	record, result, err := recorder.Record(context.Background(), event, testRequester(), token, nil)
	require.NoError(t, err)
	assert.Equal(t, attendance.AppendCommitted, result)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, scanNow, record.ScannedAt)
	assert.True(t, record.QRExpiresAt.Equal(token.ExpiresAt))
	assert.Nil(t, record.Location)

	stored, err := repo.Get(context.Background(), "evt-1")
	require.NoError(t, err)
	require.Len(t, stored.Attendees, 1)
}

func TestRecorderIdempotence(t *testing.T) {
	event := &attendance.EventRecord{ID: "evt-1", Title: "Assembly", StartTime: scanNow.Add(-time.Hour)}
	recorder, repo := seededRecorder(t, event)
	token := attendance.Token{EventID: "evt-1", ExpiresAt: scanNow.Add(23 * time.Hour)}

	_, first, err := recorder.Record(context.Background(), event, testRequester(), token, nil)
	require.NoError(t, err)
	assert.Equal(t, attendance.AppendCommitted, first)

	_, second, err := recorder.Record(context.Background(), event, testRequester(), token, nil)
	require.NoError(t, err)
	assert.Equal(t, attendance.AppendAlreadyPresent, second)

	stored, err := repo.Get(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Len(t, stored.Attendees, 1, "duplicate commit must not store a second record")
}

func TestRecorderRecomputesRadius(t *testing.T) {
	// The fence shrank between validation and commit; the stored evidence
	// reflects the fence as it stood at commit time.
	fix := &attendance.LocationFix{
		Coordinate:     geo.Coordinate{Latitude: 10.2449, Longitude: 123.7880}, // ~22m out
		AccuracyMeters: 9,
		CapturedAt:     scanNow,
	}
	event := &attendance.EventRecord{
		ID:        "evt-1",
		Title:     "Assembly",
		StartTime: scanNow.Add(-time.Hour),
		Geofence:  &geo.Geofence{Center: scanVenue, RadiusMeters: 10},
	}
	recorder, _ := seededRecorder(t, event)
	token := attendance.Token{EventID: "evt-1", ExpiresAt: scanNow.Add(23 * time.Hour)}

	record, _, err := recorder.Record(context.Background(), event, testRequester(), token, fix)
	require.NoError(t, err)
	require.NotNil(t, record.Location)
	assert.False(t, record.Location.WithinRadius)
	assert.Greater(t, record.Location.DistanceMeters, 10.0)
	assert.Equal(t, 9.0, record.Location.AccuracyMeters)
}

func TestRecorderCommitFailure(t *testing.T) {
	event := &attendance.EventRecord{ID: "evt-1", Title: "Assembly", StartTime: scanNow.Add(-time.Hour)}
	repo := &brokenRepo{InMemoryEventStore: store.NewInMemory()}
	require.NoError(t, repo.Put(context.Background(), event))
	recorder, err := attendance.NewRecorder(repo)
	require.NoError(t, err)

	_, _, err = recorder.Record(context.Background(), event, testRequester(), attendance.Token{EventID: "evt-1"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}
