package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/geo"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/platform/sentinel"
)

// foreignKeyViolation is the Postgres error code raised when a record targets
// a missing event.
const foreignKeyViolation = "23503"

// PostgresEventStore persists events and attendance records in Postgres.
// This store is pure I/O; every verification rule lives in the service.
type PostgresEventStore struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed event store.
func NewPostgres(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

// EnsureSchema creates the tables when they do not exist. The unique
// constraint on (event_id, student_id) is what makes the append idempotent.
func (s *PostgresEventStore) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			geofence_latitude DOUBLE PRECISION,
			geofence_longitude DOUBLE PRECISION,
			geofence_radius_m DOUBLE PRECISION,
			geofence_address TEXT,
			qr_manual_expiration TIMESTAMPTZ,
			attendance_deadline TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS attendance_records (
			id UUID PRIMARY KEY,
			event_id TEXT NOT NULL REFERENCES events(id),
			student_id TEXT NOT NULL,
			student_name TEXT NOT NULL,
			course TEXT NOT NULL,
			year_level TEXT NOT NULL,
			block TEXT NOT NULL,
			gender TEXT NOT NULL,
			scanned_at TIMESTAMPTZ NOT NULL,
			qr_issued_at TIMESTAMPTZ,
			qr_expires_at TIMESTAMPTZ,
			uses_manual_expiration BOOLEAN NOT NULL DEFAULT FALSE,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			accuracy_m DOUBLE PRECISION,
			distance_m DOUBLE PRECISION,
			within_radius BOOLEAN,
			UNIQUE (event_id, student_id)
		);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure attendance schema: %w", err)
	}
	return nil
}

// Put inserts or replaces an event definition. Admin seeding only; attendee
// commits go through AppendAttendeeIfAbsent.
func (s *PostgresEventStore) Put(ctx context.Context, event *attendance.EventRecord) error {
	query := `
		INSERT INTO events (id, title, start_time, geofence_latitude, geofence_longitude,
			geofence_radius_m, geofence_address, qr_manual_expiration, attendance_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			start_time = EXCLUDED.start_time,
			geofence_latitude = EXCLUDED.geofence_latitude,
			geofence_longitude = EXCLUDED.geofence_longitude,
			geofence_radius_m = EXCLUDED.geofence_radius_m,
			geofence_address = EXCLUDED.geofence_address,
			qr_manual_expiration = EXCLUDED.qr_manual_expiration,
			attendance_deadline = EXCLUDED.attendance_deadline
	`
	var lat, lon, radius *float64
	var address *string
	if event.Geofence != nil {
		lat = &event.Geofence.Center.Latitude
		lon = &event.Geofence.Center.Longitude
		radius = &event.Geofence.RadiusMeters
		if event.Geofence.Address != "" {
			address = &event.Geofence.Address
		}
	}
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Title,
		event.StartTime,
		lat, lon, radius, address,
		event.QRManualExpiration,
		event.AttendanceDeadline,
	)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Get loads the event together with its attendees.
func (s *PostgresEventStore) Get(ctx context.Context, eventID string) (*attendance.EventRecord, error) {
	query := `
		SELECT id, title, start_time, geofence_latitude, geofence_longitude,
			geofence_radius_m, geofence_address, qr_manual_expiration, attendance_deadline
		FROM events
		WHERE id = $1
	`
	var (
		event            attendance.EventRecord
		lat, lon, radius sql.NullFloat64
		address          sql.NullString
		manualExpiry     sql.NullTime
		deadline         sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, eventID).Scan(
		&event.ID, &event.Title, &event.StartTime,
		&lat, &lon, &radius, &address,
		&manualExpiry, &deadline,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %q: %w", eventID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if radius.Valid {
		event.Geofence = &geo.Geofence{
			Center:       geo.Coordinate{Latitude: lat.Float64, Longitude: lon.Float64},
			RadiusMeters: radius.Float64,
			Address:      address.String,
		}
	}
	if manualExpiry.Valid {
		t := manualExpiry.Time
		event.QRManualExpiration = &t
	}
	if deadline.Valid {
		t := deadline.Time
		event.AttendanceDeadline = &t
	}

	attendees, err := s.listAttendees(ctx, eventID)
	if err != nil {
		return nil, err
	}
	event.Attendees = attendees
	return &event, nil
}

// AppendAttendeeIfAbsent inserts the record unless the student already holds
// one, as a single atomic statement. The unique constraint arbitrates
// concurrent scans; RowsAffected distinguishes a fresh commit from the
// idempotent no-op.
func (s *PostgresEventStore) AppendAttendeeIfAbsent(ctx context.Context, eventID string, record attendance.AttendanceRecord) (attendance.AppendResult, error) {
	query := `
		INSERT INTO attendance_records (id, event_id, student_id, student_name, course,
			year_level, block, gender, scanned_at, qr_issued_at, qr_expires_at,
			uses_manual_expiration, latitude, longitude, accuracy_m, distance_m, within_radius)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (event_id, student_id) DO NOTHING
	`
	var lat, lon, accuracy, distance *float64
	var within *bool
	if record.Location != nil {
		lat = &record.Location.Latitude
		lon = &record.Location.Longitude
		accuracy = &record.Location.AccuracyMeters
		distance = &record.Location.DistanceMeters
		within = &record.Location.WithinRadius
	}
	result, err := s.db.ExecContext(ctx, query,
		record.ID, eventID,
		record.StudentID, record.StudentName, record.Course,
		record.YearLevel, record.Block, record.Gender,
		record.ScannedAt,
		nullTime(record.QRIssuedAt), nullTime(record.QRExpiresAt),
		record.UsesManualExpiration,
		lat, lon, accuracy, distance, within,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return 0, fmt.Errorf("event %q: %w", eventID, sentinel.ErrNotFound)
		}
		return 0, fmt.Errorf("append attendance record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("append attendance rows affected: %w", err)
	}
	if rows == 0 {
		return attendance.AppendAlreadyPresent, nil
	}
	return attendance.AppendCommitted, nil
}

func (s *PostgresEventStore) listAttendees(ctx context.Context, eventID string) ([]attendance.AttendanceRecord, error) {
	query := `
		SELECT id, student_id, student_name, course, year_level, block, gender,
			scanned_at, qr_issued_at, qr_expires_at, uses_manual_expiration,
			latitude, longitude, accuracy_m, distance_m, within_radius
		FROM attendance_records
		WHERE event_id = $1
		ORDER BY scanned_at
	`
	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	var attendees []attendance.AttendanceRecord
	for rows.Next() {
		var (
			rec                          attendance.AttendanceRecord
			issuedAt, expiresAt          sql.NullTime
			lat, lon, accuracy, distance sql.NullFloat64
			within                       sql.NullBool
		)
		if err := rows.Scan(
			&rec.ID, &rec.StudentID, &rec.StudentName, &rec.Course,
			&rec.YearLevel, &rec.Block, &rec.Gender,
			&rec.ScannedAt, &issuedAt, &expiresAt, &rec.UsesManualExpiration,
			&lat, &lon, &accuracy, &distance, &within,
		); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		if issuedAt.Valid {
			rec.QRIssuedAt = issuedAt.Time
		}
		if expiresAt.Valid {
			rec.QRExpiresAt = expiresAt.Time
		}
		if lat.Valid {
			rec.Location = &attendance.RecordedLocation{
				Latitude:       lat.Float64,
				Longitude:      lon.Float64,
				AccuracyMeters: accuracy.Float64,
				DistanceMeters: distance.Float64,
				WithinRadius:   within.Bool,
			}
		}
		attendees = append(attendees, rec)
	}
	return attendees, rows.Err()
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
