package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/platform/sentinel"
)

// PostgresProfileStore persists student profiles in Postgres.
type PostgresProfileStore struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed profile store.
func NewPostgres(db *sql.DB) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

// EnsureSchema creates the students table when it does not exist.
func (s *PostgresProfileStore) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS students (
			student_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			course TEXT NOT NULL DEFAULT '',
			year_level TEXT NOT NULL DEFAULT '',
			block TEXT NOT NULL DEFAULT '',
			gender TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure profile schema: %w", err)
	}
	return nil
}

func (s *PostgresProfileStore) Get(ctx context.Context, studentID string) (attendance.StudentIdentity, error) {
	query := `
		SELECT student_id, name, course, year_level, block, gender
		FROM students
		WHERE student_id = $1
	`
	var identity attendance.StudentIdentity
	err := s.db.QueryRowContext(ctx, query, studentID).Scan(
		&identity.StudentID, &identity.Name, &identity.Course,
		&identity.YearLevel, &identity.Block, &identity.Gender,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.StudentIdentity{}, fmt.Errorf("student %q: %w", studentID, sentinel.ErrNotFound)
		}
		return attendance.StudentIdentity{}, fmt.Errorf("get profile: %w", err)
	}
	return identity, nil
}

func (s *PostgresProfileStore) Upsert(ctx context.Context, identity attendance.StudentIdentity) error {
	query := `
		INSERT INTO students (student_id, name, course, year_level, block, gender, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (student_id) DO UPDATE SET
			name = EXCLUDED.name,
			course = EXCLUDED.course,
			year_level = EXCLUDED.year_level,
			block = EXCLUDED.block,
			gender = EXCLUDED.gender,
			updated_at = NOW()
	`
	_, err := s.db.ExecContext(ctx, query,
		identity.StudentID, identity.Name, identity.Course,
		identity.YearLevel, identity.Block, identity.Gender,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
