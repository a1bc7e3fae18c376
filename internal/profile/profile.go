// Package profile is the student directory behind the attendance engine's
// identity port. Session management is out of scope; callers hand this
// package an already-authenticated student ID.
package profile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance"
	dErrors "github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/domain-errors"
)

// Store persists student profiles.
type Store interface {
	Get(ctx context.Context, studentID string) (attendance.StudentIdentity, error)
	Upsert(ctx context.Context, identity attendance.StudentIdentity) error
}

// Service resolves and maintains profiles. It implements the attendance
// engine's IdentityProvider port.
type Service struct {
	store  Store
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs a profile service.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CurrentStudent resolves the requester's profile. Missing and partial
// profiles both fail: the pipeline must never proceed with a null identity.
func (s *Service) CurrentStudent(ctx context.Context, studentID string) (attendance.StudentIdentity, error) {
	if studentID == "" {
		return attendance.StudentIdentity{}, fmt.Errorf("student id is required")
	}
	identity, err := s.store.Get(ctx, studentID)
	if err != nil {
		return attendance.StudentIdentity{}, fmt.Errorf("resolve student %q: %w", studentID, err)
	}
	if !identity.Complete() {
		return attendance.StudentIdentity{}, fmt.Errorf("student %q profile incomplete", studentID)
	}
	return identity, nil
}

// Upsert creates or updates a profile.
func (s *Service) Upsert(ctx context.Context, identity attendance.StudentIdentity) error {
	if identity.StudentID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "studentId is required")
	}
	if err := s.store.Upsert(ctx, identity); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	s.logger.InfoContext(ctx, "profile upserted", "student_id", identity.StudentID)
	return nil
}
