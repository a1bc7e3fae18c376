package attendance

import "context"

// AppendResult distinguishes a fresh commit from an idempotent no-op.
type AppendResult int

const (
	AppendCommitted AppendResult = iota
	AppendAlreadyPresent
)

// EventRepository is the persistence collaborator. Get returns
// sentinel.ErrNotFound (wrapped) for unknown events. AppendAttendeeIfAbsent
// must be a single atomic operation against the backing store (a set-union on
// student ID, never client-side read-modify-write) so concurrent scans by the
// same student commit at most one record.
type EventRepository interface {
	Get(ctx context.Context, eventID string) (*EventRecord, error)
	AppendAttendeeIfAbsent(ctx context.Context, eventID string, record AttendanceRecord) (AppendResult, error)
}

// IdentityProvider resolves the requesting student's profile. A missing or
// partial profile returns an error; the pipeline rejects rather than proceed
// with a null identity.
type IdentityProvider interface {
	CurrentStudent(ctx context.Context, studentID string) (StudentIdentity, error)
}

// LocationProvider produces a device location fix on demand. Implementations
// return sentinel.ErrUnavailable or sentinel.ErrPermissionDenied (wrapped)
// and must honor ctx cancellation.
type LocationProvider interface {
	CurrentFix(ctx context.Context) (*LocationFix, error)
}

// ScanLatch enforces at-most-once dispatch of a decoded string per scan
// session. Acquire reports false when the same payload is already in flight
// or was already dispatched within the latch TTL. Release frees the payload
// early so a transiently rejected scan can be retried before the TTL lapses.
type ScanLatch interface {
	Acquire(ctx context.Context, sessionID, payload string) (bool, error)
	Release(ctx context.Context, sessionID, payload string) error
}
