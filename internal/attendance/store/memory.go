// Package store provides EventRepository implementations: an in-memory store
// for unit tests and single-node development, and a Postgres store for
// production.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/platform/sentinel"
)

// InMemoryEventStore keeps events behind an RWMutex. The append is atomic
// under the write lock, giving the same at-most-one-per-student guarantee as
// the Postgres unique constraint.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events map[string]*attendance.EventRecord
}

// NewInMemory creates an empty in-memory event store.
func NewInMemory() *InMemoryEventStore {
	return &InMemoryEventStore{events: make(map[string]*attendance.EventRecord)}
}

// Put creates or replaces an event. Admin seeding only; attendee commits go
// through AppendAttendeeIfAbsent.
func (s *InMemoryEventStore) Put(_ context.Context, event *attendance.EventRecord) error {
	if event == nil || event.ID == "" {
		return fmt.Errorf("event with an id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = copyEvent(event)
	return nil
}

// Get returns a snapshot of the event, or sentinel.ErrNotFound.
func (s *InMemoryEventStore) Get(_ context.Context, eventID string) (*attendance.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("event %q: %w", eventID, sentinel.ErrNotFound)
	}
	return copyEvent(event), nil
}

// AppendAttendeeIfAbsent appends the record unless the student already holds
// one, as a single operation under the write lock.
func (s *InMemoryEventStore) AppendAttendeeIfAbsent(_ context.Context, eventID string, record attendance.AttendanceRecord) (attendance.AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return 0, fmt.Errorf("event %q: %w", eventID, sentinel.ErrNotFound)
	}
	if event.HasAttendee(record.StudentID) {
		return attendance.AppendAlreadyPresent, nil
	}
	event.Attendees = append(event.Attendees, record)
	return attendance.AppendCommitted, nil
}

// copyEvent detaches the stored event from callers so concurrent scans never
// share the attendees slice.
func copyEvent(event *attendance.EventRecord) *attendance.EventRecord {
	dup := *event
	if event.Geofence != nil {
		fence := *event.Geofence
		dup.Geofence = &fence
	}
	if event.QRManualExpiration != nil {
		t := *event.QRManualExpiration
		dup.QRManualExpiration = &t
	}
	if event.AttendanceDeadline != nil {
		t := *event.AttendanceDeadline
		dup.AttendanceDeadline = &t
	}
	dup.Attendees = append([]attendance.AttendanceRecord(nil), event.Attendees...)
	return &dup
}
