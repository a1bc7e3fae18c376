// Package store provides profile Store implementations.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/platform/sentinel"
)

// InMemoryProfileStore keeps profiles in a mutex-guarded map.
type InMemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]attendance.StudentIdentity
}

// NewInMemory creates an empty in-memory profile store.
func NewInMemory() *InMemoryProfileStore {
	return &InMemoryProfileStore{profiles: make(map[string]attendance.StudentIdentity)}
}

func (s *InMemoryProfileStore) Get(_ context.Context, studentID string) (attendance.StudentIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.profiles[studentID]
	if !ok {
		return attendance.StudentIdentity{}, fmt.Errorf("student %q: %w", studentID, sentinel.ErrNotFound)
	}
	return identity, nil
}

func (s *InMemoryProfileStore) Upsert(_ context.Context, identity attendance.StudentIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[identity.StudentID] = identity
	return nil
}
