package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/platform/sentinel"
)

func seedEvent(t *testing.T, s *InMemoryEventStore) *attendance.EventRecord {
	t.Helper()
	event := &attendance.EventRecord{
		ID:        "evt-1",
		Title:     "Acquaintance Party",
		StartTime: time.Now().Add(-time.Hour),
	}
	require.NoError(t, s.Put(context.Background(), event))
	return event
}

func record(studentID string) attendance.AttendanceRecord {
	return attendance.AttendanceRecord{
		ID:        uuid.NewString(),
		StudentID: studentID,
		ScannedAt: time.Now(),
	}
}

func TestInMemoryGet(t *testing.T) {
	s := NewInMemory()
	seedEvent(t, s)

	t.Run("unknown event returns not found", func(t *testing.T) {
		_, err := s.Get(context.Background(), "ghost")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("returned snapshot is detached", func(t *testing.T) {
		snapshot, err := s.Get(context.Background(), "evt-1")
		require.NoError(t, err)
		snapshot.Attendees = append(snapshot.Attendees, record("tamper"))

		fresh, err := s.Get(context.Background(), "evt-1")
		require.NoError(t, err)
		assert.Empty(t, fresh.Attendees)
	})
}

func TestInMemoryAppendIfAbsent(t *testing.T) {
	s := NewInMemory()
	seedEvent(t, s)

	result, err := s.AppendAttendeeIfAbsent(context.Background(), "evt-1", record("2023-00123"))
	require.NoError(t, err)
	assert.Equal(t, attendance.AppendCommitted, result)

	result, err = s.AppendAttendeeIfAbsent(context.Background(), "evt-1", record("2023-00123"))
	require.NoError(t, err)
	assert.Equal(t, attendance.AppendAlreadyPresent, result)

	_, err = s.AppendAttendeeIfAbsent(context.Background(), "ghost", record("2023-00123"))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

// TestConcurrentSameStudent verifies the double-submission race: many scans
// by one student commit exactly one record.
func TestConcurrentSameStudent(t *testing.T) {
	s := NewInMemory()
	seedEvent(t, s)

	const goroutines = 50
	var wg sync.WaitGroup
	var committed atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.AppendAttendeeIfAbsent(context.Background(), "evt-1", record("2023-00123"))
			require.NoError(t, err)
			if result == attendance.AppendCommitted {
				committed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), committed.Load())
	event, err := s.Get(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Len(t, event.Attendees, 1)
}

// TestConcurrentDistinctStudents verifies appends from different devices do
// not lose updates.
func TestConcurrentDistinctStudents(t *testing.T) {
	s := NewInMemory()
	seedEvent(t, s)

	const goroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.AppendAttendeeIfAbsent(context.Background(), "evt-1", record(fmt.Sprintf("2023-%05d", n)))
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	event, err := s.Get(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Len(t, event.Attendees, goroutines)
}
