//go:build integration

package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance/session"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/testutil/containers"
)

type RedisLatchSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	latch *session.RedisLatch
}

func TestRedisLatchSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLatchSuite))
}

func (s *RedisLatchSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.latch = session.NewRedisLatch(s.redis.Client, time.Minute)
}

func (s *RedisLatchSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLatchSuite) TestAcquireBlocksDuplicates() {
	ctx := context.Background()

	acquired, err := s.latch.Acquire(ctx, "cam-1", "token-payload")
	s.Require().NoError(err)
	s.True(acquired)

	acquired, err = s.latch.Acquire(ctx, "cam-1", "token-payload")
	s.Require().NoError(err)
	s.False(acquired)

	// A different session is unaffected.
	acquired, err = s.latch.Acquire(ctx, "cam-2", "token-payload")
	s.Require().NoError(err)
	s.True(acquired)
}

func (s *RedisLatchSuite) TestReleaseReopensTheSession() {
	ctx := context.Background()

	acquired, err := s.latch.Acquire(ctx, "cam-1", "token-payload")
	s.Require().NoError(err)
	s.True(acquired)

	s.Require().NoError(s.latch.Release(ctx, "cam-1", "token-payload"))

	acquired, err = s.latch.Acquire(ctx, "cam-1", "token-payload")
	s.Require().NoError(err)
	s.True(acquired)
}

func (s *RedisLatchSuite) TestAcquireExpires() {
	ctx := context.Background()
	short := session.NewRedisLatch(s.redis.Client, 100*time.Millisecond)

	acquired, err := short.Acquire(ctx, "cam-1", "token-payload")
	s.Require().NoError(err)
	s.True(acquired)

	time.Sleep(200 * time.Millisecond)

	acquired, err = short.Acquire(ctx, "cam-1", "token-payload")
	s.Require().NoError(err)
	s.True(acquired)
}

// TestConcurrentAcquire verifies SET NX arbitration: racing dispatches of the
// same payload resolve to exactly one acquisition.
func (s *RedisLatchSuite) TestConcurrentAcquire() {
	ctx := context.Background()
	const goroutines = 32

	var wg sync.WaitGroup
	var acquisitions atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			acquired, err := s.latch.Acquire(ctx, "cam-1", "token-payload")
			if err == nil && acquired {
				acquisitions.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), acquisitions.Load())
}
