// Package session enforces single-dispatch of a decoded QR string per scan
// session: the camera may deliver the same frame repeatedly, but the engine
// must run at most once per payload per session.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultLatchTTL bounds how long a dispatched payload blocks re-dispatch.
// Long enough to cover the slowest pipeline run, short enough that a student
// whose transient scan failed can retry.
const DefaultLatchTTL = 30 * time.Second

// latchKey hashes the payload so raw token JSON never becomes a storage key.
func latchKey(sessionID, payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("scanlatch:%s:%s", sessionID, hex.EncodeToString(sum[:8]))
}

// MemoryLatch is a process-local latch for single-node deployments and tests.
type MemoryLatch struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time
	clock   func() time.Time
}

// NewMemoryLatch creates a memory latch. A non-positive ttl falls back to the
// default.
func NewMemoryLatch(ttl time.Duration) *MemoryLatch {
	if ttl <= 0 {
		ttl = DefaultLatchTTL
	}
	return &MemoryLatch{
		ttl:     ttl,
		entries: make(map[string]time.Time),
		clock:   time.Now,
	}
}

// Acquire reports whether this payload may be dispatched for this session.
// Expired entries are swept lazily on each call.
func (l *MemoryLatch) Acquire(_ context.Context, sessionID, payload string) (bool, error) {
	key := latchKey(sessionID, payload)
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()
	for k, expiry := range l.entries {
		if now.After(expiry) {
			delete(l.entries, k)
		}
	}
	if expiry, held := l.entries[key]; held && now.Before(expiry) {
		return false, nil
	}
	l.entries[key] = now.Add(l.ttl)
	return true, nil
}

// Release frees the payload before its TTL lapses, reopening the session for
// a retry after a transient rejection.
func (l *MemoryLatch) Release(_ context.Context, sessionID, payload string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, latchKey(sessionID, payload))
	return nil
}

// RedisLatch coordinates the latch across server instances with SET NX.
type RedisLatch struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLatch creates a redis-backed latch.
func NewRedisLatch(client *redis.Client, ttl time.Duration) *RedisLatch {
	if ttl <= 0 {
		ttl = DefaultLatchTTL
	}
	return &RedisLatch{client: client, ttl: ttl}
}

// Acquire sets the latch key if absent. The atomicity of SET NX is the
// whole point: two racing dispatches resolve to exactly one acquisition.
func (l *RedisLatch) Acquire(ctx context.Context, sessionID, payload string) (bool, error) {
	ok, err := l.client.SetNX(ctx, latchKey(sessionID, payload), 1, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire scan latch: %w", err)
	}
	return ok, nil
}

// Release deletes the latch key so the session can retry before the TTL lapses.
func (l *RedisLatch) Release(ctx context.Context, sessionID, payload string) error {
	if err := l.client.Del(ctx, latchKey(sessionID, payload)).Err(); err != nil {
		return fmt.Errorf("release scan latch: %w", err)
	}
	return nil
}
