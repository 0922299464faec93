// Package lock provides short-lived mutual exclusion for batch jobs that may
// be triggered from more than one process.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotHeld = errors.New("lock is not held")

// Locker hands out a lease on key for ttl. acquired is false when another
// holder owns the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (lease *Lease, acquired bool, err error)
}

// Lease releases a held lock.
type Lease struct {
	release func(ctx context.Context) error
}

func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.release == nil {
		return nil
	}
	return l.release(ctx)
}

// RedisLocker uses SET NX with a random owner token so only the holder can
// release the key.
type RedisLocker struct {
	client *redis.Client
	prefix string
}

func NewRedisLocker(client *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, bool, error) {
	fullKey := r.prefix + key
	owner := uuid.NewString()

	ok, err := r.client.SetNX(ctx, fullKey, owner, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, false, nil
	}

	return &Lease{release: func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, r.client, []string{fullKey}, owner).Int()
		if err != nil {
			return fmt.Errorf("release lock %s: %w", fullKey, err)
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}}, true, nil
}

// MemoryLocker is the single-process Locker used when no redis address is
// configured.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryEntry
	clock func() time.Time
}

type memoryEntry struct {
	owner   string
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryEntry), clock: time.Now}
}

func (m *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (*Lease, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	if e, ok := m.held[key]; ok && now.Before(e.expires) {
		return nil, false, nil
	}

	owner := uuid.NewString()
	m.held[key] = memoryEntry{owner: owner, expires: now.Add(ttl)}

	return &Lease{release: func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if e, ok := m.held[key]; !ok || e.owner != owner {
			return ErrNotHeld
		}
		delete(m.held, key)
		return nil
	}}, true, nil
}
