package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_Exclusive(t *testing.T) {
	ctx := context.Background()
	locker := NewMemoryLocker()

	lease, ok, err := locker.Acquire(ctx, "sweep:student:2025-03-10", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.Acquire(ctx, "sweep:student:2025-03-10", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = locker.Acquire(ctx, "sweep:staff:2025-03-10", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "different keys do not contend")

	require.NoError(t, lease.Release(ctx))
	assert.ErrorIs(t, lease.Release(ctx), ErrNotHeld)

	_, ok, err = locker.Acquire(ctx, "sweep:student:2025-03-10", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLocker_Expires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	locker := NewMemoryLocker()
	locker.clock = func() time.Time { return now }

	stale, ok, _ := locker.Acquire(ctx, "k", time.Minute)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = locker.Acquire(ctx, "k", time.Minute)
	assert.True(t, ok, "expired lease can be taken over")
	assert.ErrorIs(t, stale.Release(ctx), ErrNotHeld, "stale holder cannot release the new lease")
}

func TestMemoryLocker_Concurrent(t *testing.T) {
	ctx := context.Background()
	locker := NewMemoryLocker()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := locker.Acquire(ctx, "k", time.Minute); ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}
