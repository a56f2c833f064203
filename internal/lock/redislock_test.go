package lock

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return Locker{R: rdb, RetryBackoff: 5 * time.Millisecond}, mr
}

func TestTryWithLockRunsAndReleases(t *testing.T) {
	l, mr := testLocker(t)
	ran := false
	err := l.TryWithLock(context.Background(), "lock:test", time.Minute, func(context.Context) error {
		ran = true
		require.True(t, mr.Exists("lock:test"))
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
	require.False(t, mr.Exists("lock:test"), "lock released after callback")
}

func TestTryWithLockHeldElsewhere(t *testing.T) {
	l, mr := testLocker(t)
	require.NoError(t, mr.Set("lock:test", "someone-else"))

	err := l.TryWithLock(context.Background(), "lock:test", time.Minute, func(context.Context) error {
		t.Fatal("callback must not run while lock is held")
		return nil
	})
	require.ErrorIs(t, err, ErrNotAcquired)
	val, getErr := mr.Get("lock:test")
	require.NoError(t, getErr)
	require.Equal(t, "someone-else", val, "foreign lock untouched")
}

func TestWithLockWaits(t *testing.T) {
	l, mr := testLocker(t)
	require.NoError(t, mr.Set("lock:test", "holder"))
	go func() {
		time.Sleep(20 * time.Millisecond)
		mr.Del("lock:test")
	}()

	err := l.WithLock(context.Background(), "lock:test", time.Minute, func(context.Context) error {
		return nil
	})
	require.NoError(t, err)
}

func TestWithLockContextCancelled(t *testing.T) {
	l, mr := testLocker(t)
	require.NoError(t, mr.Set("lock:test", "holder"))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
	defer cancel()
	err := l.WithLock(ctx, "lock:test", time.Minute, func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
