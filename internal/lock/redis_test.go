package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker, err := NewRedisLocker(client, ttl, 5*time.Millisecond)
	require.NoError(t, err)
	return locker, mr
}

func TestNewRedisLocker_Validation(t *testing.T) {
	_, err := NewRedisLocker(nil, time.Second, 0)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	_, err = NewRedisLocker(client, 0, 0)
	assert.Error(t, err)
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	locker, mr := setupRedisLocker(t, 10*time.Second)
	key := UserKey("u1")

	unlock, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 10*time.Second, mr.TTL(key))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, key)
	assert.True(t, errors.Is(err, ErrNotAcquired))

	unlock()
	assert.False(t, mr.Exists(key))

	unlock, err = locker.Lock(context.Background(), key)
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker_WaiterAcquiresAfterRelease(t *testing.T) {
	locker, _ := setupRedisLocker(t, 10*time.Second)
	key := UserKey("u2")

	unlock, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		second, err := locker.Lock(ctx, key)
		if err == nil {
			second()
		}
		close(acquired)
	}()

	time.Sleep(20 * time.Millisecond)
	unlock()

	select {
	case <-acquired:
	case <-time.After(3 * time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestRedisLocker_ExpiredLockIsNotStolenBack(t *testing.T) {
	locker, mr := setupRedisLocker(t, time.Second)
	key := UserKey("u3")

	staleUnlock, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)

	// Holder stalls past the TTL and someone else takes over
	mr.FastForward(2 * time.Second)
	freshUnlock, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)

	staleUnlock()
	assert.True(t, mr.Exists(key), "stale holder must not release the new holder's lock")

	freshUnlock()
	assert.False(t, mr.Exists(key))
}

func TestRedisLocker_ConcurrentUnlockReleasesOnce(t *testing.T) {
	locker, mr := setupRedisLocker(t, 10*time.Second)
	key := UserKey("u4")

	unlock, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock()
		}()
	}
	wg.Wait()
	assert.False(t, mr.Exists(key))

	next, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)
	unlock()
	assert.True(t, mr.Exists(key))
	next()
}
