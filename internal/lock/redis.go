package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Only the holder's token may delete the key
var unlockScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker shares per-user locks across instances with SET NX PX. The TTL
// bounds how long a crashed holder can block others.
type RedisLocker struct {
	redis         redis.Cmdable
	ttl           time.Duration
	retryInterval time.Duration
}

func NewRedisLocker(client redis.Cmdable, ttl, retryInterval time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("lock ttl must be positive, got %v", ttl)
	}
	if retryInterval <= 0 {
		retryInterval = 25 * time.Millisecond
	}
	return &RedisLocker{redis: client, ttl: ttl, retryInterval: retryInterval}, nil
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()

	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%s: %w: %w", key, ErrNotAcquired, ctx.Err())
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-time.After(l.retryInterval):
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w: %w", key, ErrNotAcquired, ctx.Err())
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be done; release regardless
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := unlockScript.Run(releaseCtx, l.redis, []string{key}, token).Err(); err != nil {
				zap.L().Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}
