// Package lock serializes work across API and worker processes with a
// Redis key per resource.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when ctx ends before the key could be claimed.
var ErrNotAcquired = errors.New("lock: not acquired")

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// Client is the subset of go-redis used by Locker.
type Client interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

// Locker claims keys with SET NX and a random owner token.
type Locker struct {
	Client Client
	Prefix string
	// Retry is the pause between claim attempts.
	Retry time.Duration
}

// WithLock runs fn while holding key. The key expires after ttl even if the
// holder dies; only the owner can release it early.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.Client == nil {
		return errors.New("lock: redis client not configured")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	retry := l.Retry
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	key = l.Prefix + key
	token := uuid.NewString()

	for {
		claimed, err := l.Client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return errors.Join(ErrNotAcquired, ctx.Err())
			}
			return err
		}
		if claimed {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(ErrNotAcquired, ctx.Err())
		case <-time.After(retry):
		}
	}
	defer func() {
		_ = releaseScript.Run(context.WithoutCancel(ctx), l.Client, []string{key}, token).Err()
	}()
	return fn(ctx)
}
