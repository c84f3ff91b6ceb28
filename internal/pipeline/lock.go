package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Locker serializes structural stage operations.
// Lock blocks until the lock is held or ctx is done; the returned func releases it.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// LocalLocker is an in-process lock admitting one holder at a time.
// Waiters are admitted in arrival order.
type LocalLocker struct {
	sem chan struct{}
}

// NewLocalLocker creates an unlocked in-process lock
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{sem: make(chan struct{}, 1)}
}

func (l *LocalLocker) Lock(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
		return func() { <-l.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes structural operations across replicas with a
// SET NX PX lease. The lease expires after ttl if the holder dies; it is
// never renewed, so holders must finish within ttl (see Options.LockLease).
type RedisLocker struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewRedisLocker creates a lock on key with the given lease
func NewRedisLocker(client redis.Cmdable, key string, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		client: client,
		key:    key,
		ttl:    ttl,
		retry:  50 * time.Millisecond,
		logger: logger,
	}
}

func (l *RedisLocker) Lock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire stage lock: %w: %w", ErrStoreUnavailable, err)
		}
		if ok {
			return func() {
				// fresh context: the caller's may already be done
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				l.release(ctx, token)
			}, nil
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) release(ctx context.Context, token string) {
	deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int64()
	switch {
	case err != nil:
		// The lease still expires after ttl
		l.logger.Error("Failed to release stage lock",
			zap.String("key", l.key),
			zap.Duration("ttl", l.ttl),
			zap.Error(err),
		)
	case deleted == 0:
		l.logger.Warn("Stage lock lease expired before release",
			zap.String("key", l.key),
			zap.Duration("ttl", l.ttl),
		)
	}
}

// Chain acquires lockers in order and releases them in reverse
func Chain(lockers ...Locker) Locker {
	return chain(lockers)
}

type chain []Locker

func (c chain) Lock(ctx context.Context) (func(), error) {
	unlocks := make([]func(), 0, len(c))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, l := range c {
		unlock, err := l.Lock(ctx)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}
