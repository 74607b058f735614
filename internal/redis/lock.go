package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("record lock not acquired")
)

// Locker serializes state transitions on a single record across API replicas.
type Locker interface {
	WithLock(ctx context.Context, kind string, id uuid.UUID, fn func(ctx context.Context) error) error
}

type redisRecordLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRecordLocker creates a locker that uses one Redis key per record.
func NewRedisRecordLocker(client *redis.Client, ttl time.Duration) Locker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &redisRecordLocker{
		client: client,
		ttl:    ttl,
	}
}

func lockKey(kind string, id uuid.UUID) string {
	return fmt.Sprintf("lock:%s:%s", kind, id.String())
}

func (l *redisRecordLocker) WithLock(ctx context.Context, kind string, id uuid.UUID, fn func(ctx context.Context) error) error {
	key := lockKey(kind, id)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire %s lock: %w", kind, err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		// release with a fresh context so a cancelled request still frees the key
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = l.release(releaseCtx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisRecordLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release record lock: %w", err)
	}
	return nil
}

// NoopLocker runs fn directly. Used when Redis is not configured; the store's
// conditional updates and row locks still serialize writers.
type NoopLocker struct{}

func (NoopLocker) WithLock(ctx context.Context, _ string, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
