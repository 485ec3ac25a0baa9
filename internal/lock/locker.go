package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	domainErrors "github.com/velostore/ordercore/internal/domain/errors"
)

// releaseIfMatch deletes the lock only when it still holds our token, so an
// expired lease reacquired by someone else is never deleted by mistake.
const releaseIfMatch = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

// Locker acquires scoped leases in a shared TTL-supporting key store. The
// TTL is a safety margin against crashed holders, not the primary
// correctness mechanism; every exit path still releases explicitly.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Release(ctx context.Context, key, token string) error
	TryLease(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// redisClient is the subset of redis.UniversalClient the locker needs;
// tests substitute a stub.
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker implements Locker on a single authoritative redis instance.
type RedisLocker struct {
	client redisClient
}

// NewRedisLocker wraps the shared redis client.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire takes the lease with a fresh token. ErrConflict means another
// holder owns it.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domainErrors.ErrConflict
	}
	return token, nil
}

// Release drops the lease if the token still matches. Releasing an expired
// or already-released lease is a no-op.
func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	err := l.client.Eval(ctx, releaseIfMatch, []string{key}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TryLease is a non-owned variant used for sweep leader election: whoever
// wins runs the batch, everyone else skips the tick. The lease expires on
// its own.
func (l *RedisLocker) TryLease(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, "1", ttl).Result()
}
