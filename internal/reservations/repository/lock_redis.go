package repository

import (
	"context"
	"fmt"
	"time"

	reservationserrors "studyrooms/internal/reservations/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisLockPrefix = "studyrooms:lock:"

// releaseScript deletes the key only if it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisResourceLock struct {
	client *redis.Client
	prefix string
}

func NewRedisResourceLock(client *redis.Client, prefix string) ResourceLock {
	return &redisResourceLock{client: client, prefix: prefix}
}

func (l *redisResourceLock) TryAcquire(ctx context.Context, resourceID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.prefix+resourceID, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return "", reservationserrors.ErrLockHeld
	}
	return token, nil
}

func (l *redisResourceLock) Release(ctx context.Context, resourceID, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + resourceID}, token).Err(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
