package repository

import (
	"context"
	"fmt"
	"time"

	"studyrooms/pkg/config"
)

// ResourceLock serializes check-then-create per room. TryAcquire makes a single
// attempt and returns errors.ErrLockHeld when another holder owns the lock.
// The returned token must be passed to Release.
type ResourceLock interface {
	TryAcquire(ctx context.Context, resourceID string, ttl time.Duration) (string, error)
	Release(ctx context.Context, resourceID, token string) error
}

// NewResourceLock returns the backend selected by LOCK_BACKEND.
func NewResourceLock(ctx context.Context, cfg *config.Config) (ResourceLock, error) {
	switch cfg.LockBackend {
	case config.LockBackendNone:
		cfg.Log.Warn("Resource lock disabled, concurrent submits for the same room may double book")
		return NoopResourceLock{}, nil
	case config.LockBackendMemory:
		return NewMemoryResourceLock(), nil
	case config.LockBackendMongo:
		return NewMongoResourceLock(ctx, cfg.Client.Mongo.Database(cfg.MongoDatabaseName))
	case config.LockBackendRedis:
		return NewRedisResourceLock(cfg.Client.Redis, DefaultRedisLockPrefix), nil
	default:
		return nil, fmt.Errorf("unknown lock backend: %s", cfg.LockBackend)
	}
}

// NoopResourceLock never blocks.
type NoopResourceLock struct{}

func (NoopResourceLock) TryAcquire(context.Context, string, time.Duration) (string, error) {
	return "", nil
}

func (NoopResourceLock) Release(context.Context, string, string) error {
	return nil
}
