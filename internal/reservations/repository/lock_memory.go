package repository

import (
	"context"
	"sync"
	"time"

	reservationserrors "studyrooms/internal/reservations/errors"

	"github.com/google/uuid"
)

type memoryLockEntry struct {
	token     string
	expiresAt time.Time
}

type memoryResourceLock struct {
	mu    sync.Mutex
	locks map[string]memoryLockEntry
	now   func() time.Time
}

// NewMemoryResourceLock only serializes requests within a single process.
func NewMemoryResourceLock() ResourceLock {
	return &memoryResourceLock{
		locks: make(map[string]memoryLockEntry),
		now:   time.Now,
	}
}

func (l *memoryResourceLock) TryAcquire(ctx context.Context, resourceID string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.locks[resourceID]; ok && now.Before(entry.expiresAt) {
		return "", reservationserrors.ErrLockHeld
	}

	token := uuid.NewString()
	l.locks[resourceID] = memoryLockEntry{token: token, expiresAt: now.Add(ttl)}
	return token, nil
}

func (l *memoryResourceLock) Release(_ context.Context, resourceID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.locks[resourceID]; ok && entry.token == token {
		delete(l.locks, resourceID)
	}
	return nil
}
