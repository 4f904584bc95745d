//go:build integration

package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	reservationserrors "studyrooms/internal/reservations/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Run with: MONGO_URI=mongodb://localhost:27017 go test -tags integration ./internal/reservations/repository/
func newTestMongoDatabase(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("studyrooms_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("warning: failed to drop test database: %v", err)
		}
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestMongoResourceLock(t *testing.T) {
	db := newTestMongoDatabase(t)
	ctx := context.Background()

	lock, err := NewMongoResourceLock(ctx, db)
	require.NoError(t, err)

	token, err := lock.TryAcquire(ctx, "room-101", 10*time.Second)
	require.NoError(t, err)

	_, err = lock.TryAcquire(ctx, "room-101", 10*time.Second)
	assert.ErrorIs(t, err, reservationserrors.ErrLockHeld)

	require.NoError(t, lock.Release(ctx, "room-101", "someone-else"))
	_, err = lock.TryAcquire(ctx, "room-101", 10*time.Second)
	assert.ErrorIs(t, err, reservationserrors.ErrLockHeld)

	require.NoError(t, lock.Release(ctx, "room-101", token))
	_, err = lock.TryAcquire(ctx, "room-101", 10*time.Second)
	assert.NoError(t, err)
}

func TestMongoResourceLock_ExpiredLockIsTakenOver(t *testing.T) {
	db := newTestMongoDatabase(t)
	ctx := context.Background()

	lock, err := NewMongoResourceLock(ctx, db)
	require.NoError(t, err)

	_, err = lock.TryAcquire(ctx, "room-101", 10*time.Second)
	require.NoError(t, err)

	_, err = db.Collection(LockCollectionName).UpdateByID(ctx, lockIDPrefix+"room-101",
		bson.M{"$set": bson.M{"expires_at": time.Now().Add(-time.Second)}})
	require.NoError(t, err)

	_, err = lock.TryAcquire(ctx, "room-101", 10*time.Second)
	assert.NoError(t, err)
}

func TestMongoResourceLock_ConcurrentAcquire(t *testing.T) {
	db := newTestMongoDatabase(t)
	ctx := context.Background()

	lock, err := NewMongoResourceLock(ctx, db)
	require.NoError(t, err)

	const workers = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := lock.TryAcquire(ctx, "room-101", 10*time.Second); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
