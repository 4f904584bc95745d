package repository

import (
	"context"
	"fmt"
	"time"

	reservationserrors "studyrooms/internal/reservations/errors"
	"studyrooms/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	LockCollectionName = "Resource_locks"
	lockIDPrefix       = "reservation_lock_"
)

type mongoResourceLock struct {
	collection *mongo.Collection
}

// NewMongoResourceLock stores advisory locks as documents keyed by room. The
// unique _id makes a concurrent insert fail with a duplicate key error, and a
// TTL index on expires_at cleans up locks left by crashed holders.
func NewMongoResourceLock(ctx context.Context, db *mongo.Database) (ResourceLock, error) {
	collection := db.Collection(LockCollectionName)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lock TTL index: %w", err)
	}

	return &mongoResourceLock{collection: collection}, nil
}

func (l *mongoResourceLock) TryAcquire(ctx context.Context, resourceID string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	lockID := lockIDPrefix + resourceID

	// The TTL monitor runs about once a minute, so expired locks are removed here too.
	if _, err := l.collection.DeleteOne(ctx, bson.M{"_id": lockID, "expires_at": bson.M{"$lte": now}}); err != nil {
		return "", fmt.Errorf("failed to clear expired lock: %w", err)
	}

	lock := &model.ResourceLock{
		ID:        lockID,
		Owner:     uuid.NewString(),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if _, err := l.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", reservationserrors.ErrLockHeld
		}
		return "", fmt.Errorf("failed to acquire lock: %w", err)
	}

	return lock.Owner, nil
}

func (l *mongoResourceLock) Release(ctx context.Context, resourceID, token string) error {
	_, err := l.collection.DeleteOne(ctx, bson.M{"_id": lockIDPrefix + resourceID, "owner": token})
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
