package model

import "time"

// ResourceLock is an advisory lock document serializing check-then-create for
// a single room. Owner is a random token so only the holder can release it.
type ResourceLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
