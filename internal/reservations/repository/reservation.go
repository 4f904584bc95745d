package repository

import (
	"context"
	"time"

	"studyrooms/pkg/model"
)

// ReservationRepository is the boundary to the system of record. Implementations
// never retry; callers decide what an upstream failure means.
type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	List(ctx context.Context, window model.TimeRange) ([]*model.Reservation, error)
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	Delete(ctx context.Context, id string) error
	MarkCheckedIn(ctx context.Context, id string, at time.Time) error
	Ping(ctx context.Context) error
}

// withTimeout bounds ctx by timeout, keeping an earlier deadline if the caller
// already set one.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}
