package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	reservationserrors "studyrooms/internal/reservations/errors"
	"studyrooms/pkg/model"

	"github.com/google/uuid"
)

// memoryReservationRepository keeps reservations in process. Used with
// STORE_DRIVER=memory for local development and by tests.
type memoryReservationRepository struct {
	mu           sync.RWMutex
	reservations map[string]*model.Reservation
}

func NewMemoryReservationRepository() ReservationRepository {
	return &memoryReservationRepository{
		reservations: make(map[string]*model.Reservation),
	}
}

func (r *memoryReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !reservation.Range().Valid() {
		return reservationserrors.ErrInvalidTimeRange
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	reservation.ID = uuid.NewString()
	r.reservations[reservation.ID] = reservation.Clone()
	return nil
}

func (r *memoryReservationRepository) List(ctx context.Context, window model.TimeRange) ([]*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*model.Reservation{}
	for _, reservation := range r.reservations {
		if reservation.Range().Overlaps(window) {
			out = append(out, reservation.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func (r *memoryReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	reservation, ok := r.reservations[id]
	if !ok {
		return nil, reservationserrors.ErrNotFound
	}
	return reservation.Clone(), nil
}

func (r *memoryReservationRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reservations[id]; !ok {
		return reservationserrors.ErrNotFound
	}
	delete(r.reservations, id)
	return nil
}

func (r *memoryReservationRepository) MarkCheckedIn(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	reservation, ok := r.reservations[id]
	if !ok {
		return reservationserrors.ErrNotFound
	}
	checkedIn := at.UTC()
	reservation.CheckedInAt = &checkedIn
	return nil
}

func (r *memoryReservationRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}
