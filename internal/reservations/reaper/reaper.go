package reaper

import (
	"context"
	"errors"
	"sync"
	"time"

	reservationserrors "studyrooms/internal/reservations/errors"
	"studyrooms/internal/reservations/events"
	"studyrooms/internal/reservations/repository"
	"studyrooms/pkg/clock"
	"studyrooms/pkg/logger"
	"studyrooms/pkg/metrics"
	"studyrooms/pkg/model"
)

const (
	DefaultGracePeriod = 15 * time.Minute
	DefaultInterval    = 5 * time.Minute
	DefaultLookback    = 1 * time.Hour
)

// SweepResult summarizes one pass. It is informational only.
type SweepResult struct {
	Examined  int
	Cancelled int
	Failed    int
}

// Reaper periodically cancels reservations whose holder never showed up:
// the grace period after the start has passed, the reservation has not ended,
// and nobody checked in.
type Reaper struct {
	repo      repository.ReservationRepository
	publisher events.Publisher
	clock     clock.Clock
	log       *logger.Logger
	metrics   *metrics.Metrics

	grace    time.Duration
	interval time.Duration
	lookback time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Reaper)

func WithGracePeriod(d time.Duration) Option {
	return func(r *Reaper) {
		if d > 0 {
			r.grace = d
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Reaper) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLookback sets how far back a sweep looks for started reservations. It
// is raised to the grace period if shorter.
func WithLookback(d time.Duration) Option {
	return func(r *Reaper) {
		if d > 0 {
			r.lookback = d
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(r *Reaper) {
		if c != nil {
			r.clock = c
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(r *Reaper) {
		if p != nil {
			r.publisher = p
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reaper) {
		r.metrics = m
	}
}

func New(repo repository.ReservationRepository, log *logger.Logger, opts ...Option) *Reaper {
	r := &Reaper{
		repo:      repo,
		publisher: events.NoopPublisher{},
		clock:     clock.NewSystem(),
		log:       log,
		grace:     DefaultGracePeriod,
		interval:  DefaultInterval,
		lookback:  DefaultLookback,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.lookback < r.grace {
		r.lookback = r.grace
	}
	return r
}

// Start launches the sweep loop in the background. The first sweep runs
// immediately. Calling Start on a running reaper is a no-op.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	r.log.Info("No-show reaper started",
		"interval", r.interval.String(),
		"grace_period", r.grace.String(),
		"lookback", r.lookback.String(),
	)

	go r.run(ctx, r.done)
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.log.Info("No-show reaper stopped")
}

func (r *Reaper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Sweep(ctx, r.clock.Now())

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx, r.clock.Now())
		}
	}
}

// Sweep performs one pass as of now. Individual failures are logged and
// counted without stopping the pass.
func (r *Reaper) Sweep(ctx context.Context, now time.Time) SweepResult {
	started := time.Now()
	var result SweepResult

	window := model.TimeRange{Start: now.Add(-r.lookback), End: now}
	reservations, err := r.repo.List(ctx, window)
	if err != nil {
		r.log.Error("Failed to list reservations for no-show sweep", "error", err)
		result.Failed++
		r.metrics.ObserveSweep(result.Examined, result.Cancelled, result.Failed, time.Since(started).Seconds())
		return result
	}

	for _, reservation := range reservations {
		// Only reservations that started inside the window are candidates.
		if reservation.Start.Before(window.Start) || reservation.Start.After(now) {
			continue
		}
		result.Examined++

		if !r.isNoShow(reservation, now) {
			continue
		}

		// The listing is a snapshot; the occupant may have checked in since.
		current, err := r.repo.FindByID(ctx, reservation.ID)
		if err != nil {
			if errors.Is(err, reservationserrors.ErrNotFound) || errors.Is(err, reservationserrors.ErrGone) {
				continue
			}
			result.Failed++
			r.log.Error("Failed to re-read no-show reservation",
				"id", reservation.ID,
				"room", reservation.RoomName,
				"error", err,
			)
			continue
		}
		if !r.isNoShow(current, now) {
			r.log.Debug("Reservation checked in during sweep", "id", reservation.ID)
			continue
		}

		if err := r.repo.Delete(ctx, reservation.ID); err != nil {
			result.Failed++
			r.log.Error("Failed to cancel no-show reservation",
				"id", reservation.ID,
				"room", reservation.RoomName,
				"error", err,
			)
			continue
		}

		result.Cancelled++
		r.log.Info("Cancelled no-show reservation",
			"id", reservation.ID,
			"room", reservation.RoomName,
			"booked_by", reservation.OwnerEmail,
			"start", reservation.Start,
		)
		r.publisher.Publish(ctx, events.TypeReaped, reservation)
	}

	r.metrics.ObserveSweep(result.Examined, result.Cancelled, result.Failed, time.Since(started).Seconds())
	if result.Cancelled > 0 || result.Failed > 0 {
		r.log.Info("No-show sweep finished",
			"examined", result.Examined,
			"cancelled", result.Cancelled,
			"failed", result.Failed,
		)
	} else {
		r.log.Debug("No-show sweep finished", "examined", result.Examined)
	}
	return result
}

func (r *Reaper) isNoShow(reservation *model.Reservation, now time.Time) bool {
	if reservation.CheckedIn() {
		return false
	}
	graceDeadline := reservation.Start.Add(r.grace)
	return now.After(graceDeadline) && now.Before(reservation.End)
}
