package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"studyrooms/internal/reservations/conflict"
	reservationserrors "studyrooms/internal/reservations/errors"
	"studyrooms/internal/reservations/events"
	"studyrooms/internal/reservations/repository"
	"studyrooms/internal/reservations/validator"
	"studyrooms/pkg/clock"
	"studyrooms/pkg/config"
	apperrors "studyrooms/pkg/errors"
	"studyrooms/pkg/metrics"
	"studyrooms/pkg/model"
	"studyrooms/pkg/sanitizer"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("studyrooms.internal.reservations.service")

const (
	lockRetryInterval = 50 * time.Millisecond
	displayTimeLayout = "3:04 PM"

	msgNotOwner     = "You can only delete your own bookings"
	msgLockBusy     = "This time slot is currently being booked by another request. Please try again."
	msgLockExpired  = "The booking could not be confirmed in time. Please try again."
	msgUnavailable  = "Reservation store is unavailable"
	msgNotFoundHint = "Booking"
)

type ReservationService interface {
	Submit(ctx context.Context, req *model.CreateReservationRequest) (*model.Reservation, error)
	Cancel(ctx context.Context, id string, cred *model.Credential) error
	CheckIn(ctx context.Context, id string, cred *model.Credential) (*model.Reservation, error)
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	ListUpcoming(ctx context.Context) ([]*model.Reservation, error)
	Rooms() []string
	Ready(ctx context.Context) error
}

type reservationService struct {
	repo      repository.ReservationRepository
	lock      repository.ResourceLock
	checker   *conflict.Checker
	validator *validator.ReservationValidator
	publisher events.Publisher
	clock     clock.Clock
	metrics   *metrics.Metrics
	cfg       *config.Config
}

func NewReservationService(
	repo repository.ReservationRepository,
	lock repository.ResourceLock,
	reservationValidator *validator.ReservationValidator,
	publisher events.Publisher,
	clk clock.Clock,
	m *metrics.Metrics,
	cfg *config.Config,
) ReservationService {
	if lock == nil {
		lock = repository.NoopResourceLock{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &reservationService{
		repo:      repo,
		lock:      lock,
		checker:   conflict.NewChecker(repo),
		validator: reservationValidator,
		publisher: publisher,
		clock:     clk,
		metrics:   m,
		cfg:       cfg,
	}
}

func (s *reservationService) Submit(ctx context.Context, req *model.CreateReservationRequest) (res *model.Reservation, err error) {
	ctx, span := tracer.Start(ctx, "reservations.Submit")
	defer func() { s.finish(span, "submit", err) }()

	s.sanitize(req)

	if err := s.validator.ValidateEmailPolicy(req.UserEmail); err != nil {
		s.cfg.Log.Warn("Reservation rejected by email policy", "error", err)
		return nil, apperrors.PolicyViolation(fmt.Sprintf("Must use %s email", s.cfg.RequiredEmailSuffix))
	}
	if err := s.validator.ValidateToken(req.VerificationToken); err != nil {
		return nil, toValidationError(err)
	}
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "error", err)
		return nil, toValidationError(err)
	}

	room, _ := s.validator.CanonicalRoom(req.RoomName)
	start, err := validator.ParseStartTime(req.StartTime, s.location())
	if err != nil {
		return nil, toValidationError(err)
	}
	tr := model.NewTimeRange(start, time.Duration(req.Duration)*time.Minute)
	if !tr.End.After(s.clock.Now()) {
		return nil, apperrors.Validation("Reservation must end in the future", map[string]any{"startTime": req.StartTime})
	}

	reservation := &model.Reservation{
		ResourceID:        sanitizer.SanitizeResourceID(room),
		RoomName:          room,
		Summary:           model.SummaryFor(room),
		Start:             tr.Start,
		End:               tr.End,
		OwnerEmail:        req.UserEmail,
		VerificationToken: req.VerificationToken,
		Note:              req.Note,
	}
	if reservation.Note == "" {
		reservation.Note = model.DefaultNote
	}
	span.SetAttributes(
		attribute.String("studyrooms.resource_id", reservation.ResourceID),
		attribute.String("studyrooms.start", reservation.Start.Format(time.RFC3339)),
	)

	if err := s.commit(ctx, reservation, tr); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Reservation created successfully",
		"id", reservation.ID,
		"resource_id", reservation.ResourceID,
		"booked_by", reservation.OwnerEmail,
		"start", reservation.Start,
		"duration", tr.Duration(),
	)
	s.publisher.Publish(ctx, events.TypeCreated, reservation)
	return reservation, nil
}

// commit checks for conflicts and inserts while holding the room lock. Store
// calls share a deadline at lock expiry, and an insert that returns after the
// lock expired is rolled back since another request may hold the room by then.
func (s *reservationService) commit(ctx context.Context, reservation *model.Reservation, tr model.TimeRange) error {
	token, lockedAt, err := s.acquireSlotLock(ctx, reservation.ResourceID)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.releaseSlotLock(ctx, reservation.ResourceID, token); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release room lock", "resource_id", reservation.ResourceID, "error", releaseErr)
		}
	}()

	expiresAt := lockedAt.Add(s.cfg.LockTTL)
	lockCtx, cancel := context.WithDeadline(ctx, expiresAt)
	defer cancel()

	existing, err := s.checker.Check(lockCtx, reservation.ResourceID, reservation.RoomName, tr)
	if err != nil {
		if lockExpired(ctx, lockCtx) {
			return s.lockExpiredError(reservation.ResourceID, "check")
		}
		s.cfg.Log.Error("Conflict check failed", "resource_id", reservation.ResourceID, "error", err)
		return s.storeError("Failed to check room availability", err)
	}
	if existing != nil {
		s.cfg.Log.Info("Reservation conflicts with existing booking",
			"resource_id", reservation.ResourceID,
			"conflict_id", existing.ID,
			"start", reservation.Start,
		)
		return s.conflictError(existing)
	}

	if err := s.repo.Create(lockCtx, reservation); err != nil {
		if lockExpired(ctx, lockCtx) {
			return s.lockExpiredError(reservation.ResourceID, "create")
		}
		s.cfg.Log.Error("Failed to create reservation", "resource_id", reservation.ResourceID, "error", err)
		return s.storeError("Failed to create booking", err)
	}

	if !time.Now().Before(expiresAt) {
		if err := s.repo.Delete(context.WithoutCancel(ctx), reservation.ID); err != nil {
			s.cfg.Log.Error("Failed to roll back reservation created after lock expiry",
				"id", reservation.ID,
				"resource_id", reservation.ResourceID,
				"error", err,
			)
		}
		reservation.ID = ""
		return s.lockExpiredError(reservation.ResourceID, "create")
	}
	return nil
}

func (s *reservationService) Cancel(ctx context.Context, id string, cred *model.Credential) (err error) {
	ctx, span := tracer.Start(ctx, "reservations.Cancel", trace.WithAttributes(attribute.String("studyrooms.reservation_id", id)))
	defer func() { s.finish(span, "cancel", err) }()

	reservation, err := s.authorize(ctx, id, cred)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.cfg.Log.Error("Failed to delete reservation", "id", id, "error", err)
		return s.storeError("Failed to cancel booking", err)
	}

	s.cfg.Log.Info("Reservation cancelled by owner", "id", id, "resource_id", reservation.ResourceID)
	s.publisher.Publish(ctx, events.TypeCancelled, reservation)
	return nil
}

func (s *reservationService) CheckIn(ctx context.Context, id string, cred *model.Credential) (res *model.Reservation, err error) {
	ctx, span := tracer.Start(ctx, "reservations.CheckIn", trace.WithAttributes(attribute.String("studyrooms.reservation_id", id)))
	defer func() { s.finish(span, "checkin", err) }()

	reservation, err := s.authorize(ctx, id, cred)
	if err != nil {
		return nil, err
	}
	if reservation.CheckedIn() {
		return reservation, nil
	}

	now := s.clock.Now()
	window := model.TimeRange{Start: reservation.Start.Add(-s.cfg.CheckInEarly), End: reservation.End}
	if !window.Contains(now) {
		return nil, apperrors.Validation("Check-in is only possible shortly before and during the booking", map[string]any{
			"checkInOpens":  window.Start.In(s.location()).Format(time.RFC3339),
			"checkInCloses": reservation.End.In(s.location()).Format(time.RFC3339),
		})
	}

	if err := s.repo.MarkCheckedIn(ctx, id, now); err != nil {
		s.cfg.Log.Error("Failed to check in reservation", "id", id, "error", err)
		return nil, s.storeError("Failed to check in", err)
	}
	checkedIn := now.UTC()
	reservation.CheckedInAt = &checkedIn

	s.cfg.Log.Info("Reservation checked in", "id", id, "resource_id", reservation.ResourceID)
	s.publisher.Publish(ctx, events.TypeCheckedIn, reservation)
	return reservation, nil
}

func (s *reservationService) GetByID(ctx context.Context, id string) (res *model.Reservation, err error) {
	ctx, span := tracer.Start(ctx, "reservations.GetByID")
	defer func() { s.finish(span, "get", err) }()

	if strings.TrimSpace(id) == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isMissing(err) {
			return nil, apperrors.NotFoundWithID(msgNotFoundHint, id)
		}
		s.cfg.Log.Error("Failed to retrieve reservation", "id", id, "error", err)
		return nil, s.storeError("Failed to retrieve booking", err)
	}
	return reservation, nil
}

func (s *reservationService) ListUpcoming(ctx context.Context) (res []*model.Reservation, err error) {
	ctx, span := tracer.Start(ctx, "reservations.ListUpcoming")
	defer func() { s.finish(span, "list", err) }()

	now := s.clock.Now().In(s.location())
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location())
	window := model.TimeRange{Start: dayStart, End: dayStart.AddDate(0, 0, s.cfg.ListWindowDays)}

	reservations, err := s.repo.List(ctx, window)
	if err != nil {
		s.cfg.Log.Error("Failed to list reservations", "error", err)
		return nil, s.storeError("Failed to retrieve bookings", err)
	}
	return reservations, nil
}

func (s *reservationService) Rooms() []string {
	return s.validator.Rooms()
}

func (s *reservationService) Ready(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnavailable, msgUnavailable, 503)
	}
	return nil
}

// authorize loads the reservation and checks the credential against its
// private metadata. Unknown ids and mismatches both surface as Forbidden so
// callers cannot probe which ids exist.
func (s *reservationService) authorize(ctx context.Context, id string, cred *model.Credential) (*model.Reservation, error) {
	if cred == nil {
		cred = &model.Credential{}
	}
	cred.UserEmail = sanitizer.SanitizeEmail(cred.UserEmail)
	cred.VerificationToken = sanitizer.SanitizeToken(cred.VerificationToken)

	if err := s.validator.ValidateCredential(cred); err != nil {
		return nil, toValidationError(err)
	}
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isMissing(err) {
			s.cfg.Log.Warn("Ownership check on unknown reservation", "id", id)
			return nil, apperrors.Forbidden(msgNotOwner)
		}
		s.cfg.Log.Error("Failed to load reservation for ownership check", "id", id, "error", err)
		return nil, s.storeError("Failed to verify booking owner", err)
	}

	if !owns(reservation, cred) {
		s.cfg.Log.Warn("Ownership check failed", "id", id)
		return nil, apperrors.Forbidden(msgNotOwner)
	}
	return reservation, nil
}

// owns requires every supplied credential part to match. The token is compared
// in constant time. A reservation without stored metadata matches nothing.
func owns(r *model.Reservation, cred *model.Credential) bool {
	if cred.VerificationToken != "" {
		if r.VerificationToken == "" {
			return false
		}
		if subtle.ConstantTimeCompare([]byte(r.VerificationToken), []byte(cred.VerificationToken)) != 1 {
			return false
		}
	}
	if cred.UserEmail != "" {
		if r.OwnerEmail == "" || !strings.EqualFold(r.OwnerEmail, cred.UserEmail) {
			return false
		}
	}
	return !cred.Empty()
}

// acquireSlotLock returns the lock token and the time the winning attempt
// started, which is the earliest the lock can expire from.
func (s *reservationService) acquireSlotLock(ctx context.Context, resourceID string) (string, time.Time, error) {
	started := time.Now()
	deadline := started.Add(s.cfg.LockWait)

	for {
		attempted := time.Now()
		token, err := s.lock.TryAcquire(ctx, resourceID, s.cfg.LockTTL)
		if err == nil {
			s.metrics.ObserveLockWait("acquired", time.Since(started).Seconds())
			return token, attempted, nil
		}
		if !errors.Is(err, reservationserrors.ErrLockHeld) {
			s.metrics.ObserveLockWait("error", time.Since(started).Seconds())
			s.cfg.Log.Error("Failed to acquire room lock", "resource_id", resourceID, "error", err)
			return "", time.Time{}, apperrors.Internal("Failed to acquire booking lock", err)
		}
		if !time.Now().Add(lockRetryInterval).Before(deadline) {
			s.metrics.ObserveLockWait("busy", time.Since(started).Seconds())
			s.cfg.Log.Warn("Room lock is busy", "resource_id", resourceID, "waited", time.Since(started))
			return "", time.Time{}, apperrors.Conflict(msgLockBusy)
		}

		select {
		case <-ctx.Done():
			s.metrics.ObserveLockWait("cancelled", time.Since(started).Seconds())
			return "", time.Time{}, apperrors.Wrap(ctx.Err(), apperrors.CodeTimeout, "Request cancelled while waiting for booking lock", 503)
		case <-time.After(lockRetryInterval):
		}
	}
}

func (s *reservationService) releaseSlotLock(ctx context.Context, resourceID, token string) error {
	// Release even when the request context is already done.
	return s.lock.Release(context.WithoutCancel(ctx), resourceID, token)
}

func (s *reservationService) lockExpiredError(resourceID, stage string) error {
	s.metrics.ObserveLockWait("expired", 0)
	s.cfg.Log.Warn("Room lock expired before the booking was committed",
		"resource_id", resourceID,
		"stage", stage,
		"lock_ttl", s.cfg.LockTTL,
	)
	return apperrors.Wrap(context.DeadlineExceeded, apperrors.CodeTimeout, msgLockExpired, 503)
}

// lockExpired reports whether lockCtx ran out while the request itself is
// still live.
func lockExpired(ctx, lockCtx context.Context) bool {
	return errors.Is(lockCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
}

func (s *reservationService) conflictError(existing *model.Reservation) error {
	loc := s.location()
	from := existing.Start.In(loc).Format(displayTimeLayout)
	to := existing.End.In(loc).Format(displayTimeLayout)
	return apperrors.Conflict(fmt.Sprintf("This room is already booked from %s to %s. Please choose a different time.", from, to)).
		WithDetails(map[string]any{
			"conflictStart": existing.Start.In(loc).Format(time.RFC3339),
			"conflictEnd":   existing.End.In(loc).Format(time.RFC3339),
		})
}

func (s *reservationService) storeError(message string, err error) error {
	return apperrors.Upstream(message, err)
}

func (s *reservationService) sanitize(req *model.CreateReservationRequest) {
	req.RoomName = sanitizer.NormalizeRoomName(req.RoomName)
	req.UserEmail = sanitizer.SanitizeEmail(req.UserEmail)
	req.VerificationToken = sanitizer.SanitizeToken(req.VerificationToken)
	req.Note = sanitizer.SanitizeNote(req.Note)
}

func (s *reservationService) location() *time.Location {
	if s.cfg.Location != nil {
		return s.cfg.Location
	}
	return time.UTC
}

func (s *reservationService) finish(span trace.Span, operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if appErr := apperrors.AsAppError(err); appErr != nil {
			outcome = strings.ToLower(appErr.Code)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.metrics.ObserveOperation(operation, outcome)
	span.End()
}

func isMissing(err error) bool {
	return errors.Is(err, reservationserrors.ErrNotFound) || errors.Is(err, reservationserrors.ErrGone)
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperrors.Validation(verrs[0].Message, verrs.Fields())
	}
	return apperrors.Validation(err.Error(), nil)
}
