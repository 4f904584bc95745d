package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	reservationserrors "studyrooms/internal/reservations/errors"
	"studyrooms/pkg/config"
	"studyrooms/pkg/logger"
	"studyrooms/pkg/metrics"
	"studyrooms/pkg/model"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// Keys of the private extended properties attached to every event.
const (
	PropResourceID        = "resourceId"
	PropRoomName          = "roomName"
	PropBookedBy          = "bookedBy"
	PropVerificationToken = "verificationToken"
	PropCheckedInAt       = "checkedInAt"
)

const (
	bookedByMarker       = "\n\nBooked by: "
	localDateTimeLayout  = "2006-01-02T15:04:05"
	allDayLayout         = "2006-01-02"
	eventStatusCancelled = "cancelled"
	listPageSize         = 250
)

type calendarReservationRepository struct {
	events     *calendar.EventsService
	calendarID string
	loc        *time.Location
	timeout    time.Duration
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// NewCalendarReservationRepository stores reservations as events of a single
// Google Calendar.
func NewCalendarReservationRepository(cfg *config.Config, m *metrics.Metrics) ReservationRepository {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &calendarReservationRepository{
		events:     cfg.Client.Calendar.Events,
		calendarID: cfg.CalendarID,
		loc:        loc,
		timeout:    cfg.CalendarTimeout,
		log:        cfg.Log.Component("calendar_repository"),
		metrics:    m,
	}
}

func (r *calendarReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	created, err := r.events.Insert(r.calendarID, r.toEvent(reservation)).Context(ctx).Do()
	r.observe("insert", started, err)
	if err != nil {
		return translateCalendarError("failed to create reservation", err)
	}

	reservation.ID = created.Id
	return nil
}

func (r *calendarReservationRepository) List(ctx context.Context, window model.TimeRange) ([]*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	call := r.events.List(r.calendarID).
		TimeMin(window.Start.Format(time.RFC3339)).
		TimeMax(window.End.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(listPageSize)

	reservations := []*model.Reservation{}
	started := time.Now()
	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			if item.Status == eventStatusCancelled {
				continue
			}
			reservation, err := r.fromEvent(item)
			if err != nil {
				r.log.Warn("Skipping unreadable calendar event", "event_id", item.Id, "error", err)
				continue
			}
			reservations = append(reservations, reservation)
		}
		return nil
	})
	r.observe("list", started, err)
	if err != nil {
		return nil, translateCalendarError("failed to list reservations", err)
	}

	return reservations, nil
}

func (r *calendarReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	event, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}

	reservation, err := r.fromEvent(event)
	if err != nil {
		return nil, fmt.Errorf("failed to decode reservation %s: %w", id, err)
	}
	return reservation, nil
}

func (r *calendarReservationRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	err := r.events.Delete(r.calendarID, id).Context(ctx).Do()
	r.observe("delete", started, err)
	if err != nil {
		return translateCalendarError("failed to delete reservation", err)
	}
	return nil
}

func (r *calendarReservationRepository) MarkCheckedIn(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	event, err := r.get(ctx, id)
	if err != nil {
		return err
	}

	private := map[string]string{}
	if event.ExtendedProperties != nil {
		for k, v := range event.ExtendedProperties.Private {
			private[k] = v
		}
	}
	private[PropCheckedInAt] = at.UTC().Format(time.RFC3339)

	patch := &calendar.Event{
		ExtendedProperties: &calendar.EventExtendedProperties{Private: private},
	}

	started := time.Now()
	_, err = r.events.Patch(r.calendarID, id, patch).Context(ctx).Do()
	r.observe("patch", started, err)
	if err != nil {
		return translateCalendarError("failed to mark reservation checked in", err)
	}
	return nil
}

func (r *calendarReservationRepository) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	_, err := r.events.List(r.calendarID).MaxResults(1).Context(ctx).Do()
	r.observe("ping", started, err)
	if err != nil {
		return translateCalendarError("calendar is not reachable", err)
	}
	return nil
}

func (r *calendarReservationRepository) get(ctx context.Context, id string) (*calendar.Event, error) {
	started := time.Now()
	event, err := r.events.Get(r.calendarID, id).Context(ctx).Do()
	r.observe("get", started, err)
	if err != nil {
		return nil, translateCalendarError("failed to get reservation", err)
	}
	if event.Status == eventStatusCancelled {
		return nil, reservationserrors.ErrGone
	}
	return event, nil
}

func (r *calendarReservationRepository) observe(operation string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = calendarErrorStatus(err)
	}
	r.metrics.ObserveCalendarCall(operation, status, time.Since(started).Seconds())
}

func (r *calendarReservationRepository) toEvent(reservation *model.Reservation) *calendar.Event {
	private := map[string]string{
		PropResourceID: reservation.ResourceID,
		PropRoomName:   reservation.RoomName,
		PropBookedBy:   reservation.OwnerEmail,
	}
	if reservation.VerificationToken != "" {
		private[PropVerificationToken] = reservation.VerificationToken
	}
	if reservation.CheckedInAt != nil {
		private[PropCheckedInAt] = reservation.CheckedInAt.UTC().Format(time.RFC3339)
	}

	return &calendar.Event{
		Summary:     reservation.Summary,
		Description: reservation.Note + bookedByMarker + reservation.OwnerEmail,
		Start: &calendar.EventDateTime{
			DateTime: reservation.Start.In(r.loc).Format(localDateTimeLayout),
			TimeZone: r.loc.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: reservation.End.In(r.loc).Format(localDateTimeLayout),
			TimeZone: r.loc.String(),
		},
		ExtendedProperties: &calendar.EventExtendedProperties{Private: private},
	}
}

func (r *calendarReservationRepository) fromEvent(event *calendar.Event) (*model.Reservation, error) {
	start, err := parseEventTime(event.Start, r.loc)
	if err != nil {
		return nil, fmt.Errorf("invalid start: %w", err)
	}
	end, err := parseEventTime(event.End, r.loc)
	if err != nil {
		return nil, fmt.Errorf("invalid end: %w", err)
	}

	reservation := &model.Reservation{
		ID:      event.Id,
		Summary: event.Summary,
		Start:   start,
		End:     end,
		Note:    noteFromDescription(event.Description),
	}

	if event.ExtendedProperties != nil {
		private := event.ExtendedProperties.Private
		reservation.ResourceID = private[PropResourceID]
		reservation.RoomName = private[PropRoomName]
		reservation.OwnerEmail = private[PropBookedBy]
		reservation.VerificationToken = private[PropVerificationToken]
		if raw := private[PropCheckedInAt]; raw != "" {
			if at, err := time.Parse(time.RFC3339, raw); err == nil {
				reservation.CheckedInAt = &at
			}
		}
	}

	// Events written before room metadata existed only carry the summary.
	if reservation.RoomName == "" {
		reservation.RoomName = strings.TrimSuffix(event.Summary, model.SummarySuffix)
	}

	return reservation, nil
}

func parseEventTime(edt *calendar.EventDateTime, fallback *time.Location) (time.Time, error) {
	if edt == nil {
		return time.Time{}, errors.New("missing event time")
	}

	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t, nil
		}
		loc := fallback
		if edt.TimeZone != "" {
			if l, err := time.LoadLocation(edt.TimeZone); err == nil {
				loc = l
			}
		}
		return time.ParseInLocation(localDateTimeLayout, edt.DateTime, loc)
	}

	if edt.Date != "" {
		return time.ParseInLocation(allDayLayout, edt.Date, fallback)
	}

	return time.Time{}, errors.New("event time has neither dateTime nor date")
}

func noteFromDescription(description string) string {
	if i := strings.LastIndex(description, bookedByMarker); i >= 0 {
		return description[:i]
	}
	return description
}

func translateCalendarError(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", msg, reservationserrors.ErrTimeout, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return reservationserrors.ErrNotFound
		case http.StatusGone:
			return reservationserrors.ErrGone
		}
	}

	return fmt.Errorf("%s: %w: %v", msg, reservationserrors.ErrUpstream, err)
}

func calendarErrorStatus(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return "not_found"
		case http.StatusGone:
			return "gone"
		}
	}
	return "error"
}
