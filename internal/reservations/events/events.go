package events

import (
	"context"
	"time"

	"studyrooms/pkg/kafka"
	"studyrooms/pkg/logger"
	"studyrooms/pkg/middleware"
	"studyrooms/pkg/model"
)

const (
	TypeCreated   = "reservation.created"
	TypeCancelled = "reservation.cancelled"
	TypeReaped    = "reservation.reaped"
	TypeCheckedIn = "reservation.checked_in"

	SchemaVersion = "1"
	Source        = "studyrooms"

	// HeaderRoom lets consumers filter by room without decoding the payload.
	HeaderRoom = "room"
)

// ReservationEvent is the payload of every lifecycle message. It never carries
// the verification token.
type ReservationEvent struct {
	Type          string     `json:"type"`
	ReservationID string     `json:"reservationId"`
	ResourceID    string     `json:"resourceId"`
	RoomName      string     `json:"roomName"`
	BookedBy      string     `json:"bookedBy"`
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	CheckedInAt   *time.Time `json:"checkedInAt,omitempty"`
	OccurredAt    time.Time  `json:"occurredAt"`
}

func NewReservationEvent(eventType string, r *model.Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		Type:          eventType,
		ReservationID: r.ID,
		ResourceID:    r.ResourceID,
		RoomName:      r.RoomName,
		BookedBy:      r.OwnerEmail,
		Start:         r.Start,
		End:           r.End,
		CheckedInAt:   r.CheckedInAt,
		OccurredAt:    at.UTC(),
	}
}

// Publisher emits lifecycle events. Publishing is best effort: failures are
// logged by the implementation and never fail the reservation operation.
type Publisher interface {
	Publish(ctx context.Context, eventType string, r *model.Reservation)
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, *model.Reservation) {}

type KafkaPublisher struct {
	producer *kafka.Producer
	log      *logger.Logger
	now      func() time.Time
}

func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		log:      log,
		now:      time.Now,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, r *model.Reservation) {
	at := p.now()
	key := r.ResourceID
	if key == "" {
		key = r.ID
	}

	builder := kafka.NewMessage().
		WithKey(key).
		WithValue(NewReservationEvent(eventType, r, at)).
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithTimestamp(at).
		WithHeader(HeaderRoom, r.RoomName)
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		builder = builder.WithCorrelationID(requestID)
	}

	msg, err := builder.Build()
	if err != nil {
		p.log.Error("Failed to build reservation event", "event_type", eventType, "reservation_id", r.ID, "error", err)
		return
	}

	// The request context may be cancelled as soon as the response is written.
	if err := p.producer.Publish(context.WithoutCancel(ctx), msg); err != nil {
		p.log.Error("Failed to publish reservation event",
			"event_type", eventType,
			"reservation_id", r.ID,
			"error", err,
		)
	}
}
