package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/innkeep/internal/models"
	"github.com/charlesng35/innkeep/pkg/logger"
	"github.com/charlesng35/innkeep/pkg/metrics"
)

// Booking lifecycle event types.
const (
	BookingCreated       = "booking.created"
	BookingUpdated       = "booking.updated"
	BookingStatusChanged = "booking.status"
	BookingDeleted       = "booking.deleted"
)

// BookingEvent is emitted after a booking mutation commits.
type BookingEvent struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	HotelID    uint           `json:"hotel_id"`
	RoomID     uint           `json:"room_id"`
	BookingID  uint           `json:"booking_id"`
	ActorID    uint           `json:"actor_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Booking    models.Booking `json:"booking"`
}

func NewBookingEvent(kind string, booking models.Booking, actorID uint) BookingEvent {
	return BookingEvent{
		ID:         uuid.NewString(),
		Type:       kind,
		HotelID:    booking.HotelID,
		RoomID:     booking.RoomID,
		BookingID:  booking.ID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Booking:    booking,
	}
}

// Publisher delivers booking events to one sink.
type Publisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event BookingEvent) error

func (f PublisherFunc) Publish(ctx context.Context, event BookingEvent) error {
	return f(ctx, event)
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, BookingEvent) error { return nil }

type sink struct {
	name string
	pub  Publisher
}

// Fanout delivers each event to every registered sink. A failing sink is
// logged and counted but never stops the others.
type Fanout struct {
	sinks []sink
	log   *zap.Logger
}

func NewFanout() *Fanout {
	return &Fanout{log: logger.WithModule("events")}
}

// Add registers a named sink; nil publishers are ignored.
func (f *Fanout) Add(name string, pub Publisher) *Fanout {
	if pub != nil {
		f.sinks = append(f.sinks, sink{name: name, pub: pub})
	}
	return f
}

func (f *Fanout) Len() int {
	return len(f.sinks)
}

func (f *Fanout) Publish(ctx context.Context, event BookingEvent) error {
	var errs error
	for _, s := range f.sinks {
		err := s.pub.Publish(ctx, event)
		result := "success"
		if err != nil {
			result = "failure"
			f.log.Warn("booking event delivery failed",
				zap.String("sink", s.name),
				zap.String("type", event.Type),
				zap.Uint("booking_id", event.BookingID),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
		}
		metrics.BookingEvents.WithLabelValues(event.Type, s.name, result).Inc()
	}
	return errs
}
