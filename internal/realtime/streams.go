package realtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charlesng35/innkeep/internal/events"
)

// Stream name helpers. Hotel booking streams look like "hotel.12.bookings".
const (
	hotelStreamPrefix  = "hotel."
	bookingsStreamTail = ".bookings"
)

func StreamHotelBookings(hotelID uint) string {
	return fmt.Sprintf("%s%d%s", hotelStreamPrefix, hotelID, bookingsStreamTail)
}

// ParseHotelBookingsStream extracts the hotel id from a booking stream name.
func ParseHotelBookingsStream(stream string) (uint, bool) {
	stream = normalizeStream(stream)
	if !strings.HasPrefix(stream, hotelStreamPrefix) || !strings.HasSuffix(stream, bookingsStreamTail) {
		return 0, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(stream, hotelStreamPrefix), bookingsStreamTail)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// BookingBoard publishes booking events onto their hotel's stream.
type BookingBoard struct {
	hub *Hub
}

func NewBookingBoard(hub *Hub) *BookingBoard {
	return &BookingBoard{hub: hub}
}

func (b *BookingBoard) Publish(_ context.Context, event events.BookingEvent) error {
	if b == nil || b.hub == nil {
		return nil
	}
	b.hub.BroadcastStream(StreamHotelBookings(event.HotelID), Message{
		Event: event.Type,
		Data:  event,
	})
	return nil
}

var _ events.Publisher = (*BookingBoard)(nil)
