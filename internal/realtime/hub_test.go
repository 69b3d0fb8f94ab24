package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/innkeep/internal/events"
	"github.com/charlesng35/innkeep/internal/models"
)

func TestHotelBookingsStreamRoundTrip(t *testing.T) {
	require.Equal(t, "hotel.12.bookings", StreamHotelBookings(12))

	id, ok := ParseHotelBookingsStream(" Hotel.12.Bookings ")
	require.True(t, ok)
	require.EqualValues(t, 12, id)

	for _, bad := range []string{"hotel.x.bookings", "hotel.0.bookings", "hotel.12", "rooms.12.bookings", ""} {
		_, ok := ParseHotelBookingsStream(bad)
		require.False(t, ok, bad)
	}
}

func TestUniqueStreams(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, uniqueStreams([]string{" A", "a", "", "b"}))
}

func TestHostHelpers(t *testing.T) {
	require.Equal(t, "example.com", hostWithoutPort("https://example.com:8443"))
	require.Equal(t, "example.com", hostWithoutPort("example.com"))
	require.True(t, isLoopback("127.0.0.1"))
	require.True(t, isLoopback("localhost"))
	require.False(t, isLoopback("example.com"))
}

func dial(t *testing.T, hub *Hub, userID uint, streams []string, authorize Authorizer) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(userID, streams, authorize, w, r)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, stream string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.Subscribers(stream) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBookingBoardDeliversToAuthorizedSubscribers(t *testing.T) {
	hub := NewHub()
	allowHotel5 := func(_ context.Context, _ uint, stream string) bool {
		id, ok := ParseHotelBookingsStream(stream)
		return ok && id == 5
	}

	conn := dial(t, hub, 7, []string{StreamHotelBookings(5), StreamHotelBookings(6)}, allowHotel5)
	waitForSubscribers(t, hub, StreamHotelBookings(5), 1)
	require.Zero(t, hub.Subscribers(StreamHotelBookings(6)))

	booking := models.Booking{HotelID: 5, RoomID: 3, ReferenceCode: "abc"}
	booking.ID = 1
	board := NewBookingBoard(hub)
	require.NoError(t, board.Publish(context.Background(), events.NewBookingEvent(events.BookingCreated, booking, 7)))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Stream string `json:"stream"`
		Event  string `json:"event"`
		Data   struct {
			HotelID   uint `json:"hotel_id"`
			BookingID uint `json:"booking_id"`
		} `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "hotel.5.bookings", msg.Stream)
	require.Equal(t, events.BookingCreated, msg.Event)
	require.EqualValues(t, 5, msg.Data.HotelID)
	require.EqualValues(t, 1, msg.Data.BookingID)
}

func TestDeliveryRechecksAuthorizer(t *testing.T) {
	hub := NewHub()
	var granted atomic.Bool
	granted.Store(true)
	authorize := func(context.Context, uint, string) bool { return granted.Load() }

	stream := StreamHotelBookings(4)
	conn := dial(t, hub, 11, []string{stream}, authorize)
	waitForSubscribers(t, hub, stream, 1)

	var msg struct {
		Stream string `json:"stream"`
		Event  string `json:"event"`
	}
	hub.BroadcastStream(stream, Message{Event: events.BookingCreated})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, events.BookingCreated, msg.Event)

	granted.Store(false)
	hub.BroadcastStream(stream, Message{Event: events.BookingUpdated})
	hub.BroadcastToUser(stream, 11, Message{Event: events.BookingDeleted})
	require.Zero(t, hub.Subscribers(stream))

	// The next frame after a ping must be the pong, not the withheld event.
	require.NoError(t, conn.WriteJSON(controlMessage{Action: "ping"}))
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "pong", msg.Event)

	// Restoring access does not resubscribe silently.
	granted.Store(true)
	hub.BroadcastStream(stream, Message{Event: events.BookingUpdated})
	require.NoError(t, conn.WriteJSON(controlMessage{Action: "ping"}))
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "pong", msg.Event)
}

func TestControlMessagesRespectAuthorizer(t *testing.T) {
	hub := NewHub()
	deny6 := func(_ context.Context, _ uint, stream string) bool {
		return stream != StreamHotelBookings(6)
	}

	conn := dial(t, hub, 9, nil, deny6)
	require.NoError(t, conn.WriteJSON(controlMessage{
		Action:  "subscribe",
		Streams: []string{StreamHotelBookings(6), StreamHotelBookings(8)},
	}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack struct {
		Event string   `json:"event"`
		Data  []string `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, "subscribed", ack.Event)
	require.Equal(t, []string{"hotel.8.bookings"}, ack.Data)
	require.Equal(t, 1, hub.Subscribers(StreamHotelBookings(8)))

	require.NoError(t, conn.WriteJSON(controlMessage{Action: "unsubscribe", Streams: []string{StreamHotelBookings(8)}}))
	waitForSubscribers(t, hub, StreamHotelBookings(8), 0)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	conn := dial(t, hub, 3, []string{"hotel.1.bookings"}, nil)
	waitForSubscribers(t, hub, "hotel.1.bookings", 1)

	require.NoError(t, conn.Close())
	waitForSubscribers(t, hub, "hotel.1.bookings", 0)
}
