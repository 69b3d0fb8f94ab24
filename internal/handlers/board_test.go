package handlers_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/innkeep/internal/handlers/testutil"
	"github.com/charlesng35/innkeep/internal/models"
	"github.com/charlesng35/innkeep/internal/permissions"
	"github.com/charlesng35/innkeep/internal/realtime"
)

func dialBoard(t *testing.T, server *httptest.Server, token string, streams ...string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	if len(streams) > 0 {
		url += "&streams=" + strings.Join(streams, ",")
	}
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestBookingBoardStreamsCommittedBookings(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.TokenFor(env.CreateSuperadmin("root"))
	hotel := createHotel(t, env, token, "Seaside")
	room := createRoom(t, env, token, hotel.ID, "101", 80)

	server := httptest.NewServer(env.Router)
	defer server.Close()

	stream := realtime.StreamHotelBookings(hotel.ID)
	conn, _, err := dialBoard(t, server, token, stream)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.Hub.Subscribers(stream) == 1 }, 2*time.Second, 10*time.Millisecond)

	var booking models.Booking
	w := env.Request(http.MethodPost, "/api/bookings", bookingPayload(hotel.ID, room.ID, time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC), 2), token)
	testutil.MustSucceed(t, w, http.StatusCreated, &booking)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Stream string `json:"stream"`
		Event  string `json:"event"`
		Data   struct {
			HotelID   uint `json:"hotel_id"`
			BookingID uint `json:"booking_id"`
		} `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, stream, msg.Stream)
	require.Equal(t, hotel.ID, msg.Data.HotelID)
	require.Equal(t, booking.ID, msg.Data.BookingID)
}

func TestBookingBoardRejectsBadTokens(t *testing.T) {
	env := testutil.NewEnv(t)
	server := httptest.NewServer(env.Router)
	defer server.Close()

	_, resp, err := dialBoard(t, server, "garbage")
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	pending := env.CreateUser("pending")
	pending.MustResetPassword = true
	_, resp, err = dialBoard(t, server, env.TokenFor(pending))
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBookingBoardIgnoresForeignHotels(t *testing.T) {
	env := testutil.NewEnv(t)
	rootToken := env.TokenFor(env.CreateSuperadmin("root"))
	hotel := createHotel(t, env, rootToken, "Seaside")

	server := httptest.NewServer(env.Router)
	defer server.Close()

	outsider := env.CreateUser("outsider")
	conn, _, err := dialBoard(t, server, env.TokenFor(outsider), realtime.StreamHotelBookings(hotel.ID))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var pong struct {
		Event string `json:"event"`
	}
	require.NoError(t, conn.ReadJSON(&pong))
	require.Equal(t, "pong", pong.Event)
	require.Zero(t, env.Hub.Subscribers(fmt.Sprintf("hotel.%d.bookings", hotel.ID)))
}

func TestBookingBoardStopsAfterRoleRemoval(t *testing.T) {
	env := testutil.NewEnv(t)
	rootToken := env.TokenFor(env.CreateSuperadmin("root"))
	hotel := createHotel(t, env, rootToken, "Seaside")
	room := createRoom(t, env, rootToken, hotel.ID, "101", 80)

	desk := env.CreateUser("desk")
	role := grantHotelRole(t, env, rootToken, desk, hotel.ID,
		[2]string{permissions.ActionRead, permissions.ResourceBooking},
	)

	server := httptest.NewServer(env.Router)
	defer server.Close()

	stream := realtime.StreamHotelBookings(hotel.ID)
	conn, _, err := dialBoard(t, server, env.TokenFor(desk), stream)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.Hub.Subscribers(stream) == 1 }, 2*time.Second, 10*time.Millisecond)

	var msg struct {
		Event string `json:"event"`
	}
	checkIn := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	w := env.Request(http.MethodPost, "/api/bookings", bookingPayload(hotel.ID, room.ID, checkIn, 1), rootToken)
	testutil.MustSucceed[models.Booking](t, w, http.StatusCreated, nil)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "booking.created", msg.Event)

	w = env.Request(http.MethodDelete, fmt.Sprintf("/api/users/%d/roles", desk.ID), map[string]any{
		"role_id":  role.ID,
		"hotel_id": hotel.ID,
	}, rootToken)
	testutil.MustSucceed[map[string]bool](t, w, http.StatusOK, nil)

	w = env.Request(http.MethodPost, "/api/bookings", bookingPayload(hotel.ID, room.ID, checkIn.AddDate(0, 0, 3), 1), rootToken)
	testutil.MustSucceed[models.Booking](t, w, http.StatusCreated, nil)
	require.Zero(t, env.Hub.Subscribers(stream))

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "pong", msg.Event)
}
