package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/services"
	"github.com/charlesng35/innkeep/pkg/response"
)

type RoomHandler struct {
	rooms    *services.RoomService
	bookings *services.BookingService
}

func NewRoomHandler(rooms *services.RoomService, bookings *services.BookingService) *RoomHandler {
	return &RoomHandler{rooms: rooms, bookings: bookings}
}

// GET /api/rooms
//
// Without hotel_id the list spans every hotel the caller can read.
func (h *RoomHandler) List(c *gin.Context) {
	hotelID, ok := uintQuery(c, "hotel_id")
	if !ok {
		return
	}
	page, perPage := pageQuery(c)
	result, err := h.rooms.List(requestContext(c), services.RoomListOptions{
		HotelID:   hotelID,
		Orphaned:  c.Query("orphaned") == "true",
		Available: boolQuery(c, "available"),
		Type:      strings.TrimSpace(c.Query("type")),
		Page:      page,
		PageSize:  perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	writePage(c, result)
}

// POST /api/hotels/:id/rooms
func (h *RoomHandler) Create(c *gin.Context) {
	hotelID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input services.CreateRoomInput
	if !bindJSON(c, &input) {
		return
	}
	room, err := h.rooms.Create(requestContext(c), hotelID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, room)
}

// GET /api/rooms/:id
func (h *RoomHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	room, err := h.rooms.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, room)
}

// PUT|PATCH /api/rooms/:id
func (h *RoomHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input services.UpdateRoomInput
	if !bindJSON(c, &input) {
		return
	}
	room, err := h.rooms.Update(requestContext(c), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, room)
}

// DELETE /api/rooms/:id
func (h *RoomHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.rooms.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/rooms/:id/bookings
func (h *RoomHandler) Bookings(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	page, perPage := pageQuery(c)
	result, err := h.bookings.ListByRoom(requestContext(c), id, bookingListOptions(c, page, perPage))
	if err != nil {
		response.Error(c, err)
		return
	}
	writePage(c, result)
}
