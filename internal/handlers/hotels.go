package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/services"
	"github.com/charlesng35/innkeep/pkg/response"
)

type HotelHandler struct {
	hotels   *services.HotelService
	bookings *services.BookingService
}

func NewHotelHandler(hotels *services.HotelService, bookings *services.BookingService) *HotelHandler {
	return &HotelHandler{hotels: hotels, bookings: bookings}
}

// GET /api/hotels
func (h *HotelHandler) List(c *gin.Context) {
	page, perPage := pageQuery(c)
	result, err := h.hotels.List(requestContext(c), services.HotelListOptions{
		City:     strings.TrimSpace(c.Query("city")),
		Search:   strings.TrimSpace(c.Query("q")),
		Page:     page,
		PageSize: perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	writePage(c, result)
}

// POST /api/hotels
func (h *HotelHandler) Create(c *gin.Context) {
	var input services.CreateHotelInput
	if !bindJSON(c, &input) {
		return
	}
	hotel, err := h.hotels.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, hotel)
}

// GET /api/hotels/:id
func (h *HotelHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	hotel, err := h.hotels.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, hotel)
}

// PUT|PATCH /api/hotels/:id
func (h *HotelHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input services.UpdateHotelInput
	if !bindJSON(c, &input) {
		return
	}
	hotel, err := h.hotels.Update(requestContext(c), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, hotel)
}

// DELETE /api/hotels/:id
func (h *HotelHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.hotels.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/hotels/:id/rooms
func (h *HotelHandler) Rooms(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rooms, err := h.hotels.ListRooms(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeList(c, rooms)
}

// GET /api/hotels/:id/bookings
func (h *HotelHandler) Bookings(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	page, perPage := pageQuery(c)
	result, err := h.bookings.ListByHotel(requestContext(c), id, bookingListOptions(c, page, perPage))
	if err != nil {
		response.Error(c, err)
		return
	}
	writePage(c, result)
}

// GET /api/hotels/:id/roles
func (h *HotelHandler) Roles(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	roles, err := h.hotels.ListRoles(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeList(c, roles)
}
