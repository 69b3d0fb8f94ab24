package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/services"
	"github.com/charlesng35/innkeep/pkg/response"
)

type BookingHandler struct {
	bookings *services.BookingService
}

func NewBookingHandler(bookings *services.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

type bookingStatusRequest struct {
	Status string `json:"status" validate:"required,notblank,max=32"`
}

func bookingListOptions(c *gin.Context, page, perPage int) services.BookingListOptions {
	return services.BookingListOptions{
		Status:   strings.TrimSpace(c.Query("status")),
		From:     timeQuery(c, "from"),
		To:       timeQuery(c, "to"),
		Page:     page,
		PageSize: perPage,
	}
}

// GET /api/bookings
func (h *BookingHandler) List(c *gin.Context) {
	page, perPage := pageQuery(c)
	result, err := h.bookings.List(requestContext(c), bookingListOptions(c, page, perPage))
	if err != nil {
		response.Error(c, err)
		return
	}
	writePage(c, result)
}

// POST /api/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	var input services.CreateBookingInput
	if !bindJSON(c, &input) {
		return
	}
	booking, err := h.bookings.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, booking)
}

// GET /api/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	booking, err := h.bookings.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, booking)
}

// GET /api/booking-references/:reference
func (h *BookingHandler) GetByReference(c *gin.Context) {
	booking, err := h.bookings.GetByReference(requestContext(c), c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, booking)
}

// PUT|PATCH /api/bookings/:id
func (h *BookingHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input services.UpdateBookingInput
	if !bindJSON(c, &input) {
		return
	}
	booking, err := h.bookings.Update(requestContext(c), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, booking)
}

// PATCH /api/bookings/:id/status
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req bookingStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	booking, err := h.bookings.UpdateStatus(requestContext(c), id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, booking)
}

// DELETE /api/bookings/:id
func (h *BookingHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.bookings.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
