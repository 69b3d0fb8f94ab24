package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/handlers"
)

func registerBookingRoutes(api *gin.RouterGroup, h *handlers.BookingHandler) {
	bookings := api.Group("/bookings")
	{
		bookings.GET("", h.List)
		bookings.POST("", h.Create)
		bookings.GET("/:id", h.Get)
		bookings.PUT("/:id", h.Update)
		bookings.PATCH("/:id", h.Update)
		bookings.PATCH("/:id/status", h.UpdateStatus)
		bookings.DELETE("/:id", h.Delete)
	}
	api.GET("/booking-references/:reference", h.GetByReference)
}
