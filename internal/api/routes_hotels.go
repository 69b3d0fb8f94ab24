package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/handlers"
)

func registerHotelRoutes(api *gin.RouterGroup, h *handlers.HotelHandler, rooms *handlers.RoomHandler) {
	hotels := api.Group("/hotels")
	{
		hotels.GET("", h.List)
		hotels.POST("", h.Create)
		hotels.GET("/:id", h.Get)
		hotels.PUT("/:id", h.Update)
		hotels.PATCH("/:id", h.Update)
		hotels.DELETE("/:id", h.Delete)
		hotels.GET("/:id/rooms", h.Rooms)
		hotels.POST("/:id/rooms", rooms.Create)
		hotels.GET("/:id/bookings", h.Bookings)
		hotels.GET("/:id/roles", h.Roles)
	}
}
