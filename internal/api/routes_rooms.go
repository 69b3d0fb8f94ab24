package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/handlers"
)

func registerRoomRoutes(api *gin.RouterGroup, h *handlers.RoomHandler) {
	rooms := api.Group("/rooms")
	{
		rooms.GET("", h.List)
		rooms.GET("/:id", h.Get)
		rooms.PUT("/:id", h.Update)
		rooms.PATCH("/:id", h.Update)
		rooms.DELETE("/:id", h.Delete)
		rooms.GET("/:id/bookings", h.Bookings)
	}
}
