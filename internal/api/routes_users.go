package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/handlers"
)

func registerUserRoutes(api *gin.RouterGroup, h *handlers.UserHandler) {
	users := api.Group("/users")
	{
		users.GET("", h.List)
		users.POST("", h.Create)
		users.GET("/:id", h.Get)
		users.PATCH("/:id", h.Update)
		users.DELETE("/:id", h.Delete)
		users.POST("/:id/password-reset", h.ResetPassword)
		users.PUT("/:id/global-role", h.SetGlobalRole)
		users.GET("/:id/roles", h.Roles)
		users.POST("/:id/roles", h.AssignRole)
		users.DELETE("/:id/roles", h.RemoveRole)
		users.GET("/:id/permissions", h.Permissions)
	}
}
