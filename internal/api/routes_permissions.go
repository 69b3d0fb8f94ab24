package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/handlers"
)

func registerPermissionRoutes(api *gin.RouterGroup, h *handlers.PermissionHandler) {
	perms := api.Group("/permissions")
	{
		perms.GET("", h.List)
		perms.POST("", h.Create)
		perms.POST("/check", h.Check)
		perms.DELETE("/:id", h.Delete)
	}
}
