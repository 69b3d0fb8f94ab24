package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/handlers"
)

func registerRoleRoutes(api *gin.RouterGroup, h *handlers.RoleHandler) {
	roles := api.Group("/roles")
	{
		roles.GET("", h.List)
		roles.POST("", h.Create)
		roles.GET("/:id", h.Get)
		roles.PATCH("/:id", h.Update)
		roles.DELETE("/:id", h.Delete)
		roles.POST("/:id/permissions/:permissionId", h.Grant)
		roles.DELETE("/:id/permissions/:permissionId", h.Revoke)
	}
}
