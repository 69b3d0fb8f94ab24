package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/handlers"
	"github.com/charlesng35/innkeep/internal/middleware"
	"github.com/charlesng35/innkeep/internal/permissions"
)

func registerAuditRoutes(api *gin.RouterGroup, h *handlers.AuditHandler, authz middleware.Authorizer) {
	api.GET("/audit", middleware.RequirePermission(authz, permissions.ActionRead, permissions.ResourceAudit), h.List)
}
