package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/handlers"
	"github.com/charlesng35/innkeep/internal/middleware"
	"github.com/charlesng35/innkeep/internal/permissions"
)

func registerSecurityRoutes(api *gin.RouterGroup, h *handlers.SecurityHandler, authz middleware.Authorizer) {
	api.GET("/security/audit", middleware.RequirePermission(authz, permissions.ActionRead, permissions.ResourceAudit), h.Audit)
}
