package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/handlers"
)

func registerPublicAuthRoutes(auth *gin.RouterGroup, h *handlers.AuthHandler, limiter gin.HandlerFunc) {
	auth.POST("/login", limiter, h.Login)
}

// Both routes stay reachable while a password reset is pending.
func registerAuthRoutes(api *gin.RouterGroup, h *handlers.AuthHandler) {
	api.GET("/auth/me", h.Me)
	api.POST("/auth/password", h.ChangePassword)
}
