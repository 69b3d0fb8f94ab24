package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/handlers"
	"github.com/charlesng35/innkeep/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, health *monitoring.HealthManager) {
	r.GET("/health", handlers.Health())
	r.GET("/health/ready", handlers.Ready(health))

	api := r.Group("/api")
	api.GET("/health", handlers.Health())
}
