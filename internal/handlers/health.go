package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/monitoring"
	"github.com/charlesng35/innkeep/pkg/response"
)

// Health returns a simple status payload useful for liveness checks.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}

// Ready runs the readiness probes and answers 503 while a required
// dependency is down.
func Ready(health *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := health.Evaluate(requestContext(c))
		if !report.Ready {
			c.JSON(http.StatusServiceUnavailable, response.Response{
				Success: false,
				Data:    report,
				Error:   &response.ErrorInfo{Code: "NOT_READY", Message: "A required dependency is unavailable"},
			})
			return
		}
		response.Success(c, http.StatusOK, report)
	}
}
