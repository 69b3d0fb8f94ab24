package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/security"
	"github.com/charlesng35/innkeep/pkg/response"
)

type SecurityHandler struct {
	checker *security.Checker
}

func NewSecurityHandler(checker *security.Checker) *SecurityHandler {
	return &SecurityHandler{checker: checker}
}

// GET /api/security/audit
func (h *SecurityHandler) Audit(c *gin.Context) {
	response.Success(c, http.StatusOK, h.checker.Run(requestContext(c)))
}
