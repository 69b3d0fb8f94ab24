package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/innkeep/pkg/errors"
	"github.com/charlesng35/innkeep/pkg/response"
	appValidator "github.com/charlesng35/innkeep/pkg/validator"
)

// bindJSON decodes the payload into dest. Field rules are left to the
// services so every caller gets the same validation.
func bindJSON[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}
	return true
}

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// Used for payloads that never reach a service as-is.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if !bindJSON(c, dest) {
		return false
	}
	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.ErrValidation.WithInternal(err))
		return false
	}
	return true
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
