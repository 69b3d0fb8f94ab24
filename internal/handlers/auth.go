package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/middleware"
	"github.com/charlesng35/innkeep/internal/services"
	"github.com/charlesng35/innkeep/pkg/errors"
	"github.com/charlesng35/innkeep/pkg/response"
)

// AuthHandler serves login, the caller's profile and password changes.
type AuthHandler struct {
	auth  *services.AuthService
	users *services.UserService
}

func NewAuthHandler(auth *services.AuthService, users *services.UserService) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var input services.LoginInput
	if !bindJSON(c, &input) {
		return
	}
	input.IPAddress = c.ClientIP()
	input.UserAgent = c.Request.UserAgent()

	result, err := h.auth.Login(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.Me(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/auth/password
//
// Responds with a fresh token so a caller held by the reset gate can carry on
// without logging in again.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var input services.ChangePasswordInput
	if !bindJSON(c, &input) {
		return
	}
	ctx := requestContext(c)
	if err := h.users.ChangePassword(ctx, input); err != nil {
		response.Error(c, err)
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	result, err := h.auth.TokenFor(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
