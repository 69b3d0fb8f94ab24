package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/services"
	"github.com/charlesng35/innkeep/pkg/response"
)

type UserHandler struct {
	users *services.UserService
	rbac  *services.RBACService
}

func NewUserHandler(users *services.UserService, rbac *services.RBACService) *UserHandler {
	return &UserHandler{users: users, rbac: rbac}
}

type globalRoleRequest struct {
	RoleID *uint `json:"role_id"`
}

type userRoleRequest struct {
	RoleID  uint `json:"role_id" validate:"required"`
	HotelID uint `json:"hotel_id" validate:"required"`
}

type passwordResetRequest struct {
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	page, perPage := pageQuery(c)
	result, err := h.users.List(requestContext(c), services.UserListOptions{
		Search:   strings.TrimSpace(c.Query("q")),
		Page:     page,
		PageSize: perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	writePage(c, result)
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var input services.CreateUserInput
	if !bindJSON(c, &input) {
		return
	}
	user, err := h.users.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	user, err := h.users.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// PATCH /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input services.UpdateUserInput
	if !bindJSON(c, &input) {
		return
	}
	user, err := h.users.Update(requestContext(c), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.users.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/users/:id/password-reset
func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req passwordResetRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.users.ResetPassword(requestContext(c), id, req.Password); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"must_reset_password": true})
}

// PUT /api/users/:id/global-role
//
// A null role_id clears the global role.
func (h *UserHandler) SetGlobalRole(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req globalRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.rbac.SetGlobalRole(requestContext(c), id, req.RoleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// GET /api/users/:id/roles
func (h *UserHandler) Roles(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	roles, err := h.rbac.ListUserRoles(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

// POST /api/users/:id/roles
func (h *UserHandler) AssignRole(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req userRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.rbac.AssignUserRole(requestContext(c), id, req.RoleID, req.HotelID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assigned": true})
}

// DELETE /api/users/:id/roles
func (h *UserHandler) RemoveRole(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req userRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.rbac.RemoveUserRole(requestContext(c), id, req.RoleID, req.HotelID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// GET /api/users/:id/permissions?hotel_id=
func (h *UserHandler) Permissions(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	hotelID, ok := uintQuery(c, "hotel_id")
	if !ok {
		return
	}
	grants, err := h.rbac.EffectivePermissions(requestContext(c), id, hotelID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, grants)
}
