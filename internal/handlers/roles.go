package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/models"
	"github.com/charlesng35/innkeep/internal/services"
	"github.com/charlesng35/innkeep/pkg/response"
)

type RoleHandler struct {
	rbac *services.RBACService
}

func NewRoleHandler(rbac *services.RBACService) *RoleHandler {
	return &RoleHandler{rbac: rbac}
}

type roleDetail struct {
	*models.Role
	Permissions []models.Permission `json:"permissions"`
}

// GET /api/roles?hotel_id=
//
// Without hotel_id the global roles are listed.
func (h *RoleHandler) List(c *gin.Context) {
	hotelID, ok := uintQuery(c, "hotel_id")
	if !ok {
		return
	}
	roles, err := h.rbac.ListRoles(requestContext(c), hotelID)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeList(c, roles)
}

// POST /api/roles
func (h *RoleHandler) Create(c *gin.Context) {
	var input services.CreateRoleInput
	if !bindJSON(c, &input) {
		return
	}
	role, err := h.rbac.CreateRole(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, role)
}

// GET /api/roles/:id
func (h *RoleHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	role, perms, err := h.rbac.GetRole(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if perms == nil {
		perms = []models.Permission{}
	}
	response.Success(c, http.StatusOK, roleDetail{Role: role, Permissions: perms})
}

// PATCH /api/roles/:id
func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input services.UpdateRoleInput
	if !bindJSON(c, &input) {
		return
	}
	role, err := h.rbac.UpdateRole(requestContext(c), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// DELETE /api/roles/:id
func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.rbac.DeleteRole(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/roles/:id/permissions/:permissionId
func (h *RoleHandler) Grant(c *gin.Context) {
	roleID, ok := idParam(c, "id")
	if !ok {
		return
	}
	permID, ok := idParam(c, "permissionId")
	if !ok {
		return
	}
	if err := h.rbac.GrantPermission(requestContext(c), roleID, permID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"granted": true})
}

// DELETE /api/roles/:id/permissions/:permissionId
func (h *RoleHandler) Revoke(c *gin.Context) {
	roleID, ok := idParam(c, "id")
	if !ok {
		return
	}
	permID, ok := idParam(c, "permissionId")
	if !ok {
		return
	}
	if err := h.rbac.RevokePermission(requestContext(c), roleID, permID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}
