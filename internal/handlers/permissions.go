package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/services"
	"github.com/charlesng35/innkeep/pkg/response"
)

type PermissionHandler struct {
	rbac *services.RBACService
}

func NewPermissionHandler(rbac *services.RBACService) *PermissionHandler {
	return &PermissionHandler{rbac: rbac}
}

// GET /api/permissions?resource=
func (h *PermissionHandler) List(c *gin.Context) {
	perms, err := h.rbac.ListPermissions(requestContext(c), strings.TrimSpace(c.Query("resource")))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeList(c, perms)
}

// POST /api/permissions
func (h *PermissionHandler) Create(c *gin.Context) {
	var input services.CreatePermissionInput
	if !bindJSON(c, &input) {
		return
	}
	perm, err := h.rbac.CreatePermission(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, perm)
}

// DELETE /api/permissions/:id
func (h *PermissionHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.rbac.DeletePermission(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/permissions/check
func (h *PermissionHandler) Check(c *gin.Context) {
	var check services.PermissionCheck
	if !bindJSON(c, &check) {
		return
	}
	decision, err := h.rbac.CheckPermission(requestContext(c), check)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, decision)
}
