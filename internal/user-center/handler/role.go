package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/internal/user-center/biz"
	authmw "github.com/kart-io/sentinel-iam/pkg/infra/middleware/auth"
)

// RoleHandler handles role HTTP requests.
type RoleHandler struct {
	svc *biz.PermissionService
}

// NewRoleHandler creates a new RoleHandler.
func NewRoleHandler(svc *biz.PermissionService) *RoleHandler {
	return &RoleHandler{svc: svc}
}

// CreateRoleRequest is the request body for creating a role.
type CreateRoleRequest struct {
	Name        string `json:"name" validate:"required,rolename,trimmed"`
	Description string `json:"description" validate:"omitempty,max=255"`
}

// UpdateRoleRequest is the request body for updating a role. Empty fields
// keep their value.
type UpdateRoleRequest struct {
	Name        string `json:"name" validate:"omitempty,rolename,trimmed"`
	Description string `json:"description" validate:"omitempty,max=255"`
}

// AssignPermissionRequest is the request body for granting a permission.
type AssignPermissionRequest struct {
	PermissionID uint64 `json:"permission_id" validate:"required,min=1"`
}

// SetPermissionsRequest is the request body for replacing the permission
// set of a role.
type SetPermissionsRequest struct {
	PermissionIDs []uint64 `json:"permission_ids" validate:"required,min=1"`
}

// List handles listing roles.
func (h *RoleHandler) List(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	total, list, err := h.svc.ListRoles(c.Request.Context(), page.Page, page.PageSize)
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}
	writePage(c, list, total, page)
}

// Get handles retrieving a role by id.
func (h *RoleHandler) Get(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	role, err := h.svc.GetRole(c.Request.Context(), id)
	authmw.Write(c, err, role)
}

// GetByName handles retrieving a role by name.
func (h *RoleHandler) GetByName(c *gin.Context) {
	name, err := bindName(c, "required,rolename,trimmed")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	role, err := h.svc.GetRoleByName(c.Request.Context(), name)
	authmw.Write(c, err, role)
}

// Create handles role creation.
func (h *RoleHandler) Create(c *gin.Context) {
	var req CreateRoleRequest
	if err := bindJSON(c, &req); err != nil {
		authmw.Write(c, err, nil)
		return
	}

	role := &model.Role{Name: req.Name, Description: req.Description}
	if err := h.svc.CreateRole(c.Request.Context(), role); err != nil {
		authmw.Write(c, err, nil)
		return
	}
	authmw.Write(c, nil, role)
}

// Update handles role updates.
func (h *RoleHandler) Update(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}
	var req UpdateRoleRequest
	if err := bindJSON(c, &req); err != nil {
		authmw.Write(c, err, nil)
		return
	}

	role, err := h.svc.UpdateRole(c.Request.Context(), id, req.Name, req.Description)
	authmw.Write(c, err, role)
}

// Delete handles role deletion.
func (h *RoleHandler) Delete(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	if err := h.svc.DeleteRole(c.Request.Context(), id); err != nil {
		authmw.Write(c, err, nil)
		return
	}
	authmw.Write(c, nil, gin.H{"id": id})
}

// Permissions lists the permissions granted to a role.
func (h *RoleHandler) Permissions(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	perms, err := h.svc.GetRolePermissions(c.Request.Context(), id)
	authmw.Write(c, err, perms)
}

// AssignPermission grants a permission to a role.
func (h *RoleHandler) AssignPermission(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}
	var req AssignPermissionRequest
	if err := bindJSON(c, &req); err != nil {
		authmw.Write(c, err, nil)
		return
	}

	ctx := c.Request.Context()
	if err := h.svc.AssignPermissionToRole(ctx, id, req.PermissionID); err != nil {
		authmw.Write(c, err, nil)
		return
	}
	perms, err := h.svc.GetRolePermissions(ctx, id)
	authmw.Write(c, err, perms)
}

// SetPermissions replaces the permission set of a role.
func (h *RoleHandler) SetPermissions(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}
	var req SetPermissionsRequest
	if err := bindJSON(c, &req); err != nil {
		authmw.Write(c, err, nil)
		return
	}

	perms, err := h.svc.SetRolePermissions(c.Request.Context(), id, req.PermissionIDs)
	authmw.Write(c, err, perms)
}

// RemovePermission revokes a permission from a role.
func (h *RoleHandler) RemovePermission(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}
	permissionID, err := paramID(c, "permissionId")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	if err := h.svc.RemovePermissionFromRole(c.Request.Context(), id, permissionID); err != nil {
		authmw.Write(c, err, nil)
		return
	}
	authmw.Write(c, nil, gin.H{"role_id": id, "permission_id": permissionID})
}
