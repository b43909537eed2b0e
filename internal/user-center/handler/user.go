package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-iam/internal/user-center/biz"
	authmw "github.com/kart-io/sentinel-iam/pkg/infra/middleware/auth"
)

// UserHandler handles user HTTP requests.
type UserHandler struct {
	users *biz.UserService
	perms *biz.PermissionService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *biz.UserService, perms *biz.PermissionService) *UserHandler {
	return &UserHandler{users: users, perms: perms}
}

// CreateUserRequest is the request body for creating a user.
type CreateUserRequest struct {
	Email     string   `json:"email" validate:"required,email,max=128"`
	Password  string   `json:"password" validate:"required,password,max=72"`
	Mobile    string   `json:"mobile" validate:"omitempty,max=20,nowhitespace"`
	Role      string   `json:"role" validate:"omitempty,oneof=user custom admin"`
	ProfileID string   `json:"profile_id" validate:"omitempty,max=64"`
	RoleIDs   []uint64 `json:"role_ids" validate:"omitempty,dive,min=1"`
}

// UpdateUserRoleRequest is the request body for changing the primary role.
type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user custom admin"`
}

// AssignRoleRequest is the request body for assigning a role to a user.
type AssignRoleRequest struct {
	RoleID uint64 `json:"role_id" validate:"required,min=1"`
}

// CheckPermissionRequest is the query of a permission check.
type CheckPermissionRequest struct {
	Resource string `form:"resource" json:"resource" validate:"required,max=64,permission"`
	Action   string `form:"action" json:"action" validate:"required,max=64,permission"`
}

// Create handles user creation.
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := bindJSON(c, &req); err != nil {
		authmw.Write(c, err, nil)
		return
	}

	v, err := h.users.Create(c.Request.Context(), &biz.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		Mobile:    req.Mobile,
		Role:      req.Role,
		ProfileID: req.ProfileID,
		RoleIDs:   req.RoleIDs,
	})
	authmw.Write(c, err, v)
}

// List handles listing users.
func (h *UserHandler) List(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	total, list, err := h.users.List(c.Request.Context(), page.Page, page.PageSize)
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}
	writePage(c, list, total, page)
}

// Get handles retrieving a user.
func (h *UserHandler) Get(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	v, err := h.users.Get(c.Request.Context(), id)
	authmw.Write(c, err, v)
}

// UpdateRole handles changing the primary role of a user.
func (h *UserHandler) UpdateRole(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}
	var req UpdateUserRoleRequest
	if err := bindJSON(c, &req); err != nil {
		authmw.Write(c, err, nil)
		return
	}

	v, err := h.users.UpdateRole(c.Request.Context(), id, req.Role)
	authmw.Write(c, err, v)
}

// Delete handles user deletion.
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		authmw.Write(c, err, nil)
		return
	}
	authmw.Write(c, nil, gin.H{"id": id})
}

// Roles lists the roles assigned to a user.
func (h *UserHandler) Roles(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	roles, err := h.perms.GetUserRoles(c.Request.Context(), id)
	authmw.Write(c, err, roles)
}

// AssignRole assigns a role to a user on behalf of the caller.
func (h *UserHandler) AssignRole(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}
	var req AssignRoleRequest
	if err := bindJSON(c, &req); err != nil {
		authmw.Write(c, err, nil)
		return
	}

	ctx := c.Request.Context()
	if err := h.perms.AssignRoleToUser(ctx, id, req.RoleID, biz.ActorID(ctx)); err != nil {
		authmw.Write(c, err, nil)
		return
	}

	roles, err := h.perms.GetUserRoles(ctx, id)
	authmw.Write(c, err, roles)
}

// RemoveRole removes a role from a user.
func (h *UserHandler) RemoveRole(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}
	roleID, err := paramID(c, "roleId")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	if err := h.perms.RemoveRoleFromUser(c.Request.Context(), id, roleID); err != nil {
		authmw.Write(c, err, nil)
		return
	}
	authmw.Write(c, nil, gin.H{"user_id": id, "role_id": roleID})
}

// Permissions lists the effective permissions of a user.
func (h *UserHandler) Permissions(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	perms, err := h.perms.GetUserPermissions(c.Request.Context(), id)
	authmw.Write(c, err, perms)
}

// HasPermission checks one resource:action pair for a user.
func (h *UserHandler) HasPermission(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}
	var req CheckPermissionRequest
	if err := bindQuery(c, &req); err != nil {
		authmw.Write(c, err, nil)
		return
	}

	ok, err := h.perms.HasPermission(c.Request.Context(), id, req.Resource, req.Action)
	authmw.Write(c, err, gin.H{
		"user_id":  id,
		"resource": req.Resource,
		"action":   req.Action,
		"allowed":  ok,
	})
}
