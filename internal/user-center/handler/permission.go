package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/internal/user-center/biz"
	authmw "github.com/kart-io/sentinel-iam/pkg/infra/middleware/auth"
)

// PermissionHandler handles permission HTTP requests.
type PermissionHandler struct {
	svc *biz.PermissionService
}

// NewPermissionHandler creates a new PermissionHandler.
func NewPermissionHandler(svc *biz.PermissionService) *PermissionHandler {
	return &PermissionHandler{svc: svc}
}

// CreatePermissionRequest is the request body for creating a permission.
type CreatePermissionRequest struct {
	Name        string `json:"name" validate:"required,max=64,trimmed"`
	Description string `json:"description" validate:"omitempty,max=255"`
	Resource    string `json:"resource" validate:"required,max=64,permission"`
	Action      string `json:"action" validate:"required,max=64,permission"`
}

// UpdatePermissionRequest is the request body for updating a permission.
// Empty fields keep their value.
type UpdatePermissionRequest struct {
	Name        string `json:"name" validate:"omitempty,max=64,trimmed"`
	Description string `json:"description" validate:"omitempty,max=255"`
	Resource    string `json:"resource" validate:"omitempty,max=64,permission"`
	Action      string `json:"action" validate:"omitempty,max=64,permission"`
}

// List handles listing permissions.
func (h *PermissionHandler) List(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	total, list, err := h.svc.ListPermissions(c.Request.Context(), page.Page, page.PageSize)
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}
	writePage(c, list, total, page)
}

// Get handles retrieving a permission by id.
func (h *PermissionHandler) Get(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	p, err := h.svc.GetPermission(c.Request.Context(), id)
	authmw.Write(c, err, p)
}

// GetByName handles retrieving a permission by name.
func (h *PermissionHandler) GetByName(c *gin.Context) {
	name, err := bindName(c, "required,max=64,trimmed")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	p, err := h.svc.GetPermissionByName(c.Request.Context(), name)
	authmw.Write(c, err, p)
}

// Create handles permission creation.
func (h *PermissionHandler) Create(c *gin.Context) {
	var req CreatePermissionRequest
	if err := bindJSON(c, &req); err != nil {
		authmw.Write(c, err, nil)
		return
	}

	p := &model.Permission{
		Name:        req.Name,
		Description: req.Description,
		Resource:    req.Resource,
		Action:      req.Action,
	}
	if err := h.svc.CreatePermission(c.Request.Context(), p); err != nil {
		authmw.Write(c, err, nil)
		return
	}
	authmw.Write(c, nil, p)
}

// Update handles permission updates.
func (h *PermissionHandler) Update(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}
	var req UpdatePermissionRequest
	if err := bindJSON(c, &req); err != nil {
		authmw.Write(c, err, nil)
		return
	}

	p, err := h.svc.UpdatePermission(c.Request.Context(), id, req.Name, req.Description, req.Resource, req.Action)
	authmw.Write(c, err, p)
}

// Delete handles permission deletion.
func (h *PermissionHandler) Delete(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	if err := h.svc.DeletePermission(c.Request.Context(), id); err != nil {
		authmw.Write(c, err, nil)
		return
	}
	authmw.Write(c, nil, gin.H{"id": id})
}
