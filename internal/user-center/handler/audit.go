package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/internal/user-center/biz"
	authmw "github.com/kart-io/sentinel-iam/pkg/infra/middleware/auth"
)

// AuditHandler serves the audit log.
type AuditHandler struct {
	svc *biz.AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(svc *biz.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// ListAuditLogsRequest is the query of the audit log listing.
type ListAuditLogsRequest struct {
	PageRequest
	UserID   uint64 `form:"user_id" json:"user_id"`
	Action   string `form:"action" json:"action" validate:"omitempty,max=64,nowhitespace"`
	Resource string `form:"resource" json:"resource" validate:"omitempty,max=64,nowhitespace"`
}

// List handles listing audit rows, newest first.
func (h *AuditHandler) List(c *gin.Context) {
	var req ListAuditLogsRequest
	if err := bindQuery(c, &req); err != nil {
		authmw.Write(c, err, nil)
		return
	}
	req.complete()

	total, logs, err := h.svc.List(c.Request.Context(), biz.AuditFilter{
		UserID:   req.UserID,
		Action:   req.Action,
		Resource: req.Resource,
	}, req.Page, req.PageSize)
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}

	views := make([]*model.AuditLogView, 0, len(logs))
	for _, l := range logs {
		views = append(views, model.NewAuditLogView(l))
	}
	writePage(c, views, total, req.PageRequest)
}
