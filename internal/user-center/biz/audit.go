// Package biz implements the user-center business logic: permission and
// role administration, user management, authentication and the audit log.
package biz

import (
	"context"
	"strconv"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/internal/user-center/store"
	"github.com/kart-io/sentinel-iam/pkg/infra/middleware/common"
	"github.com/kart-io/sentinel-iam/pkg/security/auth"
	storepkg "github.com/kart-io/sentinel-iam/pkg/store"
	"github.com/kart-io/sentinel-iam/pkg/utils/json"
)

const maxAuditDetail = 1024

// AuditFilter selects audit rows. Zero fields match everything.
type AuditFilter struct {
	UserID   uint64
	Action   string
	Resource string
}

// AuditService reads the audit log and records entries for the other
// services.
type AuditService struct {
	store store.IStore
}

// NewAuditService creates a new AuditService.
func NewAuditService(s store.IStore) *AuditService {
	return &AuditService{store: s}
}

// List returns one page of audit rows, newest first.
func (s *AuditService) List(ctx context.Context, filter AuditFilter, page, pageSize int) (int64, []*model.AuditLog, error) {
	filters := map[any]any{}
	if filter.UserID != 0 {
		filters["user_id"] = filter.UserID
	}
	if filter.Action != "" {
		filters["action"] = filter.Action
	}
	if filter.Resource != "" {
		filters["resource"] = filter.Resource
	}
	whr := storepkg.NewWhere(storepkg.WithPage(page, pageSize), storepkg.WithFilter(filters))
	return s.store.AuditLogs().List(ctx, whr)
}

// Record writes a successful audit row. Called inside a transaction it
// commits or rolls back with it.
func (s *AuditService) Record(ctx context.Context, action, resource string, resourceID uint64, detail map[string]any) error {
	return s.store.AuditLogs().Create(ctx, newAuditLog(ctx, action, resource, resourceID, model.AuditStatusSuccess, detail))
}

// RecordFailure writes a failed audit row. Storage errors are logged and
// dropped.
func (s *AuditService) RecordFailure(ctx context.Context, action, resource string, resourceID uint64, detail map[string]any) {
	entry := newAuditLog(ctx, action, resource, resourceID, model.AuditStatusFailed, detail)
	if err := s.store.AuditLogs().Create(ctx, entry); err != nil {
		logger.Warnw("failed to record audit failure",
			"action", action,
			"resource", resource,
			"error", err.Error(),
		)
	}
}

func newAuditLog(ctx context.Context, action, resource string, resourceID uint64, status string, detail map[string]any) *model.AuditLog {
	info := common.GetClientInfo(ctx)
	entry := &model.AuditLog{
		UserID:    ActorID(ctx),
		Action:    action,
		Resource:  resource,
		Status:    status,
		IPAddress: info.IP,
		UserAgent: info.UserAgent,
		RequestID: common.GetRequestID(ctx),
	}
	if resourceID != 0 {
		entry.ResourceID = strconv.FormatUint(resourceID, 10)
	}
	if len(detail) > 0 {
		if b, err := json.Marshal(detail); err == nil {
			entry.Detail = string(b)
			if len(entry.Detail) > maxAuditDetail {
				entry.Detail = entry.Detail[:maxAuditDetail]
			}
		}
	}
	return entry
}

// ActorID returns the numeric id of the principal carried by ctx, or 0 for
// anonymous and system calls.
func ActorID(ctx context.Context) uint64 {
	id, err := strconv.ParseUint(auth.SubjectFromContext(ctx), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
