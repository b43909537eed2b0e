package store

import (
	"context"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/store"
)

// AuditLogStore persists audit rows.
type AuditLogStore interface {
	Create(ctx context.Context, log *model.AuditLog) error
	// List returns rows newest first.
	List(ctx context.Context, whr *store.Options) (int64, []*model.AuditLog, error)
}

type auditLogs struct {
	ds *datastore
}

func newAuditLogs(ds *datastore) *auditLogs {
	return &auditLogs{ds}
}

// Create inserts an audit row.
func (s *auditLogs) Create(ctx context.Context, log *model.AuditLog) error {
	err := s.ds.DB(ctx).Create(log).Error
	return translate(err, nil, nil)
}

func (s *auditLogs) List(ctx context.Context, whr *store.Options) (int64, []*model.AuditLog, error) {
	var count int64
	if err := whr.Count(s.ds.DB(ctx).Model(&model.AuditLog{})).Count(&count).Error; err != nil {
		return 0, nil, errors.ErrDatabase.WithCause(err)
	}

	var list []*model.AuditLog
	if err := whr.Where(s.ds.DB(ctx).Order("id DESC")).Find(&list).Error; err != nil {
		return 0, nil, errors.ErrDatabase.WithCause(err)
	}
	return count, list, nil
}
