package store

import (
	"context"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/store"
)

// PermissionStore defines the permission storage interface.
type PermissionStore interface {
	Create(ctx context.Context, p *model.Permission) error
	Update(ctx context.Context, p *model.Permission) error
	Delete(ctx context.Context, id uint64) error
	Get(ctx context.Context, id uint64) (*model.Permission, error)
	GetByName(ctx context.Context, name string) (*model.Permission, error)
	GetByResourceAction(ctx context.Context, resource, action string) (*model.Permission, error)
	ListByIDs(ctx context.Context, ids []uint64) ([]*model.Permission, error)
	List(ctx context.Context, whr *store.Options) (int64, []*model.Permission, error)
}

type permissions struct {
	ds *datastore
}

func newPermissions(ds *datastore) *permissions {
	return &permissions{ds}
}

// Create creates a new permission.
func (s *permissions) Create(ctx context.Context, p *model.Permission) error {
	err := s.ds.DB(ctx).Create(p).Error
	return translate(err, nil, errors.ErrPermissionAlreadyExists)
}

// Update saves every column of p.
func (s *permissions) Update(ctx context.Context, p *model.Permission) error {
	err := s.ds.DB(ctx).Save(p).Error
	return translate(err, nil, errors.ErrPermissionAlreadyExists)
}

// Delete deletes a permission by id.
func (s *permissions) Delete(ctx context.Context, id uint64) error {
	result := s.ds.DB(ctx).Delete(&model.Permission{}, id)
	if result.Error != nil {
		return errors.ErrDatabase.WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrPermissionNotFound
	}
	return nil
}

// Get retrieves a permission by id.
func (s *permissions) Get(ctx context.Context, id uint64) (*model.Permission, error) {
	var p model.Permission
	if err := s.ds.DB(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err, errors.ErrPermissionNotFound, nil)
	}
	return &p, nil
}

// GetByName retrieves the oldest permission with the given display name.
func (s *permissions) GetByName(ctx context.Context, name string) (*model.Permission, error) {
	var p model.Permission
	if err := s.ds.DB(ctx).Where("name = ?", name).Order("id").First(&p).Error; err != nil {
		return nil, translate(err, errors.ErrPermissionNotFound, nil)
	}
	return &p, nil
}

// GetByResourceAction retrieves the permission for a resource/action pair.
func (s *permissions) GetByResourceAction(ctx context.Context, resource, action string) (*model.Permission, error) {
	var p model.Permission
	err := s.ds.DB(ctx).Where("resource = ? AND action = ?", resource, action).First(&p).Error
	if err != nil {
		return nil, translate(err, errors.ErrPermissionNotFound, nil)
	}
	return &p, nil
}

// ListByIDs returns the permissions among ids that exist, ordered by id.
func (s *permissions) ListByIDs(ctx context.Context, ids []uint64) ([]*model.Permission, error) {
	var list []*model.Permission
	if len(ids) == 0 {
		return list, nil
	}
	if err := s.ds.DB(ctx).Where("id IN ?", ids).Order("id").Find(&list).Error; err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return list, nil
}

// List lists permissions ordered by resource then action.
func (s *permissions) List(ctx context.Context, whr *store.Options) (int64, []*model.Permission, error) {
	var count int64
	if err := whr.Count(s.ds.DB(ctx).Model(&model.Permission{})).Count(&count).Error; err != nil {
		return 0, nil, errors.ErrDatabase.WithCause(err)
	}

	var list []*model.Permission
	if err := whr.Where(s.ds.DB(ctx).Order("resource").Order("action")).Find(&list).Error; err != nil {
		return 0, nil, errors.ErrDatabase.WithCause(err)
	}
	return count, list, nil
}
