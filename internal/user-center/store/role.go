package store

import (
	"context"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/store"
)

// RoleStore defines the role storage interface.
type RoleStore interface {
	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role *model.Role) error
	Delete(ctx context.Context, id uint64) error
	Get(ctx context.Context, id uint64) (*model.Role, error)
	GetByName(ctx context.Context, name string) (*model.Role, error)
	List(ctx context.Context, whr *store.Options) (int64, []*model.Role, error)
}

type roles struct {
	ds *datastore
}

func newRoles(ds *datastore) *roles {
	return &roles{ds}
}

// Create creates a new role.
func (r *roles) Create(ctx context.Context, role *model.Role) error {
	err := r.ds.DB(ctx).Create(role).Error
	return translate(err, nil, errors.ErrRoleAlreadyExists)
}

// Update saves every column of role.
func (r *roles) Update(ctx context.Context, role *model.Role) error {
	err := r.ds.DB(ctx).Save(role).Error
	return translate(err, nil, errors.ErrRoleAlreadyExists)
}

// Delete deletes a role by id.
func (r *roles) Delete(ctx context.Context, id uint64) error {
	result := r.ds.DB(ctx).Delete(&model.Role{}, id)
	if result.Error != nil {
		return errors.ErrDatabase.WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrRoleNotFound
	}
	return nil
}

// Get retrieves a role by id.
func (r *roles) Get(ctx context.Context, id uint64) (*model.Role, error) {
	var role model.Role
	if err := r.ds.DB(ctx).Where("id = ?", id).First(&role).Error; err != nil {
		return nil, translate(err, errors.ErrRoleNotFound, nil)
	}
	return &role, nil
}

// GetByName retrieves a role by its exact name.
func (r *roles) GetByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := r.ds.DB(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, translate(err, errors.ErrRoleNotFound, nil)
	}
	return &role, nil
}

// List lists roles ordered by id.
func (r *roles) List(ctx context.Context, whr *store.Options) (int64, []*model.Role, error) {
	var count int64
	if err := whr.Count(r.ds.DB(ctx).Model(&model.Role{})).Count(&count).Error; err != nil {
		return 0, nil, errors.ErrDatabase.WithCause(err)
	}

	var list []*model.Role
	if err := whr.Where(r.ds.DB(ctx).Order("id")).Find(&list).Error; err != nil {
		return 0, nil, errors.ErrDatabase.WithCause(err)
	}
	return count, list, nil
}
