package store

import (
	"context"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/pkg/errors"
)

// RolePermissionStore manages role to permission grants.
type RolePermissionStore interface {
	Create(ctx context.Context, roleID, permissionID uint64) error
	Delete(ctx context.Context, roleID, permissionID uint64) error
	DeleteByRole(ctx context.Context, roleID uint64) error
	DeleteByPermission(ctx context.Context, permissionID uint64) error
	// ListPermissions returns the permissions granted to a role ordered by
	// resource then action.
	ListPermissions(ctx context.Context, roleID uint64) ([]*model.Permission, error)
}

type rolePermissions struct {
	ds *datastore
}

func newRolePermissions(ds *datastore) *rolePermissions {
	return &rolePermissions{ds}
}

// Create grants permissionID to roleID.
func (s *rolePermissions) Create(ctx context.Context, roleID, permissionID uint64) error {
	err := s.ds.DB(ctx).Create(&model.RolePermission{RoleID: roleID, PermissionID: permissionID}).Error
	return translate(err, nil, errors.ErrRolePermissionExists)
}

// Delete removes a single grant.
func (s *rolePermissions) Delete(ctx context.Context, roleID, permissionID uint64) error {
	result := s.ds.DB(ctx).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&model.RolePermission{})
	if result.Error != nil {
		return errors.ErrDatabase.WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrRolePermissionNotFound
	}
	return nil
}

// DeleteByRole removes every grant of a role.
func (s *rolePermissions) DeleteByRole(ctx context.Context, roleID uint64) error {
	err := s.ds.DB(ctx).Where("role_id = ?", roleID).Delete(&model.RolePermission{}).Error
	return translate(err, nil, nil)
}

// DeleteByPermission detaches a permission from every role.
func (s *rolePermissions) DeleteByPermission(ctx context.Context, permissionID uint64) error {
	err := s.ds.DB(ctx).Where("permission_id = ?", permissionID).Delete(&model.RolePermission{}).Error
	return translate(err, nil, nil)
}

func (s *rolePermissions) ListPermissions(ctx context.Context, roleID uint64) ([]*model.Permission, error) {
	var list []*model.Permission
	err := s.ds.DB(ctx).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.resource").Order("permissions.action").
		Find(&list).Error
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return list, nil
}
