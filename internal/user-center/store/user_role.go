package store

import (
	"context"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/pkg/errors"
)

// UserRoleStore manages user to role assignments.
type UserRoleStore interface {
	Create(ctx context.Context, ur *model.UserRole) error
	Delete(ctx context.Context, userID, roleID uint64) error
	DeleteByRole(ctx context.Context, roleID uint64) error
	DeleteByUser(ctx context.Context, userID uint64) error
	// ListRoles returns the roles assigned to a user ordered by name.
	ListRoles(ctx context.Context, userID uint64) ([]*model.Role, error)
	// ListPermissions returns the distinct permissions granted to a user
	// through its roles, ordered by resource then action.
	ListPermissions(ctx context.Context, userID uint64) ([]*model.Permission, error)
}

type userRoles struct {
	ds *datastore
}

func newUserRoles(ds *datastore) *userRoles {
	return &userRoles{ds}
}

// Create assigns a role to a user.
func (s *userRoles) Create(ctx context.Context, ur *model.UserRole) error {
	err := s.ds.DB(ctx).Create(ur).Error
	return translate(err, nil, errors.ErrUserRoleExists)
}

// Delete removes a single assignment.
func (s *userRoles) Delete(ctx context.Context, userID, roleID uint64) error {
	result := s.ds.DB(ctx).Where("user_id = ? AND role_id = ?", userID, roleID).Delete(&model.UserRole{})
	if result.Error != nil {
		return errors.ErrDatabase.WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrUserRoleNotFound
	}
	return nil
}

// DeleteByRole removes a role from every user.
func (s *userRoles) DeleteByRole(ctx context.Context, roleID uint64) error {
	err := s.ds.DB(ctx).Where("role_id = ?", roleID).Delete(&model.UserRole{}).Error
	return translate(err, nil, nil)
}

// DeleteByUser removes every assignment of a user.
func (s *userRoles) DeleteByUser(ctx context.Context, userID uint64) error {
	err := s.ds.DB(ctx).Where("user_id = ?", userID).Delete(&model.UserRole{}).Error
	return translate(err, nil, nil)
}

func (s *userRoles) ListRoles(ctx context.Context, userID uint64) ([]*model.Role, error) {
	var list []*model.Role
	err := s.ds.DB(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.name").
		Find(&list).Error
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return list, nil
}

func (s *userRoles) ListPermissions(ctx context.Context, userID uint64) ([]*model.Permission, error) {
	sub := s.ds.DB(ctx).Model(&model.RolePermission{}).
		Select("role_permissions.permission_id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", userID)

	var list []*model.Permission
	err := s.ds.DB(ctx).
		Where("id IN (?)", sub).
		Order("resource").Order("action").
		Find(&list).Error
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return list, nil
}
