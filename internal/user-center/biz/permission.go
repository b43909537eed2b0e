package biz

import (
	"context"
	stderrors "errors"
	"slices"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/internal/user-center/store"
	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/security/auth"
	storepkg "github.com/kart-io/sentinel-iam/pkg/store"
)

// Audited resource names.
const (
	resourcePermission = "permission"
	resourceRole       = "role"
	resourceUser       = "user"
	resourceAuth       = "auth"
)

// PermissionService administers permissions, roles and their assignments.
// Every mutation runs in one transaction together with its audit row.
type PermissionService struct {
	store store.IStore
	audit *AuditService
}

// NewPermissionService creates a new PermissionService.
func NewPermissionService(s store.IStore, audit *AuditService) *PermissionService {
	return &PermissionService{store: s, audit: audit}
}

// ListPermissions returns one page of permissions.
func (s *PermissionService) ListPermissions(ctx context.Context, page, pageSize int) (int64, []*model.Permission, error) {
	return s.store.Permissions().List(ctx, storepkg.P(page, pageSize))
}

// GetPermission retrieves a permission by id.
func (s *PermissionService) GetPermission(ctx context.Context, id uint64) (*model.Permission, error) {
	return s.store.Permissions().Get(ctx, id)
}

// GetPermissionByName retrieves a permission by its display name.
func (s *PermissionService) GetPermissionByName(ctx context.Context, name string) (*model.Permission, error) {
	return s.store.Permissions().GetByName(ctx, name)
}

// CreatePermission creates a permission. A second permission with the same
// resource and action is a conflict.
func (s *PermissionService) CreatePermission(ctx context.Context, p *model.Permission) error {
	p.Resource = strings.TrimSpace(p.Resource)
	p.Action = strings.TrimSpace(p.Action)

	return s.store.TX(ctx, func(ctx context.Context) error {
		if err := s.store.Permissions().Create(ctx, p); err != nil {
			return err
		}
		return s.audit.Record(ctx, model.AuditActionCreate, resourcePermission, p.ID, map[string]any{
			"permission": p.Key().String(),
		})
	})
}

// UpdatePermission replaces the metadata and key of permission id.
func (s *PermissionService) UpdatePermission(ctx context.Context, id uint64, name, description, resource, action string) (*model.Permission, error) {
	var updated *model.Permission
	err := s.store.TX(ctx, func(ctx context.Context) error {
		p, err := s.store.Permissions().Get(ctx, id)
		if err != nil {
			return err
		}

		before := p.Key().String()
		if name != "" {
			p.Name = name
		}
		if description != "" {
			p.Description = description
		}
		if resource = strings.TrimSpace(resource); resource != "" {
			p.Resource = resource
		}
		if action = strings.TrimSpace(action); action != "" {
			p.Action = action
		}

		existing, err := s.store.Permissions().GetByResourceAction(ctx, p.Resource, p.Action)
		switch {
		case err == nil && existing.ID != p.ID:
			return errors.ErrPermissionAlreadyExists
		case err != nil && !errors.IsNotFound(err):
			return err
		}

		if err := s.store.Permissions().Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return s.audit.Record(ctx, model.AuditActionUpdate, resourcePermission, p.ID, map[string]any{
			"before": before,
			"after":  p.Key().String(),
		})
	})
	return updated, err
}

// DeletePermission deletes a permission and detaches it from every role.
func (s *PermissionService) DeletePermission(ctx context.Context, id uint64) error {
	return s.store.TX(ctx, func(ctx context.Context) error {
		p, err := s.store.Permissions().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.store.RolePermissions().DeleteByPermission(ctx, id); err != nil {
			return err
		}
		if err := s.store.Permissions().Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, model.AuditActionDelete, resourcePermission, id, map[string]any{
			"permission": p.Key().String(),
		})
	})
}

// ListRoles returns one page of roles.
func (s *PermissionService) ListRoles(ctx context.Context, page, pageSize int) (int64, []*model.Role, error) {
	return s.store.Roles().List(ctx, storepkg.P(page, pageSize))
}

// GetRole retrieves a role by id.
func (s *PermissionService) GetRole(ctx context.Context, id uint64) (*model.Role, error) {
	return s.store.Roles().Get(ctx, id)
}

// GetRoleByName retrieves a role by name.
func (s *PermissionService) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	return s.store.Roles().GetByName(ctx, name)
}

// CreateRole creates a role. Duplicate names are a conflict.
func (s *PermissionService) CreateRole(ctx context.Context, role *model.Role) error {
	role.Name = strings.TrimSpace(role.Name)

	return s.store.TX(ctx, func(ctx context.Context) error {
		if err := s.store.Roles().Create(ctx, role); err != nil {
			return err
		}
		return s.audit.Record(ctx, model.AuditActionCreate, resourceRole, role.ID, map[string]any{
			"name": role.Name,
		})
	})
}

// UpdateRole renames or redescribes a role. Renaming onto another role's
// name is a conflict.
func (s *PermissionService) UpdateRole(ctx context.Context, id uint64, name, description string) (*model.Role, error) {
	var updated *model.Role
	err := s.store.TX(ctx, func(ctx context.Context) error {
		role, err := s.store.Roles().Get(ctx, id)
		if err != nil {
			return err
		}

		before := role.Name
		if name = strings.TrimSpace(name); name != "" && name != role.Name {
			existing, err := s.store.Roles().GetByName(ctx, name)
			switch {
			case err == nil && existing.ID != role.ID:
				return errors.ErrRoleAlreadyExists
			case err != nil && !errors.IsNotFound(err):
				return err
			}
			role.Name = name
		}
		if description != "" {
			role.Description = description
		}

		if err := s.store.Roles().Update(ctx, role); err != nil {
			return err
		}
		updated = role
		return s.audit.Record(ctx, model.AuditActionUpdate, resourceRole, role.ID, map[string]any{
			"before": before,
			"after":  role.Name,
		})
	})
	return updated, err
}

// DeleteRole deletes a role together with its permission grants and user
// assignments.
func (s *PermissionService) DeleteRole(ctx context.Context, id uint64) error {
	return s.store.TX(ctx, func(ctx context.Context) error {
		role, err := s.store.Roles().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.store.RolePermissions().DeleteByRole(ctx, id); err != nil {
			return err
		}
		if err := s.store.UserRoles().DeleteByRole(ctx, id); err != nil {
			return err
		}
		if err := s.store.Roles().Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, model.AuditActionDelete, resourceRole, id, map[string]any{
			"name": role.Name,
		})
	})
}

// AssignPermissionToRole grants a permission to a role.
func (s *PermissionService) AssignPermissionToRole(ctx context.Context, roleID, permissionID uint64) error {
	return s.store.TX(ctx, func(ctx context.Context) error {
		role, err := s.store.Roles().Get(ctx, roleID)
		if err != nil {
			return err
		}
		p, err := s.store.Permissions().Get(ctx, permissionID)
		if err != nil {
			return err
		}
		if err := s.store.RolePermissions().Create(ctx, roleID, permissionID); err != nil {
			return err
		}
		return s.audit.Record(ctx, model.AuditActionAssign, resourceRole, roleID, map[string]any{
			"role":       role.Name,
			"permission": p.Key().String(),
		})
	})
}

// RemovePermissionFromRole revokes a permission from a role.
func (s *PermissionService) RemovePermissionFromRole(ctx context.Context, roleID, permissionID uint64) error {
	return s.store.TX(ctx, func(ctx context.Context) error {
		role, err := s.store.Roles().Get(ctx, roleID)
		if err != nil {
			return err
		}
		p, err := s.store.Permissions().Get(ctx, permissionID)
		if err != nil {
			return err
		}
		if err := s.store.RolePermissions().Delete(ctx, roleID, permissionID); err != nil {
			return err
		}
		return s.audit.Record(ctx, model.AuditActionRevoke, resourceRole, roleID, map[string]any{
			"role":       role.Name,
			"permission": p.Key().String(),
		})
	})
}

// GetRolePermissions lists the permissions granted to a role.
func (s *PermissionService) GetRolePermissions(ctx context.Context, roleID uint64) ([]*model.Permission, error) {
	if _, err := s.store.Roles().Get(ctx, roleID); err != nil {
		return nil, err
	}
	return s.store.RolePermissions().ListPermissions(ctx, roleID)
}

// SetRolePermissions replaces the permission set of a role. The list must
// be non-empty and every id must exist.
func (s *PermissionService) SetRolePermissions(ctx context.Context, roleID uint64, permissionIDs []uint64) ([]*model.Permission, error) {
	if len(permissionIDs) == 0 {
		return nil, errors.ErrInvalidPermissionIDs.WithMessage("permission ids must not be empty")
	}
	ids := slices.Clone(permissionIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if ids[0] == 0 {
		return nil, errors.ErrInvalidPermissionIDs.WithMessage("permission id must be positive")
	}

	var granted []*model.Permission
	err := s.store.TX(ctx, func(ctx context.Context) error {
		role, err := s.store.Roles().Get(ctx, roleID)
		if err != nil {
			return err
		}

		found, err := s.store.Permissions().ListByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(found) != len(ids) {
			return errors.ErrInvalidPermissionIDs.WithMessagef("%d of %d permission ids do not exist",
				len(ids)-len(found), len(ids))
		}

		if err := s.store.RolePermissions().DeleteByRole(ctx, roleID); err != nil {
			return err
		}
		keys := make([]string, 0, len(found))
		for _, p := range found {
			if err := s.store.RolePermissions().Create(ctx, roleID, p.ID); err != nil {
				return err
			}
			keys = append(keys, p.Key().String())
		}

		granted, err = s.store.RolePermissions().ListPermissions(ctx, roleID)
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, model.AuditActionUpdate, resourceRole, roleID, map[string]any{
			"role":        role.Name,
			"permissions": keys,
		})
	})
	return granted, err
}

// AssignRoleToUser assigns a role to a user. assignedBy is recorded on the
// assignment; 0 means the system.
func (s *PermissionService) AssignRoleToUser(ctx context.Context, userID, roleID, assignedBy uint64) error {
	return s.store.TX(ctx, func(ctx context.Context) error {
		return s.assignRole(ctx, userID, roleID, assignedBy)
	})
}

// assignRole must run inside a transaction.
func (s *PermissionService) assignRole(ctx context.Context, userID, roleID, assignedBy uint64) error {
	if _, err := s.store.Users().Get(ctx, userID); err != nil {
		return err
	}
	role, err := s.store.Roles().Get(ctx, roleID)
	if err != nil {
		return err
	}

	ur := &model.UserRole{UserID: userID, RoleID: roleID, AssignedBy: assignedBy}
	if err := s.store.UserRoles().Create(ctx, ur); err != nil {
		return err
	}
	return s.audit.Record(ctx, model.AuditActionAssign, resourceUser, userID, map[string]any{
		"role":        role.Name,
		"assigned_by": assignedBy,
	})
}

// RemoveRoleFromUser removes a role assignment.
func (s *PermissionService) RemoveRoleFromUser(ctx context.Context, userID, roleID uint64) error {
	return s.store.TX(ctx, func(ctx context.Context) error {
		if err := s.store.UserRoles().Delete(ctx, userID, roleID); err != nil {
			return err
		}
		return s.audit.Record(ctx, model.AuditActionRevoke, resourceUser, userID, map[string]any{
			"role_id": roleID,
		})
	})
}

// GetUserRoles lists the roles assigned to a user.
func (s *PermissionService) GetUserRoles(ctx context.Context, userID uint64) ([]*model.Role, error) {
	if _, err := s.store.Users().Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.UserRoles().ListRoles(ctx, userID)
}

// GetUserPermissions returns the deduplicated union of the permissions of
// every role assigned to a user, ordered by resource then action.
func (s *PermissionService) GetUserPermissions(ctx context.Context, userID uint64) ([]*model.Permission, error) {
	if _, err := s.store.Users().Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.UserRoles().ListPermissions(ctx, userID)
}

// HasPermission reports whether any role of the user grants resource:action.
func (s *PermissionService) HasPermission(ctx context.Context, userID uint64, resource, action string) (bool, error) {
	perms, err := s.GetUserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p.Resource == resource && p.Action == action {
			return true, nil
		}
	}
	return false, nil
}

// HasRole reports whether the user holds roleName. Names are compared after
// normalization.
func (s *PermissionService) HasRole(ctx context.Context, userID uint64, roleName string) (bool, error) {
	roles, err := s.GetUserRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	want := auth.NormalizeRole(roleName)
	if want == "" {
		return false, nil
	}
	for _, r := range roles {
		if auth.NormalizeRole(r.Name) == want {
			return true, nil
		}
	}
	return false, nil
}

// DefaultPermissions are created by SeedDefaults.
var DefaultPermissions = []model.Permission{
	{Name: "Create User", Description: "Can create new users", Resource: "user", Action: "create"},
	{Name: "Read User", Description: "Can view user details", Resource: "user", Action: "read"},
	{Name: "Update User", Description: "Can update user information", Resource: "user", Action: "update"},
	{Name: "Delete User", Description: "Can delete users", Resource: "user", Action: "delete"},
	{Name: "Manage Roles", Description: "Can manage user roles", Resource: "role", Action: "manage"},
	{Name: "View Audit Logs", Description: "Can view audit logs", Resource: "audit", Action: "read"},
	{Name: "Manage Permissions", Description: "Can manage permissions", Resource: "permission", Action: "manage"},
}

// DefaultRoles are created by SeedDefaults.
var DefaultRoles = []model.Role{
	{Name: string(auth.RoleAdmin), Description: "Administrator with full access"},
	{Name: string(auth.RoleUser), Description: "Regular user with basic access"},
	{Name: "moderator", Description: "Moderator with limited admin access"},
}

// SeedDefaults creates the default permissions and roles, grants admin
// every default permission and user "user:read". Existing records are kept,
// so it is safe to run on every start.
func (s *PermissionService) SeedDefaults(ctx context.Context) error {
	perms := make([]*model.Permission, 0, len(DefaultPermissions))
	for _, def := range DefaultPermissions {
		p := def
		err := s.CreatePermission(ctx, &p)
		if err != nil && !stderrors.Is(err, errors.ErrPermissionAlreadyExists) {
			return err
		}
		existing, err := s.store.Permissions().GetByResourceAction(ctx, p.Resource, p.Action)
		if err != nil {
			return err
		}
		perms = append(perms, existing)
	}

	roles := make(map[string]*model.Role, len(DefaultRoles))
	for _, def := range DefaultRoles {
		r := def
		err := s.CreateRole(ctx, &r)
		if err != nil && !stderrors.Is(err, errors.ErrRoleAlreadyExists) {
			return err
		}
		existing, err := s.store.Roles().GetByName(ctx, r.Name)
		if err != nil {
			return err
		}
		roles[existing.Name] = existing
	}

	grant := func(role *model.Role, p *model.Permission) error {
		err := s.AssignPermissionToRole(ctx, role.ID, p.ID)
		if err != nil && !stderrors.Is(err, errors.ErrRolePermissionExists) {
			return err
		}
		return nil
	}
	for _, p := range perms {
		if err := grant(roles[string(auth.RoleAdmin)], p); err != nil {
			return err
		}
		if p.Key().String() == "user:read" {
			if err := grant(roles[string(auth.RoleUser)], p); err != nil {
				return err
			}
		}
	}

	logger.Infow("seeded default permissions and roles",
		"permissions", len(perms),
		"roles", len(roles),
	)
	return nil
}
