package biz

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/internal/user-center/store"
	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/security/auth"
	storepkg "github.com/kart-io/sentinel-iam/pkg/store"
)

// CreateUserInput carries the fields of a new account.
type CreateUserInput struct {
	Email     string
	Password  string
	Mobile    string
	Role      string
	ProfileID string

	// RoleIDs are assigned in the same transaction as the user.
	RoleIDs []uint64
}

// UserService handles user business logic.
type UserService struct {
	store store.IStore
	perms *PermissionService
	audit *AuditService
}

// NewUserService creates a new UserService.
func NewUserService(s store.IStore, perms *PermissionService, audit *AuditService) *UserService {
	return &UserService{store: s, perms: perms, audit: audit}
}

// Create hashes the password and creates the user, its initial role
// assignments and the audit row atomically.
func (s *UserService) Create(ctx context.Context, in *CreateUserInput) (*model.UserView, error) {
	role, err := parsePrimaryRole(in.Role)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	actor := ActorID(ctx)
	user := &model.User{
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Password:  string(hashedPassword),
		Mobile:    in.Mobile,
		Role:      string(role),
		ProfileID: in.ProfileID,
		Status:    model.UserStatusActive,
		CreatedBy: actor,
		UpdatedBy: actor,
	}

	err = s.store.TX(ctx, func(ctx context.Context) error {
		if err := s.store.Users().Create(ctx, user); err != nil {
			return err
		}
		for _, roleID := range in.RoleIDs {
			if err := s.perms.assignRole(ctx, user.ID, roleID, actor); err != nil {
				return err
			}
		}
		return s.audit.Record(ctx, model.AuditActionCreate, resourceUser, user.ID, map[string]any{
			"email":    user.Email,
			"role":     user.Role,
			"role_ids": in.RoleIDs,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, user)
}

// Get retrieves a user with its assigned role names.
func (s *UserService) Get(ctx context.Context, id uint64) (*model.UserView, error) {
	user, err := s.store.Users().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, user)
}

// List returns one page of users.
func (s *UserService) List(ctx context.Context, page, pageSize int) (int64, []*model.UserView, error) {
	total, users, err := s.store.Users().List(ctx, storepkg.P(page, pageSize))
	if err != nil {
		return 0, nil, err
	}

	views := make([]*model.UserView, 0, len(users))
	for _, u := range users {
		v, err := s.view(ctx, u)
		if err != nil {
			return 0, nil, err
		}
		views = append(views, v)
	}
	return total, views, nil
}

// UpdateRole changes the primary role of a user.
func (s *UserService) UpdateRole(ctx context.Context, id uint64, roleName string) (*model.UserView, error) {
	role, err := parsePrimaryRole(roleName)
	if err != nil {
		return nil, err
	}

	var user *model.User
	err = s.store.TX(ctx, func(ctx context.Context) error {
		user, err = s.store.Users().Get(ctx, id)
		if err != nil {
			return err
		}
		before := user.Role
		user.Role = string(role)
		user.UpdatedBy = ActorID(ctx)
		if err := s.store.Users().Update(ctx, user); err != nil {
			return err
		}
		return s.audit.Record(ctx, model.AuditActionUpdate, resourceUser, id, map[string]any{
			"before": before,
			"after":  user.Role,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, user)
}

// Delete soft-deletes a user and removes its role assignments.
func (s *UserService) Delete(ctx context.Context, id uint64) error {
	return s.store.TX(ctx, func(ctx context.Context) error {
		user, err := s.store.Users().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.store.UserRoles().DeleteByUser(ctx, id); err != nil {
			return err
		}
		if err := s.store.Users().Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, model.AuditActionDelete, resourceUser, id, map[string]any{
			"email": user.Email,
		})
	})
}

func (s *UserService) view(ctx context.Context, u *model.User) (*model.UserView, error) {
	roles, err := s.store.UserRoles().ListRoles(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return model.NewUserView(u, names), nil
}

// parsePrimaryRole accepts every role but public; "" means user.
func parsePrimaryRole(s string) (auth.Role, error) {
	if strings.TrimSpace(s) == "" {
		return auth.RoleUser, nil
	}
	role, ok := auth.ParseRole(s)
	if !ok || role == auth.RolePublic {
		return "", errors.ErrInvalidRole.WithMessagef("invalid primary role %q", s)
	}
	return role, nil
}
