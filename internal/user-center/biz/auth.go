package biz

import (
	"context"
	"strconv"
	"strings"

	"github.com/kart-io/logger"
	"golang.org/x/crypto/bcrypt"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/internal/user-center/store"
	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/security/auth"
	"github.com/kart-io/sentinel-iam/pkg/security/auth/identity"
)

// AuthService handles authentication business logic.
type AuthService struct {
	authenticator auth.Authenticator
	store         store.IStore
	audit         *AuditService
}

// NewAuthService creates a new AuthService.
func NewAuthService(authenticator auth.Authenticator, s store.IStore, audit *AuditService) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		store:         s,
		audit:         audit,
	}
}

// Login checks the email and password and signs a token whose subject is
// the user id. Unknown emails and wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (auth.Token, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			s.audit.RecordFailure(ctx, model.AuditActionLogin, resourceAuth, 0, map[string]any{
				"email": email, "reason": "unknown email",
			})
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.audit.RecordFailure(ctx, model.AuditActionLogin, resourceAuth, user.ID, map[string]any{
			"email": email, "reason": "wrong password",
		})
		return nil, errors.ErrInvalidCredentials
	}

	if !user.Active() {
		s.audit.RecordFailure(ctx, model.AuditActionLogin, resourceAuth, user.ID, map[string]any{
			"email": email, "reason": "account disabled",
		})
		return nil, errors.ErrAccountDisabled
	}

	token, err := s.authenticator.Sign(ctx, strconv.FormatUint(user.ID, 10), auth.WithExtra(map[string]interface{}{
		"email": user.Email,
	}))
	if err != nil {
		return nil, err
	}

	entry := newAuditLog(ctx, model.AuditActionLogin, resourceAuth, user.ID, model.AuditStatusSuccess, nil)
	entry.UserID = user.ID
	if err := s.store.AuditLogs().Create(ctx, entry); err != nil {
		logger.Warnw("failed to record login", "user_id", user.ID, "error", err.Error())
	}

	logger.Infow("user logged in", "user_id", user.ID)
	return token, nil
}

// Refresh exchanges a valid token for a new one. The old token is revoked
// by the authenticator.
func (s *AuthService) Refresh(ctx context.Context, token string) (auth.Token, error) {
	return s.authenticator.Refresh(ctx, token)
}

// Logout revokes token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.authenticator.Revoke(ctx, token); err != nil {
		return err
	}
	s.recordBestEffort(ctx, model.AuditActionLogout)
	return nil
}

// Me returns the principal carried by ctx.
func (s *AuthService) Me(ctx context.Context) (*model.PrincipalView, error) {
	p := auth.PrincipalFromContext(ctx)
	if p == nil {
		return nil, errors.ErrAuthenticationRequired
	}
	return model.NewPrincipalView(p), nil
}

func (s *AuthService) recordBestEffort(ctx context.Context, action string) {
	if err := s.audit.Record(ctx, action, resourceAuth, ActorID(ctx), nil); err != nil {
		logger.Warnw("failed to record audit entry", "action", action, "error", err.Error())
	}
}

// UserLookup loads users with their roles and permissions for the identity
// resolver.
type UserLookup struct {
	store store.IStore
}

var _ identity.UserLookup = (*UserLookup)(nil)

// NewUserLookup creates a new UserLookup.
func NewUserLookup(s store.IStore) *UserLookup {
	return &UserLookup{store: s}
}

// FindByID implements identity.UserLookup. Roles and permissions are read
// fresh on every call.
func (l *UserLookup) FindByID(ctx context.Context, id uint64) (*identity.User, error) {
	user, err := l.store.Users().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	roles, err := l.store.UserRoles().ListRoles(ctx, id)
	if err != nil {
		return nil, err
	}
	perms, err := l.store.UserRoles().ListPermissions(ctx, id)
	if err != nil {
		return nil, err
	}

	u := &identity.User{
		ID:          user.ID,
		Email:       user.Email,
		Role:        user.Role,
		ProfileID:   user.ProfileID,
		Active:      user.Active(),
		Roles:       make([]string, 0, len(roles)),
		Permissions: make([]string, 0, len(perms)),
	}
	for _, r := range roles {
		u.Roles = append(u.Roles, r.Name)
	}
	for _, p := range perms {
		u.Permissions = append(u.Permissions, p.Key().String())
	}
	return u, nil
}
