package biz

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/security/auth"
	"github.com/kart-io/sentinel-iam/pkg/security/auth/identity"
	"github.com/kart-io/sentinel-iam/pkg/security/auth/jwt"
)

func newAuthService(t *testing.T, f *fixture) (*AuthService, *jwt.JWT) {
	t.Helper()
	revoked := jwt.NewMemoryStore()
	t.Cleanup(func() { _ = revoked.Close() })

	j, err := jwt.New(jwt.WithKey(strings.Repeat("k", 64)), jwt.WithStore(revoked))
	require.NoError(t, err)
	return NewAuthService(j, f.store, f.audit), j
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc, j := newAuthService(t, f)

	u := f.addUser(t, "ada@example.com", "correct-horse", "admin")

	token, err := svc.Login(ctx, " ADA@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.GetTokenType())

	claims, err := j.Verify(ctx, token.GetAccessToken())
	require.NoError(t, err)
	assert.Equal(t, "1", claims.Subject)
	assert.Equal(t, u.Email, claims.GetExtraString("email"))

	_, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.True(t, stderrors.Is(err, errors.ErrInvalidCredentials))

	_, err = svc.Login(ctx, "nobody@example.com", "correct-horse")
	assert.True(t, stderrors.Is(err, errors.ErrInvalidCredentials), "unknown email fails like a wrong password")

	u.Status = model.UserStatusDisabled
	require.NoError(t, f.store.Users().Update(ctx, u))
	_, err = svc.Login(ctx, "ada@example.com", "correct-horse")
	assert.True(t, stderrors.Is(err, errors.ErrAccountDisabled))

	_, failed, err := f.audit.List(ctx, AuditFilter{Action: model.AuditActionLogin}, 1, 10)
	require.NoError(t, err)
	require.Len(t, failed, 4)
	assert.Equal(t, model.AuditStatusFailed, failed[0].Status)
	assert.Equal(t, model.AuditStatusSuccess, failed[3].Status)
	assert.Equal(t, u.ID, failed[3].UserID)
}

func TestAuthService_LogoutRevokes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc, j := newAuthService(t, f)
	f.addUser(t, "ada@example.com", "correct-horse", "user")

	token, err := svc.Login(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, token.GetAccessToken())
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, refreshed.GetAccessToken()))
	_, err = j.Verify(ctx, refreshed.GetAccessToken())
	assert.True(t, errors.IsUnauthenticated(err), "got %v", err)
}

func TestAuthService_Me(t *testing.T) {
	f := newFixture(t)
	svc, _ := newAuthService(t, f)

	_, err := svc.Me(context.Background())
	assert.True(t, errors.IsUnauthenticated(err))

	ctx := auth.ContextWithPrincipal(context.Background(), &auth.Principal{
		ID: "3", Email: "c@x.io", Role: auth.RoleUser, Roles: []string{"editor"}, Permissions: []string{"doc:read"},
	})
	v, err := svc.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", v.ID)
	assert.Equal(t, "user", v.Role)
	assert.Equal(t, []string{"doc:read"}, v.Permissions)
}

func TestUserLookup_ResolvesPrincipal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc, j := newAuthService(t, f)

	u := f.addUser(t, "ada@example.com", "correct-horse", "user")
	require.NoError(t, f.perms.SeedDefaults(ctx))
	userRole, err := f.perms.GetRoleByName(ctx, "user")
	require.NoError(t, err)
	require.NoError(t, f.perms.AssignRoleToUser(ctx, u.ID, userRole.ID, 0))

	token, err := svc.Login(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)

	resolver := identity.NewResolver(j, NewUserLookup(f.store))
	id, err := resolver.Resolve(ctx, "Bearer "+token.GetAccessToken())
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, id.Principal.Role)
	assert.Equal(t, []string{"user"}, id.Principal.Roles)
	assert.Equal(t, []string{"user:read"}, id.Principal.Permissions)
	assert.Equal(t, "ada@example.com", id.Principal.Claims["email"])

	u.Status = model.UserStatusDisabled
	require.NoError(t, f.store.Users().Update(ctx, u))
	_, err = resolver.Resolve(ctx, "Bearer "+token.GetAccessToken())
	assert.True(t, stderrors.Is(err, errors.ErrPrincipalNotFound))

	_, err = NewUserLookup(f.store).FindByID(ctx, 999)
	assert.True(t, errors.IsNotFound(err))
}
