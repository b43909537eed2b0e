package biz

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/security/auth"
)

func TestUserService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := auth.ContextWithPrincipal(context.Background(), &auth.Principal{ID: "1", Role: auth.RoleAdmin})

	editor := f.addRole(t, "editor")

	v, err := f.users.Create(ctx, &CreateUserInput{
		Email:    "  Ada@Example.com ",
		Password: "s3cret-pass",
		Mobile:   "13800000000",
		Role:     "Admin",
		RoleIDs:  []uint64{editor.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", v.Email)
	assert.Equal(t, "admin", v.Role)
	assert.Equal(t, uint64(1), v.CreatedBy)
	assert.Equal(t, []string{"editor"}, v.Roles)

	stored, err := f.store.Users().Get(context.Background(), v.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", stored.Password)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("s3cret-pass")))

	_, err = f.users.Create(ctx, &CreateUserInput{Email: "ada@example.com", Password: "another-pass"})
	assert.True(t, stderrors.Is(err, errors.ErrUserAlreadyExists), "got %v", err)
}

func TestUserService_CreateIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	before := f.auditCount(t)

	_, err := f.users.Create(ctx, &CreateUserInput{
		Email:    "bob@example.com",
		Password: "s3cret-pass",
		RoleIDs:  []uint64{999},
	})
	assert.True(t, stderrors.Is(err, errors.ErrRoleNotFound), "got %v", err)

	_, err = f.store.Users().GetByEmail(ctx, "bob@example.com")
	assert.True(t, stderrors.Is(err, errors.ErrUserNotFound), "user rolled back with the failed assignment")
	assert.Equal(t, before, f.auditCount(t))
}

func TestUserService_InvalidRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, role := range []string{"public", "root"} {
		_, err := f.users.Create(ctx, &CreateUserInput{Email: role + "@x.io", Password: "s3cret-pass", Role: role})
		assert.True(t, stderrors.Is(err, errors.ErrInvalidRole), "role %q: got %v", role, err)
	}

	v, err := f.users.Create(ctx, &CreateUserInput{Email: "default@x.io", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "user", v.Role)
}

func TestUserService_UpdateListDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a := f.addUser(t, "a@x.io", "secret", "user")
	f.addUser(t, "b@x.io", "secret", "user")
	role := f.addRole(t, "editor")
	require.NoError(t, f.perms.AssignRoleToUser(ctx, a.ID, role.ID, 0))

	v, err := f.users.UpdateRole(ctx, a.ID, "custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", v.Role)

	_, err = f.users.UpdateRole(ctx, a.ID, "wizard")
	assert.True(t, stderrors.Is(err, errors.ErrInvalidRole))

	_, err = f.users.UpdateRole(ctx, 999, "admin")
	assert.True(t, stderrors.Is(err, errors.ErrUserNotFound))

	total, list, err := f.users.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"editor"}, list[0].Roles)

	require.NoError(t, f.users.Delete(ctx, a.ID))
	_, err = f.users.Get(ctx, a.ID)
	assert.True(t, stderrors.Is(err, errors.ErrUserNotFound))

	roles, err := f.store.UserRoles().ListRoles(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)

	err = f.users.Delete(ctx, a.ID)
	assert.True(t, errors.IsNotFound(err))
}
