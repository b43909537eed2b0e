package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	roles := []string{"admin"}
	require.NoError(t, r.Register("role.create", Requirement{Roles: roles, Permissions: []string{"role:manage"}}))
	require.NoError(t, r.Register("health.check", Public()))

	roles[0] = "mutated"
	req, ok := r.Lookup("role.create")
	require.True(t, ok)
	assert.Equal(t, []string{"admin"}, req.Roles)

	_, ok = r.Lookup("role.unknown")
	assert.False(t, ok)

	assert.Error(t, r.Register("role.create", Authenticated()))
	assert.Error(t, r.Register("", Authenticated()))
	assert.Panics(t, func() { r.MustRegister("health.check", Public()) })

	assert.Equal(t, []string{"health.check", "role.create"}, r.Operations())
}

func TestRegistry_LookupReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("user.delete", Requirement{Roles: []string{"admin", "super_admin"}, Permissions: []string{"user:delete"}})

	first, ok := r.Lookup("user.delete")
	require.True(t, ok)
	first.Roles[0] = "user"
	first.Roles = append(first.Roles, "guest")
	first.Permissions[0] = "user:read"

	second, ok := r.Lookup("user.delete")
	require.True(t, ok)
	assert.Equal(t, []string{"admin", "super_admin"}, second.Roles)
	assert.Equal(t, []string{"user:delete"}, second.Permissions)
}
