package auth

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"admin", RoleAdmin, true},
		{"ADMIN", RoleAdmin, true},
		{" User ", RoleUser, true},
		{"cus_tom", RoleCustom, true},
		{"public", RolePublic, true},
		{"moderator", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeRole(t *testing.T) {
	tests := map[string]string{
		"Super_Admin":     "superadmin",
		"super admin":     "superadmin",
		"SUPER_ADMIN ":    "superadmin",
		"\tsuper_\nadmin": "superadmin",
		"role-manager":    "role-manager",
		"":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeRole(in), "input %q", in)
	}
}

func TestPrincipalRoleNames(t *testing.T) {
	var anonymous *Principal
	assert.Equal(t, []string{"public"}, anonymous.RoleNames())

	p := &Principal{ID: "1", Role: RoleUser, Roles: []string{"moderator"}}
	assert.Equal(t, []string{"user", "moderator"}, p.RoleNames())
}

func TestPrincipalJSONHasNoSecrets(t *testing.T) {
	p := &Principal{ID: "7", Email: "a@example.com", Role: RoleAdmin}
	b, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	assert.NotContains(t, m, "password")
	assert.Equal(t, "admin", m["role"])
}

func TestInjectAuth(t *testing.T) {
	p := &Principal{ID: "42", Role: RoleUser}
	claims := &Claims{Subject: "42", ID: "jti"}

	ctx := InjectAuth(context.Background(), p, claims, "tok")

	assert.Same(t, p, PrincipalFromContext(ctx))
	assert.Same(t, claims, ClaimsFromContext(ctx))
	assert.Equal(t, "tok", TokenFromContext(ctx))
	assert.Equal(t, "42", SubjectFromContext(ctx))

	assert.Nil(t, PrincipalFromContext(context.Background()))
	assert.Equal(t, "", SubjectFromContext(context.Background()))
}
