package auth

import (
	"strings"
	"unicode"
)

// Role is the primary role stored on a user record.
type Role string

const (
	RolePublic Role = "public"
	RoleUser   Role = "user"
	RoleCustom Role = "custom"
	RoleAdmin  Role = "admin"
)

// Roles lists every primary role value.
var Roles = []Role{RolePublic, RoleUser, RoleCustom, RoleAdmin}

// NormalizeRole is the single role comparison key: it lowercases s and
// strips underscores and whitespace, so "Super_Admin" and "superadmin" match.
// Every role comparison in the module goes through it.
func NormalizeRole(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// ParseRole maps a role string onto the enum using NormalizeRole.
// It returns false for unknown values.
func ParseRole(s string) (Role, bool) {
	n := NormalizeRole(s)
	for _, r := range Roles {
		if string(r) == n {
			return r, true
		}
	}
	return "", false
}

// String implements fmt.Stringer.
func (r Role) String() string { return string(r) }

// Principal is the authenticated identity attached to a request.
// It is built fresh for every request and never persisted.
type Principal struct {
	// ID is the user id (decimal string).
	ID string `json:"id"`

	// Email is the user email.
	Email string `json:"email"`

	// Role is the primary role.
	Role Role `json:"role"`

	// ProfileID is the optional profile id.
	ProfileID string `json:"profile_id,omitempty"`

	// Roles are the names of roles assigned through user-role grants.
	Roles []string `json:"roles,omitempty"`

	// Permissions is the deduplicated "resource:action" set granted by Roles.
	Permissions []string `json:"permissions,omitempty"`

	// Claims is the optional extension map copied from the token.
	// Core fields are never read from it.
	Claims map[string]interface{} `json:"claims,omitempty"`
}

// RoleNames returns the primary role followed by the assigned role names.
func (p *Principal) RoleNames() []string {
	if p == nil {
		return []string{string(RolePublic)}
	}
	names := make([]string, 0, len(p.Roles)+1)
	if p.Role != "" {
		names = append(names, string(p.Role))
	}
	return append(names, p.Roles...)
}

// Claim returns an extension claim.
func (p *Principal) Claim(key string) (interface{}, bool) {
	if p == nil || p.Claims == nil {
		return nil, false
	}
	v, ok := p.Claims[key]
	return v, ok
}

// Identity is the outcome of resolving a bearer credential: the principal
// together with the verified claims and the raw token.
type Identity struct {
	Principal *Principal
	Claims    *Claims
	Token     string
}
