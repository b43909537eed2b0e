// Package authz implements request-time authorization.
//
// The authorization flow:
//  1. Every operation declares a Requirement in a Registry at startup.
//  2. The Guard looks the Requirement up; public operations are allowed
//     without resolving an identity.
//  3. Otherwise the Guard resolves the bearer credential into a Principal.
//  4. The Engine decides Allow or Deny from the Principal and Requirement.
//
// Role lists are OR (any one role suffices) and permission lists are AND
// (every permission is needed); when both are declared both must pass.
//
// Usage:
//
//	reg := authz.NewRegistry()
//	reg.MustRegister("role.create", authz.Requirement{
//	    Roles:       []string{"admin"},
//	    Permissions: []string{"role:manage"},
//	})
//	guard := authz.NewGuard(reg, resolver)
//	id, err := guard.Authorize(ctx, "role.create", r.Header.Get("Authorization"))
package authz

import (
	"strings"
)

// Permission is a "resource:action" capability.
type Permission struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// String returns the "resource:action" form.
func (p Permission) String() string {
	return p.Resource + ":" + p.Action
}

// ParsePermission splits s at the first colon. It returns false when either
// part is empty after trimming.
func ParsePermission(s string) (Permission, bool) {
	resource, action, ok := strings.Cut(s, ":")
	if !ok {
		return Permission{}, false
	}
	resource = strings.TrimSpace(resource)
	action = strings.TrimSpace(action)
	if resource == "" || action == "" {
		return Permission{}, false
	}
	return Permission{Resource: resource, Action: action}, true
}

// Requirement is the static declaration attached to an operation.
type Requirement struct {
	// Public operations are allowed without an identity.
	Public bool `json:"public,omitempty"`

	// Roles are alternatives: holding any one of them passes.
	Roles []string `json:"roles,omitempty"`

	// Permissions are "resource:action" strings that must all be held.
	// Malformed entries are ignored.
	Permissions []string `json:"permissions,omitempty"`
}

// Public returns a requirement that always allows.
func Public() Requirement {
	return Requirement{Public: true}
}

// Authenticated returns a requirement satisfied by any resolved principal.
func Authenticated() Requirement {
	return Requirement{}
}

// HasConstraints reports whether the requirement declares roles or permissions.
func (r Requirement) HasConstraints() bool {
	return len(r.Roles) > 0 || len(r.Permissions) > 0
}

// DenyReason classifies a Deny decision.
type DenyReason string

const (
	ReasonNone                   DenyReason = ""
	ReasonAuthenticationRequired DenyReason = "AuthenticationRequired"
	ReasonRoleRequired           DenyReason = "RoleRequired"
	ReasonPermissionRequired     DenyReason = "PermissionRequired"
)

// Decision is the value computed by the Engine.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`

	// MissingRoles is the required role list when no role matched.
	MissingRoles []string `json:"missing_roles,omitempty"`

	// MissingPermissions are the well-formed permissions not held.
	MissingPermissions []string `json:"missing_permissions,omitempty"`
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Message names the unmet requirements, for example
// "required roles: admin, moderator; required permissions: user:read".
func (d Decision) Message() string {
	var parts []string
	if len(d.MissingRoles) > 0 {
		parts = append(parts, "required roles: "+strings.Join(d.MissingRoles, ", "))
	}
	if len(d.MissingPermissions) > 0 {
		parts = append(parts, "required permissions: "+strings.Join(d.MissingPermissions, ", "))
	}
	return strings.Join(parts, "; ")
}
