package authz

import (
	"github.com/kart-io/sentinel-iam/pkg/security/auth"
)

// Decider computes a policy decision.
type Decider interface {
	Decide(p *auth.Principal, r Requirement) Decision
}

// Engine is the default Decider. It holds no state and never fails.
type Engine struct{}

var _ Decider = Engine{}

// NewEngine creates an Engine.
func NewEngine() Engine {
	return Engine{}
}

// Decide evaluates r against p. A nil p is an anonymous caller.
func (Engine) Decide(p *auth.Principal, r Requirement) Decision {
	if r.Public || !r.HasConstraints() {
		return Allow()
	}
	if p == nil {
		return Decision{Reason: ReasonAuthenticationRequired}
	}

	d := Decision{Allowed: true}

	if len(r.Roles) > 0 && !hasAnyRole(p, r.Roles) {
		d.Allowed = false
		d.Reason = ReasonRoleRequired
		d.MissingRoles = append([]string(nil), r.Roles...)
	}

	if missing := missingPermissions(p, r.Permissions); len(missing) > 0 {
		if d.Allowed {
			d.Reason = ReasonPermissionRequired
		}
		d.Allowed = false
		d.MissingPermissions = missing
	}

	return d
}

// HasAnyRole reports whether any of the principal's role names matches any
// of roles after normalization.
func HasAnyRole(p *auth.Principal, roles ...string) bool {
	return hasAnyRole(p, roles)
}

func hasAnyRole(p *auth.Principal, required []string) bool {
	held := make(map[string]struct{})
	for _, name := range p.RoleNames() {
		held[auth.NormalizeRole(name)] = struct{}{}
	}
	for _, role := range required {
		if _, ok := held[auth.NormalizeRole(role)]; ok {
			return true
		}
	}
	return false
}

func missingPermissions(p *auth.Principal, required []string) []string {
	if len(required) == 0 {
		return nil
	}

	held := make(map[Permission]struct{}, len(p.Permissions))
	for _, s := range p.Permissions {
		if perm, ok := ParsePermission(s); ok {
			held[perm] = struct{}{}
		}
	}

	var missing []string
	for _, s := range required {
		perm, ok := ParsePermission(s)
		if !ok {
			continue
		}
		if _, ok := held[perm]; !ok {
			missing = append(missing, perm.String())
		}
	}
	return missing
}
