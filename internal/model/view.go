package model

import (
	"github.com/kart-io/sentinel-iam/pkg/security/auth"
	"github.com/kart-io/sentinel-iam/pkg/security/authz/fieldaccess"
)

// UserView is the response shape of a user. Contact details and audit
// columns are restricted by field rules.
type UserView struct {
	ID        uint64   `json:"id"`
	Email     string   `json:"email"`
	Mobile    string   `json:"mobile,omitempty"`
	Role      string   `json:"role"`
	ProfileID string   `json:"profile_id,omitempty"`
	Status    int      `json:"status"`
	Roles     []string `json:"roles"`
	CreatedAt int64    `json:"created_at"`
	CreatedBy uint64   `json:"created_by"`
}

// NewUserView projects u and its assigned role names.
func NewUserView(u *User, roles []string) *UserView {
	if roles == nil {
		roles = []string{}
	}
	return &UserView{
		ID:        u.ID,
		Email:     u.Email,
		Mobile:    u.Mobile,
		Role:      u.Role,
		ProfileID: u.ProfileID,
		Status:    u.Status,
		Roles:     roles,
		CreatedAt: u.CreatedAt,
		CreatedBy: u.CreatedBy,
	}
}

// AuditLogView is the response shape of an audit row. Client network
// details are visible to admins only.
type AuditLogView struct {
	ID         uint64 `json:"id"`
	UserID     uint64 `json:"user_id"`
	Action     string `json:"action"`
	Resource   string `json:"resource"`
	ResourceID string `json:"resource_id"`
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
	IPAddress  string `json:"ip_address"`
	UserAgent  string `json:"user_agent"`
	RequestID  string `json:"request_id"`
	CreatedAt  int64  `json:"created_at"`
}

// NewAuditLogView projects l.
func NewAuditLogView(l *AuditLog) *AuditLogView {
	return &AuditLogView{
		ID:         l.ID,
		UserID:     l.UserID,
		Action:     l.Action,
		Resource:   l.Resource,
		ResourceID: l.ResourceID,
		Status:     l.Status,
		Detail:     l.Detail,
		IPAddress:  l.IPAddress,
		UserAgent:  l.UserAgent,
		RequestID:  l.RequestID,
		CreatedAt:  l.CreatedAt,
	}
}

// PrincipalView is the caller's own identity as returned by /auth/me.
type PrincipalView struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	Role        string         `json:"role"`
	ProfileID   string         `json:"profile_id,omitempty"`
	Roles       []string       `json:"roles"`
	Permissions []string       `json:"permissions"`
	Claims      map[string]any `json:"claims,omitempty"`
}

// NewPrincipalView projects p.
func NewPrincipalView(p *auth.Principal) *PrincipalView {
	v := &PrincipalView{
		ID:          p.ID,
		Email:       p.Email,
		Role:        string(p.Role),
		ProfileID:   p.ProfileID,
		Roles:       append([]string{}, p.Roles...),
		Permissions: append([]string{}, p.Permissions...),
	}
	if len(p.Claims) > 0 {
		v.Claims = make(map[string]any, len(p.Claims))
		for k, val := range p.Claims {
			v.Claims[k] = val
		}
	}
	return v
}

// TokenView is returned by login and refresh.
type TokenView struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
	ExpiresIn   int64  `json:"expires_in"`
}

// NewTokenView projects a signed token.
func NewTokenView(t auth.Token) *TokenView {
	return &TokenView{
		AccessToken: t.GetAccessToken(),
		TokenType:   t.GetTokenType(),
		ExpiresAt:   t.GetExpiresAt(),
		ExpiresIn:   t.GetExpiresIn(),
	}
}

func init() {
	fieldaccess.Register(UserView{},
		fieldaccess.Rule{Field: "email", Roles: []string{string(auth.RoleAdmin), string(auth.RoleUser)}},
		fieldaccess.Rule{Field: "mobile", Roles: []string{string(auth.RoleAdmin)}},
		fieldaccess.Rule{Field: "created_by", Roles: []string{string(auth.RoleAdmin)}},
	)
	fieldaccess.Register(AuditLogView{},
		fieldaccess.Rule{Field: "ip_address", Roles: []string{string(auth.RoleAdmin)}},
		fieldaccess.Rule{Field: "user_agent", Roles: []string{string(auth.RoleAdmin)}},
	)
}
