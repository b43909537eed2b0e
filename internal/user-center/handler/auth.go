package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/internal/user-center/biz"
	authmw "github.com/kart-io/sentinel-iam/pkg/infra/middleware/auth"
	"github.com/kart-io/sentinel-iam/pkg/security/auth"
	"github.com/kart-io/sentinel-iam/pkg/security/auth/identity"
)

// AuthHandler handles authentication HTTP requests.
type AuthHandler struct {
	svc *biz.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *biz.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=128"`
	Password string `json:"password" validate:"required,max=72"`
}

// RefreshRequest is the request body for refresh. The token may also be
// sent as a bearer credential.
type RefreshRequest struct {
	Token string `json:"token"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		authmw.Write(c, err, nil)
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}
	authmw.Write(c, nil, model.NewTokenView(token))
}

// Refresh exchanges a token for a new one.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	_ = c.ShouldBindJSON(&req)

	token := req.Token
	if token == "" {
		var err error
		token, err = identity.ExtractBearer(c.GetHeader(authmw.HeaderAuthorization))
		if err != nil {
			authmw.Write(c, err, nil)
			return
		}
	}

	refreshed, err := h.svc.Refresh(c.Request.Context(), token)
	if err != nil {
		authmw.Write(c, err, nil)
		return
	}
	authmw.Write(c, nil, model.NewTokenView(refreshed))
}

// Logout revokes the caller's token.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.svc.Logout(ctx, auth.TokenFromContext(ctx)); err != nil {
		authmw.Write(c, err, nil)
		return
	}
	authmw.Write(c, nil, gin.H{"logged_out": true})
}

// Me returns the caller's principal.
func (h *AuthHandler) Me(c *gin.Context) {
	v, err := h.svc.Me(c.Request.Context())
	authmw.Write(c, err, v)
}
