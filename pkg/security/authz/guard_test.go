package authz

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/security/auth"
)

// recorder appends every collaborator call so tests can assert ordering.
type recorder struct {
	calls []string
}

type stubResolver struct {
	rec        *recorder
	principals map[string]*auth.Principal
}

func (s *stubResolver) Resolve(_ context.Context, credential string) (*auth.Identity, error) {
	s.rec.calls = append(s.rec.calls, "resolve")
	p, ok := s.principals[credential]
	if !ok {
		return nil, errors.ErrInvalidToken
	}
	return &auth.Identity{Principal: p, Token: credential}, nil
}

type recordingDecider struct {
	rec *recorder
}

func (d recordingDecider) Decide(p *auth.Principal, r Requirement) Decision {
	d.rec.calls = append(d.rec.calls, "decide")
	return NewEngine().Decide(p, r)
}

func newGuard(t *testing.T, opts ...GuardOption) (*Guard, *recorder) {
	t.Helper()

	reg := NewRegistry()
	reg.MustRegister("health.check", Public())
	reg.MustRegister("role.create", Requirement{Roles: []string{"admin"}})
	reg.MustRegister("user.list", Requirement{Permissions: []string{"user:read"}})

	rec := &recorder{}
	resolver := &stubResolver{rec: rec, principals: map[string]*auth.Principal{
		"Bearer user":  {ID: "1", Role: auth.RoleUser, Permissions: []string{"user:read"}},
		"Bearer admin": {ID: "2", Role: auth.RoleAdmin},
	}}
	opts = append([]GuardOption{WithDecider(recordingDecider{rec: rec})}, opts...)
	return NewGuard(reg, resolver, opts...), rec
}

func TestGuard_PublicSkipsIdentity(t *testing.T) {
	g, rec := newGuard(t)

	id, err := g.Authorize(context.Background(), "health.check", "")
	require.NoError(t, err)
	assert.Nil(t, id)

	_, err = g.Authorize(context.Background(), "health.check", "Bearer garbage")
	require.NoError(t, err)
	assert.Empty(t, rec.calls)
}

func TestGuard_UnauthenticatedBeforeRoleCheck(t *testing.T) {
	g, rec := newGuard(t)

	_, err := g.Authorize(context.Background(), "role.create", "")
	require.Error(t, err)
	assert.True(t, errors.IsUnauthenticated(err))
	assert.False(t, errors.IsForbidden(err))
	assert.Equal(t, []string{"resolve"}, rec.calls)
}

func TestGuard_ForbiddenNamesRoles(t *testing.T) {
	g, rec := newGuard(t)

	_, err := g.Authorize(context.Background(), "role.create", "Bearer user")
	require.Error(t, err)
	assert.True(t, errors.IsForbidden(err))
	assert.True(t, stderrors.Is(err, errors.ErrRoleRequired))
	assert.Contains(t, errors.FromError(err).Message("en"), "admin")
	assert.Equal(t, []string{"resolve", "decide"}, rec.calls)
}

func TestGuard_Allows(t *testing.T) {
	g, _ := newGuard(t)

	id, err := g.Authorize(context.Background(), "role.create", "Bearer admin")
	require.NoError(t, err)
	assert.Equal(t, "2", id.Principal.ID)

	id, err = g.Authorize(context.Background(), "user.list", "Bearer user")
	require.NoError(t, err)
	assert.Equal(t, "1", id.Principal.ID)
}

func TestGuard_PermissionDenied(t *testing.T) {
	g, _ := newGuard(t)

	_, err := g.Authorize(context.Background(), "user.list", "Bearer admin")
	assert.True(t, stderrors.Is(err, errors.ErrPermissionRequired))
	assert.Equal(t, "required permissions: user:read", errors.FromError(err).Message("en"))
}

func TestGuard_UnregisteredRequiresAuthentication(t *testing.T) {
	g, _ := newGuard(t)

	_, err := g.Authorize(context.Background(), "report.export", "")
	assert.True(t, errors.IsUnauthenticated(err))

	id, err := g.Authorize(context.Background(), "report.export", "Bearer user")
	require.NoError(t, err)
	assert.NotNil(t, id)
}

func TestGuard_Idempotent(t *testing.T) {
	g, _ := newGuard(t)

	for i := 0; i < 3; i++ {
		_, err := g.Authorize(context.Background(), "role.create", "Bearer user")
		assert.True(t, stderrors.Is(err, errors.ErrRoleRequired))
	}
}

func spanNames(spans []sdktrace.ReadOnlySpan) []string {
	names := make([]string, 0, len(spans))
	for _, s := range spans {
		names = append(names, s.Name())
	}
	return names
}

func spanAttr(s sdktrace.ReadOnlySpan, key string) attribute.Value {
	for _, kv := range s.Attributes() {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestGuard_Spans(t *testing.T) {
	tests := []struct {
		name       string
		operation  string
		credential string
		wantSpans  []string
		wantStatus codes.Code
	}{
		{name: "public", operation: "health.check", wantSpans: []string{"authz.Authorize"}, wantStatus: codes.Unset},
		{name: "unauthenticated", operation: "role.create", credential: "Bearer nobody",
			wantSpans: []string{"authz.Resolve", "authz.Authorize"}, wantStatus: codes.Error},
		{name: "forbidden", operation: "role.create", credential: "Bearer user",
			wantSpans: []string{"authz.Resolve", "authz.Decide", "authz.Authorize"}, wantStatus: codes.Error},
		{name: "allowed", operation: "user.list", credential: "Bearer user",
			wantSpans: []string{"authz.Resolve", "authz.Decide", "authz.Authorize"}, wantStatus: codes.Unset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
			g, _ := newGuard(t, WithTracerProvider(tp))

			_, _ = g.Authorize(context.Background(), tt.operation, tt.credential)

			ended := sr.Ended()
			require.Equal(t, tt.wantSpans, spanNames(ended))

			root := ended[len(ended)-1]
			assert.Equal(t, tt.operation, spanAttr(root, "authz.operation").AsString())
			assert.Equal(t, tt.wantStatus, root.Status().Code)
			for _, child := range ended[:len(ended)-1] {
				assert.Equal(t, root.SpanContext().SpanID(), child.Parent().SpanID())
			}
		})
	}
}

func TestGuard_DecideSpanNamesMissing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	g, _ := newGuard(t, WithTracerProvider(tp))

	_, err := g.Authorize(context.Background(), "user.list", "Bearer admin")
	require.Error(t, err)

	decide := sr.Ended()[1]
	require.Equal(t, "authz.Decide", decide.Name())
	assert.False(t, spanAttr(decide, "authz.allowed").AsBool())
	assert.Equal(t, string(ReasonPermissionRequired), spanAttr(decide, "authz.reason").AsString())
	assert.Equal(t, []string{"user:read"}, spanAttr(decide, "authz.missing_permissions").AsStringSlice())
}

func TestDenyError(t *testing.T) {
	assert.True(t, stderrors.Is(DenyError(Decision{Reason: ReasonAuthenticationRequired}), errors.ErrAuthenticationRequired))
	assert.True(t, stderrors.Is(DenyError(Decision{}), errors.ErrForbidden))

	err := DenyError(Decision{Reason: ReasonRoleRequired, MissingRoles: []string{"admin"}})
	assert.Equal(t, "required roles: admin", err.Message("en"))
	assert.Equal(t, 403, err.HTTPStatus())
}
