package authz

import (
	"context"
	"sync"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/infra/tracing"
	"github.com/kart-io/sentinel-iam/pkg/security/auth"
)

// TracerName names the tracer of the guard spans.
const TracerName = "github.com/kart-io/sentinel-iam/pkg/security/authz"

// IdentityResolver turns an Authorization header value into an identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (*auth.Identity, error)
}

// Guard enforces the registered requirement of an operation.
//
// Evaluation is strictly ordered: requirement lookup, public short-circuit,
// identity resolution, then the policy decision. Guard has no side effects
// apart from logging and may be evaluated any number of times.
type Guard struct {
	registry *Registry
	resolver IdentityResolver
	decider  Decider
	tracer   trace.Tracer

	// unregistered remembers operations already warned about.
	unregistered sync.Map
}

// GuardOption is a functional option for Guard.
type GuardOption func(*Guard)

// WithDecider replaces the default Engine.
func WithDecider(d Decider) GuardOption {
	return func(g *Guard) {
		if d != nil {
			g.decider = d
		}
	}
}

// WithTracerProvider sets the provider of the guard spans. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) GuardOption {
	return func(g *Guard) {
		if tp != nil {
			g.tracer = tp.Tracer(TracerName)
		}
	}
}

// NewGuard creates a Guard.
func NewGuard(registry *Registry, resolver IdentityResolver, opts ...GuardOption) *Guard {
	g := &Guard{
		registry: registry,
		resolver: resolver,
		decider:  NewEngine(),
		tracer:   otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Requirement returns the requirement enforced for operation. Operations
// that were never registered require authentication only.
func (g *Guard) Requirement(operation string) Requirement {
	req, ok := g.registry.Lookup(operation)
	if ok {
		return req
	}
	if _, warned := g.unregistered.LoadOrStore(operation, struct{}{}); !warned {
		logger.Warnw("operation has no registered requirement, requiring authentication only",
			"operation", operation)
	}
	return Authenticated()
}

// Authorize decides whether credential may invoke operation.
//
// It returns a nil identity and nil error for public operations. Identity
// failures are returned as Unauthenticated errors without consulting the
// policy; a Deny decision is returned as a Forbidden error naming the unmet
// requirements.
func (g *Guard) Authorize(ctx context.Context, operation, credential string) (*auth.Identity, error) {
	ctx, span := g.tracer.Start(ctx, "authz.Authorize",
		trace.WithAttributes(attribute.String(tracing.AuthzOperation, operation)))
	defer span.End()

	req := g.Requirement(operation)
	span.SetAttributes(attribute.Bool(tracing.AuthzPublic, req.Public))
	if req.Public {
		return nil, nil
	}

	id, err := g.resolve(ctx, credential)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String(tracing.AuthzSubject, id.Principal.ID))

	if d := g.decide(ctx, id.Principal, req); !d.Allowed {
		err := DenyError(d)
		tracing.RecordError(span, err)
		return nil, err
	}
	return id, nil
}

func (g *Guard) resolve(ctx context.Context, credential string) (*auth.Identity, error) {
	ctx, span := g.tracer.Start(ctx, "authz.Resolve")
	defer span.End()

	id, err := g.resolver.Resolve(ctx, credential)
	if err == nil && (id == nil || id.Principal == nil) {
		err = errors.ErrPrincipalNotFound
	}
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return id, nil
}

func (g *Guard) decide(ctx context.Context, p *auth.Principal, req Requirement) Decision {
	_, span := g.tracer.Start(ctx, "authz.Decide")
	defer span.End()

	d := g.decider.Decide(p, req)
	span.SetAttributes(attribute.Bool(tracing.AuthzAllowed, d.Allowed))
	if !d.Allowed {
		span.SetAttributes(
			attribute.String(tracing.AuthzReason, string(d.Reason)),
			attribute.StringSlice(tracing.AuthzMissingRoles, d.MissingRoles),
			attribute.StringSlice(tracing.AuthzMissingPerms, d.MissingPermissions),
		)
		span.SetStatus(codes.Error, string(d.Reason))
	}
	return d
}

// DenyError translates a Deny decision into an error.
func DenyError(d Decision) *errors.Errno {
	switch d.Reason {
	case ReasonAuthenticationRequired:
		return errors.ErrAuthenticationRequired
	case ReasonRoleRequired:
		return errors.ErrRoleRequired.WithMessages(d.Message(), "权限不足: "+d.Message())
	case ReasonPermissionRequired:
		return errors.ErrPermissionRequired.WithMessages(d.Message(), "权限不足: "+d.Message())
	default:
		return errors.ErrForbidden
	}
}
