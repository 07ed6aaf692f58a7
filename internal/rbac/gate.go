package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-ops/internal/access"
	"github.com/odyssey-erp/odyssey-ops/internal/observability"
	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

// Authenticator yields the caller identity for the current request or
// fails with shared.ErrUnauthenticated.
type Authenticator interface {
	Authenticate(ctx context.Context) (AuthContext, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context) (AuthContext, error)

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context) (AuthContext, error) {
	return f(ctx)
}

// RoleSource resolves role names for a principal.
type RoleSource interface {
	ResolveRoles(ctx context.Context, principalID string) ([]string, error)
}

// Gate authenticates callers, resolves their roles and evaluates permission
// requirements against the matrix. It never builds row filters.
type Gate struct {
	auth    Authenticator
	roles   RoleSource
	matrix  *access.Matrix
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewGate wires a Gate.
func NewGate(auth Authenticator, roles RoleSource, matrix *access.Matrix, logger *slog.Logger, metrics *observability.Metrics) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{auth: auth, roles: roles, matrix: matrix, logger: logger, metrics: metrics}
}

// Matrix exposes the policy the gate evaluates.
func (g *Gate) Matrix() *access.Matrix {
	return g.matrix
}

// Identify authenticates the caller and attaches resolved roles without
// requiring any permission.
func (g *Gate) Identify(ctx context.Context) (AuthContext, error) {
	ac, err := g.auth.Authenticate(ctx)
	if err != nil {
		return AuthContext{}, err
	}
	if ac.PrincipalID == "" {
		return AuthContext{}, shared.ErrUnauthenticated
	}
	roles, err := g.roles.ResolveRoles(ctx, ac.PrincipalID)
	if err != nil {
		return AuthContext{}, err
	}
	ac.Roles = roles
	return ac.clone(), nil
}

// Check authorises the caller for perm and returns a fresh AuthContext.
func (g *Gate) Check(ctx context.Context, perm access.Permission) (AuthContext, error) {
	return g.CheckAny(ctx, perm)
}

// CheckAny authorises the caller when any role holds any of perms.
func (g *Gate) CheckAny(ctx context.Context, perms ...access.Permission) (AuthContext, error) {
	if len(perms) == 0 {
		return AuthContext{}, fmt.Errorf("%w: empty permission requirement", shared.ErrConfiguration)
	}
	for _, p := range perms {
		if err := g.validate(p); err != nil {
			return AuthContext{}, err
		}
	}
	primary := perms[0]

	ac, err := g.Identify(ctx)
	if err != nil {
		outcome := observability.OutcomeError
		if errors.Is(err, shared.ErrUnauthenticated) {
			outcome = observability.OutcomeUnauthenticated
		}
		g.metrics.ObserveDecision(string(primary.Resource), string(primary.Action), outcome)
		return AuthContext{}, err
	}

	for _, p := range perms {
		if g.matrix.AnyRoleHasPermission(ac.Roles, p.Resource, p.Action) {
			g.metrics.ObserveDecision(string(p.Resource), string(p.Action), observability.OutcomeAllowed)
			return ac, nil
		}
	}

	g.metrics.ObserveDecision(string(primary.Resource), string(primary.Action), observability.OutcomeForbidden)
	g.logger.Debug("authorization denied",
		slog.String("principal", ac.PrincipalID),
		slog.Any("roles", ac.Roles),
		slog.String("permission", primary.String()),
	)
	return AuthContext{}, fmt.Errorf("%w: %s", shared.ErrForbidden, primary)
}

func (g *Gate) validate(p access.Permission) error {
	if !g.matrix.HasResource(p.Resource) {
		return fmt.Errorf("%w: unknown resource %q", shared.ErrConfiguration, p.Resource)
	}
	if _, err := access.ParseAction(string(p.Action)); err != nil {
		return err
	}
	return nil
}

// Authorize runs body exactly once when the caller holds perm. On any failure
// body is not invoked.
func Authorize[T any](ctx context.Context, g *Gate, perm access.Permission, body func(context.Context, AuthContext) (T, error)) (T, error) {
	ac, err := g.Check(ctx, perm)
	if err != nil {
		var zero T
		return zero, err
	}
	return body(ctx, ac)
}
