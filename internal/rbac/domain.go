// Package rbac resolves the roles bound to a principal, caches them for a
// bounded time and gates operations on the policy matrix.
package rbac

import "context"

// AuthContext is the request-scoped identity of a caller. It is built fresh
// for every request and never persisted.
type AuthContext struct {
	// PrincipalID is the external identity id.
	PrincipalID string
	// ProfileID is the internal profile id stamped into ownership columns.
	ProfileID string
	// DepartmentID is optional.
	DepartmentID string
	// Roles are attached by the Gate after resolution.
	Roles []string
}

// HasDepartment reports whether the caller belongs to a department.
func (a AuthContext) HasDepartment() bool {
	return a.DepartmentID != ""
}

func (a AuthContext) clone() AuthContext {
	a.Roles = append([]string(nil), a.Roles...)
	return a
}

type authContextKey struct{}

// ContextWithAuth stores an authorised AuthContext in ctx.
func ContextWithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// AuthFromContext returns the AuthContext stored by the middleware.
func AuthFromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey{}).(AuthContext)
	return ac, ok
}
