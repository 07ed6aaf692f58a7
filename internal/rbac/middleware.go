package rbac

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-ops/internal/access"
	"github.com/odyssey-erp/odyssey-ops/internal/platform/httpx"
)

// Middleware wires the gate into HTTP handlers.
type Middleware struct {
	Gate   *Gate
	Logger *slog.Logger
}

// Require ensures the caller holds resource:action (or resource:manage).
func (m Middleware) Require(resource access.Resource, action access.Action) func(http.Handler) http.Handler {
	return m.RequireAny(access.Perm(resource, action))
}

// RequireAny ensures the caller holds at least one of perms. The authorised
// AuthContext is stored in the request context.
func (m Middleware) RequireAny(perms ...access.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := m.Gate.CheckAny(r.Context(), perms...)
			if err != nil {
				m.fail(w, r, "rbac require", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithAuth(r.Context(), ac)))
		})
	}
}

// Authenticated only requires an identity with resolved roles.
func (m Middleware) Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, err := m.Gate.Identify(r.Context())
		if err != nil {
			m.fail(w, r, "rbac identify", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithAuth(r.Context(), ac)))
	})
}

func (m Middleware) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError && m.Logger != nil {
		m.Logger.Error(msg, slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
