package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ops/internal/access"
)

func TestMiddlewareRequire(t *testing.T) {
	f := newGateFixture(t)
	f.bindings.Bind("sales-1", "sales")
	f.bindings.Bind("viewer-1", "viewer")
	mw := Middleware{Gate: f.gate}

	var seen AuthContext
	handler := mw.Require(access.ResourceDeals, access.ActionCreate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AuthFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		principal string
		want      int
	}{
		{"sales-1", http.StatusNoContent},
		{"viewer-1", http.StatusForbidden},
		{"", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/deals", nil)
		if tc.principal != "" {
			req = req.WithContext(asPrincipal(tc.principal))
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, tc.want, rr.Code, tc.principal)
	}
	assert.Equal(t, "sales-1", seen.PrincipalID)
	assert.Equal(t, []string{"sales"}, seen.Roles)
}

func TestMiddlewareAuthenticated(t *testing.T) {
	f := newGateFixture(t)
	mw := Middleware{Gate: f.gate}
	handler := mw.Authenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := AuthFromContext(r.Context())
		require.True(t, ok)
		assert.Empty(t, ac.Roles)
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(asPrincipal("nobody")))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
