package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntrospectionRouter(t *testing.T) (http.Handler, *gateFixture) {
	t.Helper()
	f := newGateFixture(t)
	h := NewHandler(nil, f.gate.Matrix(), Middleware{Gate: f.gate})
	r := chi.NewRouter()
	r.Route("/access", h.MountRoutes)
	return r, f
}

func serve(h http.Handler, principal, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if principal != "" {
		req = req.WithContext(asPrincipal(principal))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerMe(t *testing.T) {
	router, f := newIntrospectionRouter(t)
	f.bindings.Bind("u1", "recruiter")

	rr := serve(router, "u1", "/access/me")
	require.Equal(t, http.StatusOK, rr.Code)

	var body meResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "u1", body.PrincipalID)
	assert.Equal(t, []string{"recruiter"}, body.Roles)
	assert.Equal(t, []string{"ats", "operations"}, body.Modules)

	assert.Equal(t, http.StatusUnauthorized, serve(router, "", "/access/me").Code)
}

func TestHandlerRolesWithPermission(t *testing.T) {
	router, f := newIntrospectionRouter(t)
	f.bindings.Bind("admin-1", "admin")
	f.bindings.Bind("emp-1", "employee")

	rr := serve(router, "admin-1", "/access/permissions/invoices/delete")
	require.Equal(t, http.StatusOK, rr.Code)
	var body permissionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "invoices:delete", body.Permission)
	assert.Equal(t, []string{"admin", "finance", "superadmin"}, body.Roles)

	assert.Equal(t, http.StatusBadRequest, serve(router, "admin-1", "/access/permissions/widgets/read").Code)
	assert.Equal(t, http.StatusForbidden, serve(router, "emp-1", "/access/permissions/invoices/delete").Code)
}

func TestHandlerOutranks(t *testing.T) {
	router, f := newIntrospectionRouter(t)
	f.bindings.Bind("admin-1", "admin")

	rr := serve(router, "admin-1", "/access/roles/manager/outranks/employee")
	require.Equal(t, http.StatusOK, rr.Code)
	var body outranksResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Outranks)

	rr = serve(router, "admin-1", "/access/roles/viewer/outranks/hr")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.Outranks)

	assert.Equal(t, http.StatusNotFound, serve(router, "admin-1", "/access/roles/ghost/outranks/hr").Code)
}

func TestHandlerInvalidateRefreshesRoles(t *testing.T) {
	f := newGateFixture(t)
	h := NewHandler(nil, f.gate.Matrix(), Middleware{Gate: f.gate}).WithInvalidator(f.resolver)
	router := chi.NewRouter()
	router.Route("/access", h.MountRoutes)

	f.bindings.Bind("root", "superadmin")
	f.bindings.Bind("admin-1", "admin")
	f.bindings.Bind("u1", "employee")
	require.Equal(t, http.StatusOK, serve(router, "u1", "/access/me").Code)

	f.bindings.Bind("u1", "manager")
	var body meResponse
	rr := serve(router, "u1", "/access/me")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []string{"employee"}, body.Roles)

	post := func(principal string) int {
		req := httptest.NewRequest(http.MethodPost, "/access/principals/u1/invalidate", nil)
		req = req.WithContext(asPrincipal(principal))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusForbidden, post("admin-1"))
	assert.Equal(t, http.StatusNoContent, post("root"))

	rr = serve(router, "u1", "/access/me")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []string{"manager"}, body.Roles)
}

func TestHandlerWithoutInvalidator(t *testing.T) {
	router, f := newIntrospectionRouter(t)
	f.bindings.Bind("root", "superadmin")

	req := httptest.NewRequest(http.MethodPost, "/access/principals/u1/invalidate", nil)
	req = req.WithContext(asPrincipal("root"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
