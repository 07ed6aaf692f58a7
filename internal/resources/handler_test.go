package resources_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ops/internal/access"
	"github.com/odyssey-erp/odyssey-ops/internal/resources"
)

func newResourceRouter(t *testing.T) (http.Handler, *fixture) {
	t.Helper()
	f := newFixture(t)
	r := chi.NewRouter()
	r.Route("/api", resources.NewHandler(nil, f.svc).MountRoutes)
	return r, f
}

func call(h http.Handler, principal, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if principal != "" {
		req = req.WithContext(as(principal))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

func TestHandlerCRUD(t *testing.T) {
	router, _ := newResourceRouter(t)

	rr := call(router, "emp", http.MethodPost, "/api/tasks", `{"title":"Write report","status":"open"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	var created map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &created))
	id := created["id"].(string)
	assert.Equal(t, profEmp, created["created_by"])

	rr = call(router, "emp", http.MethodGet, "/api/tasks?status=open&limit=5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	var list []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)

	rr = call(router, "emp", http.MethodPatch, "/api/tasks/"+id, `{"status":"done"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = call(router, "emp", http.MethodGet, "/api/tasks/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"done"`)

	rr = call(router, "emp", http.MethodDelete, "/api/tasks/"+id, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = call(router, "emp", http.MethodDelete, "/api/tasks/"+id+"?hard=true", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = call(router, "emp", http.MethodGet, "/api/tasks/"+id, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerErrors(t *testing.T) {
	router, _ := newResourceRouter(t)

	assert.Equal(t, http.StatusUnauthorized, call(router, "", http.MethodGet, "/api/tasks", "").Code)
	assert.Equal(t, http.StatusForbidden, call(router, "nobody", http.MethodGet, "/api/tasks", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(router, "emp", http.MethodGet, "/api/widgets", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(router, "emp", http.MethodGet, "/api/tasks?limit=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(router, "emp", http.MethodPost, "/api/tasks", `{not json`).Code)
	assert.Equal(t, http.StatusNotFound, call(router, "emp", http.MethodDelete, "/api/tasks/missing?hard=1", "").Code)
}

func TestHandlerRejectsMalformedQueryFlags(t *testing.T) {
	router, f := newResourceRouter(t)
	f.seedTasks(t)

	assert.Equal(t, http.StatusBadRequest, call(router, "emp", http.MethodGet, "/api/tasks?desc=maybe", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(router, "emp", http.MethodDelete, "/api/tasks/"+task1+"?hard=yes", "").Code)
	assert.Equal(t, 4, f.store.Len(f.schema(t, access.ResourceTasks)))

	assert.Equal(t, http.StatusOK, call(router, "emp", http.MethodGet, "/api/tasks?desc=true", "").Code)
	assert.Equal(t, http.StatusNoContent, call(router, "emp", http.MethodDelete, "/api/tasks/"+task1+"?hard=1", "").Code)
}

func TestHandlerCoercesQueryAndPathValues(t *testing.T) {
	router, _ := newResourceRouter(t)

	rr := call(router, "adm", http.MethodPost, "/api/interviews", `{"candidate_id":"`+candidate1+`","scheduled_at":"2025-03-02T10:00:00Z","score":5}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = call(router, "adm", http.MethodGet, "/api/interviews?score=5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	var list []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.EqualValues(t, 5, list[0]["score"])

	assert.Equal(t, http.StatusBadRequest, call(router, "adm", http.MethodGet, "/api/interviews?score=high", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(router, "adm", http.MethodPost, "/api/interviews", `{"candidate_id":"c-1","scheduled_at":"2025-03-02T10:00:00Z"}`).Code)
	assert.Equal(t, http.StatusNotFound, call(router, "adm", http.MethodGet, "/api/interviews/not-a-uuid", "").Code)
}
