package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

func newSessionManager(t *testing.T) (*shared.SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewSessionManager(client, "odyssey_session", time.Hour, false), mr
}

func TestDevSessionAndLogout(t *testing.T) {
	sessions, mr := newSessionManager(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Route("/auth", NewHandler(logger, sessions, true).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/dev/session", strings.NewReader(`{"principal_id":"u-1"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, mr.Exists("session:"+cookies[0].Value))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookies[0])
	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	require.NotNil(t, sess)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.False(t, mr.Exists("session:"+cookies[0].Value))
}

func TestDevSessionValidation(t *testing.T) {
	sessions, _ := newSessionManager(t)
	r := chi.NewRouter()
	r.Route("/auth", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), sessions, true).MountRoutes)

	for _, body := range []string{`{"principal_id":""}`, `{`} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/dev/session", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestDevSessionDisabledOutsideDevelopment(t *testing.T) {
	sessions, _ := newSessionManager(t)
	r := chi.NewRouter()
	r.Route("/auth", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), sessions, false).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/dev/session", strings.NewReader(`{"principal_id":"u-1"}`)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
