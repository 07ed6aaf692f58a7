package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionManager reads and writes cookie based sessions backed by Redis. The
// identity provider issues sessions; the access layer only needs to resolve
// the principal behind a request.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session holds the authenticated principal for a request.
type Session struct {
	ID          string
	PrincipalID string
	IssuedAt    time.Time
}

type sessionPayload struct {
	PrincipalID string    `json:"principal_id"`
	IssuedAt    time.Time `json:"issued_at"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Load returns the session referenced by the request cookie. A missing cookie
// or an expired session yields nil without error.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}
	id := strings.TrimSpace(cookie.Value)
	if id == "" {
		return nil, nil
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: shared/session: load: %w", ErrDependency, err)
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("shared/session: decode: %w", err)
	}
	if stored.PrincipalID == "" {
		return nil, nil
	}
	return &Session{ID: id, PrincipalID: stored.PrincipalID, IssuedAt: stored.IssuedAt}, nil
}

// Issue stores a new session for the principal and sets the cookie.
func (sm *SessionManager) Issue(ctx context.Context, w http.ResponseWriter, principalID string) (*Session, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return nil, errors.New("shared/session: principal required")
	}
	sess := &Session{ID: uuid.NewString(), PrincipalID: principalID, IssuedAt: time.Now().UTC()}
	data, err := json.Marshal(sessionPayload{PrincipalID: sess.PrincipalID, IssuedAt: sess.IssuedAt})
	if err != nil {
		return nil, err
	}
	if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
		return nil, fmt.Errorf("%w: shared/session: store: %w", ErrDependency, err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return sess, nil
}

// Destroy removes the session and clears the cookie.
func (sm *SessionManager) Destroy(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}
	if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("shared/session: destroy: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}
