package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-ops/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

// Handler manages session lifecycle endpoints. Sessions are normally issued
// by the identity provider; development mode may issue them directly.
type Handler struct {
	logger         *slog.Logger
	sessionManager *shared.SessionManager
	validator      *validator.Validate
	devSessions    bool
}

// NewHandler creates a new auth handler.
func NewHandler(logger *slog.Logger, sessionManager *shared.SessionManager, devSessions bool) *Handler {
	return &Handler{
		logger:         logger,
		sessionManager: sessionManager,
		validator:      validator.New(),
		devSessions:    devSessions,
	}
}

// MountRoutes registers auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/logout", h.handleLogout)
	if h.devSessions {
		r.Post("/dev/session", h.handleDevSession)
	}
}

type devSessionRequest struct {
	PrincipalID string `json:"principal_id" validate:"required,max=128"`
}

func (h *Handler) handleDevSession(w http.ResponseWriter, r *http.Request) {
	var req devSessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sess, err := h.sessionManager.Issue(r.Context(), w, req.PrincipalID)
	if err != nil {
		h.logger.Error("issue dev session", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Warn("development session issued", slog.String("principal", sess.PrincipalID))
	httpx.JSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.sessionManager.Destroy(r.Context(), w, sess); err != nil {
			h.logger.Warn("destroy session", slog.Any("error", err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
