package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ops/internal/access"
	"github.com/odyssey-erp/odyssey-ops/internal/platform/httpx"
)

// Invalidator drops cached role resolutions.
type Invalidator interface {
	Invalidate(ctx context.Context, principalID string) error
}

// Handler exposes introspection of the policy matrix and, when an
// invalidator is set, an operator endpoint to drop cached roles.
type Handler struct {
	logger      *slog.Logger
	matrix      *access.Matrix
	rbac        Middleware
	invalidator Invalidator
}

// NewHandler builds the introspection handler.
func NewHandler(logger *slog.Logger, matrix *access.Matrix, rbac Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, matrix: matrix, rbac: rbac}
}

// WithInvalidator enables POST /principals/{principal}/invalidate.
func (h *Handler) WithInvalidator(inv Invalidator) *Handler {
	h.invalidator = inv
	return h
}

// MountRoutes registers introspection routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Authenticated).Get("/me", h.me)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(access.ResourceRoles, access.ActionRead))
		r.Get("/permissions/{resource}/{action}", h.rolesWithPermission)
		r.Get("/roles/{role}/outranks/{other}", h.outranks)
	})
	if h.invalidator != nil {
		r.With(h.rbac.Require(access.ResourceRoles, access.ActionUpdate)).
			Post("/principals/{principal}/invalidate", h.invalidate)
	}
}

type meResponse struct {
	PrincipalID  string   `json:"principal_id"`
	ProfileID    string   `json:"profile_id"`
	DepartmentID string   `json:"department_id,omitempty"`
	Roles        []string `json:"roles"`
	Modules      []string `json:"modules"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	ac, ok := AuthFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	modules := h.matrix.ModulesFor(ac.Roles)
	if modules == nil {
		modules = []string{}
	}
	roles := ac.Roles
	if roles == nil {
		roles = []string{}
	}
	httpx.JSON(w, http.StatusOK, meResponse{
		PrincipalID:  ac.PrincipalID,
		ProfileID:    ac.ProfileID,
		DepartmentID: ac.DepartmentID,
		Roles:        roles,
		Modules:      modules,
	})
}

type permissionResponse struct {
	Permission string   `json:"permission"`
	Roles      []string `json:"roles"`
}

func (h *Handler) rolesWithPermission(w http.ResponseWriter, r *http.Request) {
	perm, err := access.ParsePermission(chi.URLParam(r, "resource") + ":" + chi.URLParam(r, "action"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	roles := h.matrix.RolesWithPermission(perm.Resource, perm.Action)
	if roles == nil {
		roles = []string{}
	}
	httpx.JSON(w, http.StatusOK, permissionResponse{Permission: perm.String(), Roles: roles})
}

type outranksResponse struct {
	Role     string `json:"role"`
	Other    string `json:"other"`
	Outranks bool   `json:"outranks"`
}

func (h *Handler) outranks(w http.ResponseWriter, r *http.Request) {
	role := strings.ToLower(chi.URLParam(r, "role"))
	other := strings.ToLower(chi.URLParam(r, "other"))
	for _, name := range []string{role, other} {
		if !h.matrix.HasRole(name) {
			httpx.Problem(w, http.StatusNotFound, http.StatusText(http.StatusNotFound), "unknown role "+name)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, outranksResponse{
		Role:     role,
		Other:    other,
		Outranks: h.matrix.RoleHasAccess(role, other),
	})
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	principal := strings.TrimSpace(chi.URLParam(r, "principal"))
	if err := h.invalidator.Invalidate(r.Context(), principal); err != nil {
		h.logger.Error("invalidate roles", slog.String("principal", principal), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if ac, ok := AuthFromContext(r.Context()); ok {
		h.logger.Info("role cache invalidated", slog.String("principal", principal), slog.String("by", ac.PrincipalID))
	}
	w.WriteHeader(http.StatusNoContent)
}
