package resources

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ops/internal/access"
	"github.com/odyssey-erp/odyssey-ops/internal/platform/httpx"
)

// Query parameters with a meaning of their own; everything else is an
// equality filter.
const (
	paramOrderBy = "order_by"
	paramDesc    = "desc"
	paramLimit   = "limit"
	paramOffset  = "offset"
	paramHard    = "hard"
)

// Handler serves the generic operations over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the resource handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /{resource} routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{resource}", h.list)
	r.Post("/{resource}", h.create)
	r.Get("/{resource}/{id}", h.show)
	r.Patch("/{resource}/{id}", h.update)
	r.Delete("/{resource}/{id}", h.delete)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("resource request", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func resourceParam(r *http.Request) (access.Resource, error) {
	return access.ParseResource(chi.URLParam(r, "resource"))
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", httpx.ErrValidation, name)
	}
	return v, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", httpx.ErrValidation, name)
	}
	return v, nil
}

func listOptions(r *http.Request) (ListOptions, error) {
	limit, err := intParam(r, paramLimit)
	if err != nil {
		return ListOptions{}, err
	}
	offset, err := intParam(r, paramOffset)
	if err != nil {
		return ListOptions{}, err
	}
	desc, err := boolParam(r, paramDesc)
	if err != nil {
		return ListOptions{}, err
	}
	opts := ListOptions{
		Filters:    make(map[string]any),
		OrderBy:    r.URL.Query().Get(paramOrderBy),
		Descending: desc,
		Limit:      limit,
		Offset:     offset,
	}
	for key, values := range r.URL.Query() {
		switch key {
		case paramOrderBy, paramDesc, paramLimit, paramOffset:
			continue
		}
		if len(values) > 0 {
			opts.Filters[key] = values[0]
		}
	}
	return opts, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	resource, err := resourceParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := Get[Row](r.Context(), h.service, resource, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	resource, err := resourceParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	row, err := FindOne[Row](r.Context(), h.service, resource, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": row})
}

func decodeBody(r *http.Request) (Row, error) {
	var body Row
	if err := httpx.DecodeJSON(r, &body); err != nil {
		return nil, fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	}
	return body, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	resource, err := resourceParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	row, err := Create[Row](r.Context(), h.service, resource, body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"data": row})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	resource, err := resourceParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	row, err := Update[Row](r.Context(), h.service, resource, chi.URLParam(r, "id"), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": row})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	resource, err := resourceParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	hard, err := boolParam(r, paramHard)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok, err := Delete(r.Context(), h.service, resource, chi.URLParam(r, "id"), DeleteOptions{HardDelete: hard})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		httpx.RespondError(w, notFound(resource, chi.URLParam(r, "id")))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
