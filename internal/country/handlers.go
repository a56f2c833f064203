package country

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-jastip/internal/common"
)

// Handler serves read access to destination settings.
type Handler struct {
	Resolver Resolver
}

// Get handles GET /api/v1/countries/{code}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Resolver == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "country resolver not configured", nil)
		return
	}
	code := chi.URLParam(r, "code")
	row, err := h.Resolver.Settings(r.Context(), code)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "country not configured", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load country settings", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": row})
}
