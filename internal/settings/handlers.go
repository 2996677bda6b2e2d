package settings

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/loja-api/internal/common"
)

// Handler exposes storefront and back-office configuration endpoints.
type Handler struct {
	Store  *Store
	Logger zerolog.Logger
}

// Public handles GET /api/v1/store/settings.
func (h *Handler) Public(w http.ResponseWriter, r *http.Request) {
	vals, err := h.Store.Snapshot(r.Context())
	if err != nil {
		// defaults are still usable for branding
		h.Logger.Warn().Err(err).Msg("settings_snapshot_degraded")
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": vals.Public()})
}

// Page handles GET /api/v1/store/pages/{key}.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	vals, err := h.Store.Snapshot(r.Context())
	if err != nil {
		h.Logger.Warn().Err(err).Msg("settings_snapshot_degraded")
	}
	page, ok := vals.Page(chi.URLParam(r, "key"))
	if !ok {
		common.JSONError(w, http.StatusNotFound, "PAGE_NOT_FOUND", "page not found", map[string]any{"available": PageKeys()})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": page})
}

// AdminGet handles GET /api/v1/admin/settings.
func (h *Handler) AdminGet(w http.ResponseWriter, r *http.Request) {
	vals, err := h.Store.Snapshot(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "settings unavailable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": vals.Redacted()})
}

// AdminUpdate handles PUT /api/v1/admin/settings.
func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	var payload map[string]string
	if !common.DecodeJSON(w, r, &payload) {
		return
	}
	if err := h.Store.Update(r.Context(), payload); err != nil {
		if errors.Is(err, ErrUnknownKey) {
			common.JSONError(w, http.StatusUnprocessableEntity, "UNKNOWN_SETTING", err.Error(), nil)
			return
		}
		h.Logger.Error().Err(err).Msg("settings_update_failed")
		common.JSONError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "settings not saved", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
