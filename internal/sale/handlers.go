package sale

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/loja-api/internal/common"
)

// AdminHandler exposes back-office sale endpoints.
type AdminHandler struct {
	Ledger *Ledger
	Logger zerolog.Logger
}

// List handles GET /api/v1/admin/sales.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 50)
	result, err := h.Ledger.List(r.Context(), ListParams{Page: page, Limit: perPage})
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.NewPagination(result.Page, result.Limit, result.Total),
	})
}

// Get handles GET /api/v1/admin/sales/{id}.
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseReference(chi.URLParam(r, "id"))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	s, err := h.Ledger.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": s})
}

// Cancel handles POST /api/v1/admin/sales/{id}/cancel. Only pending sales can be cancelled.
func (h *AdminHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseReference(chi.URLParam(r, "id"))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	upd, err := h.Ledger.UpdateStatus(r.Context(), id, StatusCancelled, "")
	if err != nil {
		h.writeError(w, err)
		return
	}
	switch upd.Result {
	case UpdateUnknown:
		common.JSONError(w, http.StatusNotFound, "SALE_NOT_FOUND", "sale not found", nil)
	case UpdateRejected:
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "sale is already "+string(upd.Previous), nil)
	default:
		admin, _ := common.Admin(r.Context())
		h.Logger.Info().Int64("sale_id", id).Str("admin", admin).Str("result", string(upd.Result)).Msg("sale_cancelled_by_admin")
		common.JSON(w, http.StatusOK, map[string]any{"data": upd.Sale})
	}
}

func (h *AdminHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "SALE_NOT_FOUND", "sale not found", nil)
	case errors.Is(err, ErrStorageUnavailable):
		h.Logger.Error().Err(err).Msg("sale_storage_unavailable")
		common.JSONError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "order storage is unavailable", nil)
	default:
		h.Logger.Error().Err(err).Msg("sale_request_failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
