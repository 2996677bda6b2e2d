package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/loja-api/internal/common"
)

// Handler exposes public and back-office catalog endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Products handles GET /api/v1/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	page, limit := common.ParsePagination(r, h.service.defaultLimit)
	result, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	now := h.service.Now()
	views := make([]View, 0, len(result.Items))
	for _, p := range result.Items {
		views = append(views, NewView(p, now))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       views,
		"pagination": common.NewPagination(result.Page, result.Limit, result.Total),
	})
}

// Offers handles GET /api/v1/products/offers.
func (h *Handler) Offers(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListOnOffer(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	now := h.service.Now()
	views := make([]View, 0, len(items))
	for _, p := range items {
		views = append(views, NewView(p, now))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views})
}

// ProductDetail handles GET /api/v1/products/{id}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": NewView(p, h.service.Now())})
}

// Upsert handles PUT /api/v1/admin/products.
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in Input
	if !common.DecodeJSON(w, r, &in) {
		return
	}
	p, err := h.service.Upsert(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// Delete handles DELETE /api/v1/admin/products/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
		return
	}
	if common.IsAppError(err) {
		common.WriteError(w, err)
		return
	}
	h.service.logger.Error().Err(err).Msg("catalog_request_failed")
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
