package checkout

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/loja-api/internal/common"
)

// Handler exposes checkout endpoints.
type Handler struct {
	Svc    *Service
	Logger zerolog.Logger
}

// Checkout handles POST /api/v1/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var payload Input
	if !common.DecodeJSON(w, r, &payload) {
		return
	}
	out, err := h.Svc.Checkout(r.Context(), payload, common.BaseURL(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

// BuyNow handles GET /api/v1/checkout/{productId}, a one-click purchase that
// redirects the browser to the payment page, or to the failure page.
func (h *Handler) BuyNow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	qty, _ := strconv.Atoi(q.Get("quantity"))
	in := Input{
		ProductID:     chi.URLParam(r, "productId"),
		Quantity:      qty,
		PaymentMethod: q.Get("method"),
		Customer: Customer{
			Name:  q.Get("name"),
			Email: q.Get("email"),
			Phone: q.Get("phone"),
		},
		PostalCode:       q.Get("postalCode"),
		ShippingOptionID: q.Get("shippingOptionId"),
	}
	out, err := h.Svc.Checkout(r.Context(), in, common.BaseURL(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.Redirect(w, r, out.RedirectURL, http.StatusFound)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if common.IsAppError(err) {
		common.WriteError(w, err)
		return
	}
	h.Logger.Error().Err(err).Msg("checkout_failed")
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
