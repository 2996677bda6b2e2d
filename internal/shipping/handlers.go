package shipping

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/loja-api/internal/catalog"
	"github.com/noah-isme/loja-api/internal/common"
	"github.com/noah-isme/loja-api/internal/pricing"
	"github.com/noah-isme/loja-api/internal/settings"
)

// ProductSource resolves products and the catalog clock.
type ProductSource interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
	Now() time.Time
}

// SettingsSource yields a fresh configuration snapshot.
type SettingsSource interface {
	Snapshot(ctx context.Context) (settings.Values, error)
}

// Handler serves shipping quotes to the storefront.
type Handler struct {
	Client   Client
	Products ProductSource
	Settings SettingsSource
	Logger   zerolog.Logger
}

type quoteRequest struct {
	ProductID  string `json:"productId" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required,min=8,max=9"`
}

// Quote handles POST /api/v1/shipping/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !common.DecodeJSON(w, r, &req) {
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}
	product, err := h.Products.Get(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
			return
		}
		h.Logger.Error().Err(err).Msg("shipping_quote_product_lookup_failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	vals, err := h.Settings.Snapshot(r.Context())
	if err != nil {
		h.Logger.Warn().Err(err).Msg("settings_snapshot_failed")
	}

	item := product.PricingItem()
	effective := pricing.EffectivePrice(item, h.Products.Now())
	if pricing.FreeShipping(effective, item.FreeShippingThreshold) {
		common.JSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{"freeShipping": true, "options": []Option{}},
		})
		return
	}
	options := h.Client.Quote(r.Context(), vals, QuoteRequest{
		DestinationPostalCode: req.PostalCode,
		InsuredValue:          effective,
	})
	if len(options) == 0 {
		common.JSONError(w, http.StatusUnprocessableEntity, "NO_SHIPPING_OPTION", "no shipping option available for this postal code", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"freeShipping": false, "options": options},
	})
}
