package catalog

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	dbgen "github.com/noah-isme/loja-api/internal/db/gen"
	"github.com/noah-isme/loja-api/internal/pricing"
)

// MaxImages bounds the gallery attached to a product.
const MaxImages = 4

// Product is a catalog entry.
type Product struct {
	ID                    string              `json:"id"`
	Name                  string              `json:"name"`
	Category              string              `json:"category"`
	Description           string              `json:"description"`
	Price                 decimal.Decimal     `json:"price"`
	OnOffer               bool                `json:"onOffer"`
	OfferPrice            decimal.NullDecimal `json:"offerPrice"`
	OfferEndsAt           *time.Time          `json:"offerEndsAt,omitempty"`
	PixDiscountPercent    int                 `json:"pixDiscountPercent"`
	FreeShippingThreshold decimal.Decimal     `json:"freeShippingThreshold"`
	Stock                 int                 `json:"stock"`
	DeliveryEstimate      string              `json:"deliveryEstimate"`
	PreparationTime       string              `json:"preparationTime"`
	ImageURLs             []string            `json:"imageUrls"`
	VideoURL              string              `json:"videoUrl,omitempty"`
	CreatedAt             time.Time           `json:"createdAt"`
	UpdatedAt             time.Time           `json:"updatedAt"`
}

// PricingItem projects the attributes the price calculator needs.
func (p Product) PricingItem() pricing.Item {
	return pricing.Item{
		BasePrice:             p.Price,
		OnOffer:               p.OnOffer,
		OfferPrice:            p.OfferPrice,
		OfferEndsAt:           p.OfferEndsAt,
		PixDiscountPercent:    p.PixDiscountPercent,
		FreeShippingThreshold: p.FreeShippingThreshold,
	}
}

// View decorates a Product with the prices shown to shoppers at a point in time.
type View struct {
	Product
	OfferActive    bool            `json:"offerActive"`
	EffectivePrice decimal.Decimal `json:"effectivePrice"`
	PixPrice       decimal.Decimal `json:"pixPrice"`
	FreeShipping   bool            `json:"freeShipping"`
}

// NewView computes the display prices for p at now.
func NewView(p Product, now time.Time) View {
	item := p.PricingItem()
	effective := pricing.EffectivePrice(item, now)
	return View{
		Product:        p,
		OfferActive:    pricing.OfferActive(item, now),
		EffectivePrice: effective.Round(2),
		PixPrice:       pricing.ApplyMethod(effective, pricing.MethodPix, p.PixDiscountPercent).Round(2),
		FreeShipping:   pricing.FreeShipping(effective, p.FreeShippingThreshold),
	}
}

func fromRow(row dbgen.Product) Product {
	p := Product{
		ID:                    row.ID,
		Name:                  row.Name,
		Category:              row.Category,
		Description:           row.Description,
		Price:                 row.Price,
		OnOffer:               row.OnOffer,
		OfferPrice:            row.OfferPrice,
		PixDiscountPercent:    int(row.PixDiscountPercent),
		FreeShippingThreshold: row.FreeShippingThreshold,
		Stock:                 int(row.Stock),
		DeliveryEstimate:      row.DeliveryEstimate,
		PreparationTime:       row.PreparationTime,
		ImageURLs:             row.ImageUrls,
		VideoURL:              row.VideoUrl,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	}
	if row.OfferEndsAt.Valid {
		ends := row.OfferEndsAt.Time
		p.OfferEndsAt = &ends
	}
	if p.ImageURLs == nil {
		p.ImageURLs = []string{}
	}
	return p
}

// Input is the back-office payload for creating or replacing a product.
// Amounts are strings so "89,90" and "89.90" are both accepted.
type Input struct {
	ID                    string   `json:"id" validate:"omitempty,max=64"`
	Name                  string   `json:"name" validate:"required,max=200"`
	Category              string   `json:"category" validate:"max=100"`
	Description           string   `json:"description"`
	Price                 string   `json:"price" validate:"required"`
	OnOffer               bool     `json:"onOffer"`
	OfferPrice            string   `json:"offerPrice"`
	OfferEndsAt           string   `json:"offerEndsAt"`
	PixDiscountPercent    int      `json:"pixDiscountPercent" validate:"min=0,max=100"`
	FreeShippingThreshold string   `json:"freeShippingThreshold"`
	Stock                 int      `json:"stock" validate:"min=0"`
	DeliveryEstimate      string   `json:"deliveryEstimate"`
	PreparationTime       string   `json:"preparationTime"`
	ImageURLs             []string `json:"imageUrls" validate:"max=4,dive,url"`
	VideoURL              string   `json:"videoUrl" validate:"omitempty,url"`
}

// offerEndLayouts are accepted for OfferEndsAt; the short form is what the
// back-office datetime-local input submits and is read in loc.
var offerEndLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"}

func parseOfferEnd(raw string, loc *time.Location) (pgtype.Timestamptz, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return pgtype.Timestamptz{}, true
	}
	for _, layout := range offerEndLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return pgtype.Timestamptz{Time: t, Valid: true}, true
		}
	}
	return pgtype.Timestamptz{}, false
}
