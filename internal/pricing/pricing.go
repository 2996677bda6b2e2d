// Package pricing computes the amount charged for a purchase: offer price,
// PIX discount and the free-shipping rule. Every function is pure.
package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Method is the payment method chosen at checkout.
type Method string

const (
	MethodCard   Method = "card"
	MethodPix    Method = "pix"
	MethodBoleto Method = "boleto"
)

var hundred = decimal.NewFromInt(100)

// Item holds the pricing-relevant attributes of a product.
type Item struct {
	BasePrice             decimal.Decimal
	OnOffer               bool
	OfferPrice            decimal.NullDecimal
	OfferEndsAt           *time.Time
	PixDiscountPercent    int
	FreeShippingThreshold decimal.Decimal
}

// Input describes a single-product purchase.
type Input struct {
	Item     Item
	Method   Method
	Quantity int
	Shipping decimal.Decimal
	Now      time.Time
}

// Breakdown is the result of Compute. Total is rounded to cents.
type Breakdown struct {
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	DiscountedUnit decimal.Decimal `json:"discountedUnit"`
	Quantity       int             `json:"quantity"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Shipping       decimal.Decimal `json:"shipping"`
	FreeShipping   bool            `json:"freeShipping"`
	Total          decimal.Decimal `json:"total"`
}

// OfferActive reports whether the offer price applies at now. An offer without
// an expiry stays active; an expiry at or before now deactivates it even when
// the flag is still set.
func OfferActive(it Item, now time.Time) bool {
	if !it.OnOffer || !it.OfferPrice.Valid {
		return false
	}
	if it.OfferEndsAt == nil {
		return true
	}
	return it.OfferEndsAt.After(now)
}

// EffectivePrice returns the unit price before payment-method adjustments.
func EffectivePrice(it Item, now time.Time) decimal.Decimal {
	if OfferActive(it, now) {
		return it.OfferPrice.Decimal
	}
	return it.BasePrice
}

// ApplyMethod applies the PIX discount percentage. Other methods pay the price as is.
func ApplyMethod(price decimal.Decimal, method Method, pixPercent int) decimal.Decimal {
	if method != MethodPix || pixPercent <= 0 {
		return price
	}
	if pixPercent > 100 {
		pixPercent = 100
	}
	factor := hundred.Sub(decimal.NewFromInt(int64(pixPercent))).Div(hundred)
	return price.Mul(factor)
}

// FreeShipping reports whether the effective price reaches the product's threshold.
func FreeShipping(effective, threshold decimal.Decimal) bool {
	return threshold.IsPositive() && effective.GreaterThanOrEqual(threshold)
}

// ShippingCost returns zero when free shipping applies, otherwise the quoted rate.
func ShippingCost(effective, threshold, quoted decimal.Decimal) decimal.Decimal {
	if FreeShipping(effective, threshold) || quoted.IsNegative() {
		return decimal.Zero
	}
	return quoted
}

// Compute returns the breakdown for in. Quantity below 1 counts as 1.
// The charged unit is rounded to cents before it is multiplied, so
// DiscountedUnit × Quantity + Shipping always equals Total.
func Compute(in Input) Breakdown {
	qty := in.Quantity
	if qty < 1 {
		qty = 1
	}
	effective := EffectivePrice(in.Item, in.Now)
	unit := ApplyMethod(effective, in.Method, in.Item.PixDiscountPercent).Round(2)
	subtotal := unit.Mul(decimal.NewFromInt(int64(qty)))
	free := FreeShipping(effective, in.Item.FreeShippingThreshold)
	shipping := ShippingCost(effective, in.Item.FreeShippingThreshold, in.Shipping).Round(2)
	return Breakdown{
		UnitPrice:      effective.Round(2),
		DiscountedUnit: unit,
		Quantity:       qty,
		Subtotal:       subtotal,
		Shipping:       shipping,
		FreeShipping:   free,
		Total:          subtotal.Add(shipping),
	}
}

// ParseMethod maps user input to a Method. Unknown values fall back to card.
func ParseMethod(raw string) Method {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pix":
		return MethodPix
	case "boleto":
		return MethodBoleto
	default:
		return MethodCard
	}
}

// ParseAmount reads a decimal amount typed with either comma or dot as the
// decimal separator ("1.234,56", "1234,56", "R$ 10,00", "1234.56").
// Empty or malformed input yields zero.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "R$"), "r$")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return decimal.Zero
	}
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return decimal.Zero
		}
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
