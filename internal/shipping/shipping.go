// Package shipping quotes delivery options for a single boxed product.
package shipping

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/loja-api/internal/settings"
)

// QuoteRequest describes a shipment to price.
type QuoteRequest struct {
	OriginPostalCode      string
	DestinationPostalCode string
	InsuredValue          decimal.Decimal
}

// Option is a priced delivery service.
type Option struct {
	ID           string          `json:"id"`
	Service      string          `json:"service"`
	Carrier      string          `json:"carrier"`
	Price        decimal.Decimal `json:"price"`
	LeadTimeDays int             `json:"leadTimeDays,omitempty"`
	LogoURL      string          `json:"logoUrl,omitempty"`
}

// Client quotes shipping options. Implementations return an empty list
// instead of an error when the provider cannot be reached.
type Client interface {
	Quote(ctx context.Context, vals settings.Values, req QuoteRequest) []Option
}

// MockClient returns static options and is useful for development.
type MockClient struct{}

// Quote returns canned options regardless of the request payload.
func (MockClient) Quote(_ context.Context, _ settings.Values, req QuoteRequest) []Option {
	if Digits(req.DestinationPostalCode) == "" {
		return []Option{}
	}
	return []Option{
		{ID: "1", Service: "PAC", Carrier: "Correios", Price: decimal.RequireFromString("22.50"), LeadTimeDays: 7},
		{ID: "2", Service: "SEDEX", Carrier: "Correios", Price: decimal.RequireFromString("38.90"), LeadTimeDays: 2},
	}
}

// Select picks the option with the given id, or the cheapest when id is empty.
// ok is false when nothing matches.
func Select(options []Option, id string) (Option, bool) {
	if len(options) == 0 {
		return Option{}, false
	}
	id = strings.TrimSpace(id)
	if id != "" {
		for _, o := range options {
			if o.ID == id {
				return o, true
			}
		}
		return Option{}, false
	}
	sorted := append([]Option(nil), options...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price.LessThan(sorted[j].Price) })
	return sorted[0], true
}

// Digits strips everything but ASCII digits from a postal code.
func Digits(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
