// Package checkout turns a purchase request into a pending sale and a hosted
// payment link.
package checkout

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/loja-api/internal/catalog"
	"github.com/noah-isme/loja-api/internal/common"
	"github.com/noah-isme/loja-api/internal/payment"
	"github.com/noah-isme/loja-api/internal/pricing"
	"github.com/noah-isme/loja-api/internal/sale"
	"github.com/noah-isme/loja-api/internal/settings"
	"github.com/noah-isme/loja-api/internal/shipping"
)

// Customer identifies the buyer.
type Customer struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,max=30"`
}

// Input is a purchase request for a single product.
type Input struct {
	ProductID        string   `json:"productId" validate:"required"`
	Quantity         int      `json:"quantity" validate:"omitempty,min=1,max=99"`
	PaymentMethod    string   `json:"paymentMethod" validate:"omitempty,oneof=card pix boleto"`
	Customer         Customer `json:"customer"`
	PostalCode       string   `json:"postalCode" validate:"omitempty,min=8,max=9"`
	ShippingOptionID string   `json:"shippingOptionId"`
}

// Result is the outcome of a checkout. When the payment link could not be
// issued the sale stays pending and RedirectURL points at the failure page.
type Result struct {
	SaleID        int64             `json:"saleId"`
	Status        sale.Status       `json:"status"`
	Total         decimal.Decimal   `json:"total"`
	Breakdown     pricing.Breakdown `json:"breakdown"`
	Shipping      *shipping.Option  `json:"shipping,omitempty"`
	RedirectURL   string            `json:"redirectUrl"`
	PaymentFailed bool              `json:"paymentFailed"`
	FailureReason string            `json:"failureReason,omitempty"`
}

// ProductSource resolves products and the catalog clock.
type ProductSource interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
	Now() time.Time
}

// SettingsSource yields a fresh configuration snapshot.
type SettingsSource interface {
	Snapshot(ctx context.Context) (settings.Values, error)
}

// SaleRecorder persists new sales.
type SaleRecorder interface {
	Create(ctx context.Context, in sale.NewSale) (sale.Sale, error)
}

// LinkIssuer opens payment links.
type LinkIssuer interface {
	Issue(ctx context.Context, vals settings.Values, req payment.LinkRequest) payment.Link
}

var (
	errProductNotFound  = common.NewAppError("PRODUCT_NOT_FOUND", "product not found", http.StatusNotFound, catalog.ErrNotFound)
	errNoShippingOption = common.NewAppError("NO_SHIPPING_OPTION", "no shipping option available for this postal code", http.StatusUnprocessableEntity, nil)
)

// Service orchestrates checkout.
type Service struct {
	products   ProductSource
	settings   SettingsSource
	shipping   shipping.Client
	ledger     SaleRecorder
	issuer     LinkIssuer
	failureURL string
	logger     zerolog.Logger
}

// ServiceConfig configures NewService.
type ServiceConfig struct {
	Products   ProductSource
	Settings   SettingsSource
	Shipping   shipping.Client
	Ledger     SaleRecorder
	Issuer     LinkIssuer
	FailureURL string
	Logger     zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	failure := strings.TrimSpace(cfg.FailureURL)
	if failure == "" {
		failure = payment.ReturnPathPrefix + "failure"
	}
	return &Service{
		products:   cfg.Products,
		settings:   cfg.Settings,
		shipping:   cfg.Shipping,
		ledger:     cfg.Ledger,
		issuer:     cfg.Issuer,
		failureURL: failure,
		logger:     cfg.Logger.With().Str("component", "checkout").Logger(),
	}
}

// Checkout prices the purchase, records a pending sale and requests a payment
// link. callbackBase is the public base URL derived from the serving request.
func (s *Service) Checkout(ctx context.Context, in Input, callbackBase string) (Result, error) {
	ctx, span := otel.Tracer("checkout.Service").Start(ctx, "CheckoutService.Checkout")
	defer span.End()

	in = normalizeInput(in)
	if err := common.ValidateStruct(in); err != nil {
		return Result{}, err
	}
	product, err := s.products.Get(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Result{}, errProductNotFound
		}
		return Result{}, err
	}
	vals, err := s.settings.Snapshot(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("settings_snapshot_failed")
	}

	now := s.products.Now()
	item := product.PricingItem()
	effective := pricing.EffectivePrice(item, now)

	var chosen *shipping.Option
	shippingCost := decimal.Zero
	if !pricing.FreeShipping(effective, item.FreeShippingThreshold) && in.PostalCode != "" {
		options := s.quote(ctx, vals, in.PostalCode, effective)
		opt, ok := shipping.Select(options, in.ShippingOptionID)
		if !ok {
			return Result{}, errNoShippingOption
		}
		chosen = &opt
		shippingCost = opt.Price
	}

	method := pricing.ParseMethod(in.PaymentMethod)
	breakdown := pricing.Compute(pricing.Input{
		Item:     item,
		Method:   method,
		Quantity: in.Quantity,
		Shipping: shippingCost,
		Now:      now,
	})
	span.SetAttributes(attribute.String("checkout.total", breakdown.Total.StringFixed(2)), attribute.String("checkout.method", string(method)))

	rec, err := s.ledger.Create(ctx, sale.NewSale{
		CustomerName:  in.Customer.Name,
		CustomerEmail: in.Customer.Email,
		CustomerPhone: in.Customer.Phone,
		ProductID:     product.ID,
		ProductName:   product.Name,
		Quantity:      breakdown.Quantity,
		PaymentMethod: string(method),
		Total:         breakdown.Total,
	})
	if err != nil {
		if errors.Is(err, sale.ErrStorageUnavailable) {
			s.logger.Error().Err(err).Str("product_id", product.ID).Msg("checkout_sale_not_recorded")
			return Result{}, common.NewAppError("STORAGE_UNAVAILABLE", "order could not be recorded, please try again", http.StatusServiceUnavailable, err)
		}
		return Result{}, err
	}

	link := s.issuer.Issue(ctx, vals, payment.LinkRequest{
		SaleID:    rec.ID,
		Reference: rec.Reference(),
		Items: []payment.LinkItem{{
			ID:        product.ID,
			Title:     product.Name,
			Quantity:  breakdown.Quantity,
			UnitPrice: breakdown.DiscountedUnit,
		}},
		ShippingCost: breakdown.Shipping,
		PayerName:    in.Customer.Name,
		PayerEmail:   in.Customer.Email,
		CallbackBase: callbackBase,
	})

	res := Result{
		SaleID:      rec.ID,
		Status:      rec.Status,
		Total:       breakdown.Total,
		Breakdown:   breakdown,
		Shipping:    chosen,
		RedirectURL: link.RedirectURL,
	}
	if link.Failed {
		res.PaymentFailed = true
		res.FailureReason = link.Reason
		res.RedirectURL = s.failureURL
	}
	s.logger.Info().
		Int64("sale_id", rec.ID).
		Str("product_id", product.ID).
		Str("total", breakdown.Total.StringFixed(2)).
		Bool("payment_failed", res.PaymentFailed).
		Msg("checkout_completed")
	return res, nil
}

func (s *Service) quote(ctx context.Context, vals settings.Values, postalCode string, insured decimal.Decimal) []shipping.Option {
	if s.shipping == nil {
		return nil
	}
	return s.shipping.Quote(ctx, vals, shipping.QuoteRequest{
		DestinationPostalCode: postalCode,
		InsuredValue:          insured,
	})
}

func normalizeInput(in Input) Input {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.PaymentMethod = strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	in.Customer.Name = strings.TrimSpace(in.Customer.Name)
	in.Customer.Email = strings.TrimSpace(in.Customer.Email)
	in.Customer.Phone = strings.TrimSpace(in.Customer.Phone)
	in.PostalCode = strings.TrimSpace(in.PostalCode)
	in.ShippingOptionID = strings.TrimSpace(in.ShippingOptionID)
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	return in
}
