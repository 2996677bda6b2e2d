package payment

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/loja-api/internal/obs"
	"github.com/noah-isme/loja-api/internal/settings"
)

// Callback paths registered with the gateway.
const (
	ReturnPathPrefix = "/api/v1/payments/return/"
	WebhookPath      = "/api/v1/webhooks/payment"
)

// LinkItem is a purchased line.
type LinkItem struct {
	ID        string
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
}

// LinkRequest describes the checkout a payment link is opened for.
type LinkRequest struct {
	SaleID       int64
	Reference    string
	Items        []LinkItem
	ShippingCost decimal.Decimal
	PayerName    string
	PayerEmail   string
	CallbackBase string
}

// Link is the result of Issue. Failed links carry no redirect and a Reason.
type Link struct {
	RedirectURL  string
	PreferenceID string
	Failed       bool
	Reason       string
}

// Issuer opens hosted checkout sessions. It never mutates sales.
type Issuer struct {
	gateway      Gateway
	currency     string
	callbackBase string
	logger       zerolog.Logger
}

// IssuerConfig configures NewIssuer.
type IssuerConfig struct {
	Gateway Gateway
	// Currency is the ISO code sent with every item.
	Currency string
	// CallbackBase overrides the per-request base URL when set.
	CallbackBase string
	Logger       zerolog.Logger
}

// NewIssuer constructs an Issuer.
func NewIssuer(cfg IssuerConfig) *Issuer {
	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "BRL"
	}
	return &Issuer{
		gateway:      cfg.Gateway,
		currency:     currency,
		callbackBase: strings.TrimRight(strings.TrimSpace(cfg.CallbackBase), "/"),
		logger:       cfg.Logger.With().Str("component", "payment_issuer").Logger(),
	}
}

// Issue asks the gateway for a checkout link. The credential is read from the
// settings snapshot taken by the caller. Every failure is reported through
// Link.Failed instead of an error.
func (i *Issuer) Issue(ctx context.Context, vals settings.Values, req LinkRequest) Link {
	ctx, span := otel.Tracer("payment.Issuer").Start(ctx, "PaymentIssuer.Issue")
	defer span.End()
	span.SetAttributes(attribute.Int64("sale.id", req.SaleID))

	link := i.issue(ctx, vals, req)
	result := "ok"
	if link.Failed {
		result = "failed"
		span.SetStatus(codes.Error, link.Reason)
		i.logger.Warn().Int64("sale_id", req.SaleID).Str("reason", link.Reason).Msg("payment_link_failed")
	} else {
		i.logger.Info().Int64("sale_id", req.SaleID).Str("preference_id", link.PreferenceID).Msg("payment_link_issued")
	}
	span.SetAttributes(attribute.String("payment.link.result", result))
	obs.IncCounter(obs.PaymentLinkTotal, result)
	return link
}

func (i *Issuer) issue(ctx context.Context, vals settings.Values, req LinkRequest) Link {
	if i.gateway == nil {
		return Link{Failed: true, Reason: "gateway not configured"}
	}
	token := vals.PaymentAccessToken()
	if token == "" {
		return Link{Failed: true, Reason: "missing credential"}
	}
	if len(req.Items) == 0 {
		return Link{Failed: true, Reason: "no items"}
	}
	pref := i.preference(req)
	res, err := i.gateway.CreatePreference(ctx, token, pref)
	if err != nil {
		reason := "gateway unavailable"
		if errors.Is(err, ErrMissingCredential) {
			reason = "missing credential"
		}
		i.logger.Debug().Err(err).Int64("sale_id", req.SaleID).Msg("create_preference_failed")
		return Link{Failed: true, Reason: reason}
	}
	redirect := strings.TrimSpace(res.InitPoint)
	if redirect == "" {
		return Link{Failed: true, PreferenceID: res.ID, Reason: "gateway returned no checkout url"}
	}
	return Link{RedirectURL: redirect, PreferenceID: res.ID}
}

func (i *Issuer) preference(req LinkRequest) Preference {
	base := i.CallbackBase(req.CallbackBase)
	ref := req.Reference
	if ref == "" && req.SaleID > 0 {
		ref = strconv.FormatInt(req.SaleID, 10)
	}
	items := make([]PreferenceItem, 0, len(req.Items))
	for _, it := range req.Items {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		items = append(items, PreferenceItem{
			ID:         it.ID,
			Title:      it.Title,
			Quantity:   qty,
			UnitPrice:  it.UnitPrice.Round(2).InexactFloat64(),
			CurrencyID: i.currency,
		})
	}
	pref := Preference{
		Items:             items,
		ExternalReference: ref,
		BackURLs: BackURLs{
			Success: base + ReturnPathPrefix + "success",
			Failure: base + ReturnPathPrefix + "failure",
			Pending: base + ReturnPathPrefix + "pending",
		},
		NotificationURL: base + WebhookPath,
		AutoReturn:      "approved",
	}
	if req.PayerEmail != "" || req.PayerName != "" {
		pref.Payer = &Payer{Name: req.PayerName, Email: req.PayerEmail}
	}
	if req.ShippingCost.IsPositive() {
		pref.Shipments = &Shipments{Cost: req.ShippingCost.Round(2).InexactFloat64(), Mode: "not_specified"}
	}
	return pref
}

// CallbackBase resolves the public base URL: the configured override wins
// over the one derived from the serving request.
func (i *Issuer) CallbackBase(fromRequest string) string {
	if i.callbackBase != "" {
		return i.callbackBase
	}
	return strings.TrimRight(strings.TrimSpace(fromRequest), "/")
}
