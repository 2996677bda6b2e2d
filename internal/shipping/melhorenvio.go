package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/loja-api/internal/obs"
	"github.com/noah-isme/loja-api/internal/resilience"
	"github.com/noah-isme/loja-api/internal/settings"
)

// Default package used for every quote, in centimetres and kilograms.
const (
	packageWidth  = 11
	packageHeight = 11
	packageLength = 16
	packageWeight = 0.5
)

const providerMelhorEnvio = "melhorenvio"

// MelhorEnvio quotes through the Melhor Envio shipment calculator.
type MelhorEnvio struct {
	baseURL string
	token   string
	origin  string
	http    resilience.HTTPClient
	logger  zerolog.Logger
}

// MelhorEnvioConfig configures NewMelhorEnvio. Token and Origin are fallbacks
// used when the settings snapshot does not carry them.
type MelhorEnvioConfig struct {
	BaseURL string
	Token   string
	Origin  string
	HTTP    resilience.HTTPClient
	Logger  zerolog.Logger
}

// NewMelhorEnvio constructs a MelhorEnvio client.
func NewMelhorEnvio(cfg MelhorEnvioConfig) *MelhorEnvio {
	return &MelhorEnvio{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   strings.TrimSpace(cfg.Token),
		origin:  cfg.Origin,
		http:    cfg.HTTP,
		logger:  cfg.Logger.With().Str("component", "shipping_quote").Logger(),
	}
}

type calcPostal struct {
	PostalCode string `json:"postal_code"`
}

type calcProduct struct {
	ID             string  `json:"id"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Length         int     `json:"length"`
	Weight         float64 `json:"weight"`
	InsuranceValue float64 `json:"insurance_value"`
	Quantity       int     `json:"quantity"`
}

type calcRequest struct {
	From     calcPostal    `json:"from"`
	To       calcPostal    `json:"to"`
	Products []calcProduct `json:"products"`
}

type calcOption struct {
	ID            json.Number      `json:"id"`
	Name          string           `json:"name"`
	Price         json.RawMessage  `json:"price"`
	Error         json.RawMessage  `json:"error"`
	DeliveryTime  int              `json:"delivery_time"`
	DeliveryRange struct {
		Min int `json:"min"`
		Max int `json:"max"`
	} `json:"delivery_range"`
	Company struct {
		Name    string `json:"name"`
		Picture string `json:"picture"`
	} `json:"company"`
}

func (o calcOption) price() (decimal.Decimal, bool) {
	raw := strings.Trim(strings.TrimSpace(string(o.Price)), `"`)
	if raw == "" || raw == "null" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func (o calcOption) failed() bool {
	raw := strings.TrimSpace(string(o.Error))
	return raw != "" && raw != "null" && raw != `""`
}

// Quote returns the usable options. Options reporting an error or without a
// price are dropped, and any failure yields an empty list.
func (m *MelhorEnvio) Quote(ctx context.Context, vals settings.Values, req QuoteRequest) []Option {
	start := time.Now()
	result := "error"
	defer func() {
		obs.IncCounter(obs.ShippingQuoteTotal, providerMelhorEnvio, result)
		if obs.GatewayLatency != nil {
			obs.GatewayLatency.WithLabelValues("shipping_quote", result).Observe(obs.DurationMillis(time.Since(start)))
		}
	}()

	token := vals.ShippingToken()
	if token == "" {
		token = m.token
	}
	if token == "" {
		result = "no_credential"
		m.logger.Warn().Msg("shipping_quote_missing_token")
		return []Option{}
	}
	origin := Digits(req.OriginPostalCode)
	if origin == "" {
		origin = Digits(vals.ShippingOrigin())
	}
	if origin == "" {
		origin = Digits(m.origin)
	}
	dest := Digits(req.DestinationPostalCode)
	if dest == "" || origin == "" {
		result = "invalid"
		return []Option{}
	}

	payload, err := json.Marshal(calcRequest{
		From: calcPostal{PostalCode: origin},
		To:   calcPostal{PostalCode: dest},
		Products: []calcProduct{{
			ID:             "item",
			Width:          packageWidth,
			Height:         packageHeight,
			Length:         packageLength,
			Weight:         packageWeight,
			InsuranceValue: req.InsuredValue.Round(2).InexactFloat64(),
			Quantity:       1,
		}},
	})
	if err != nil {
		return []Option{}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/v2/me/shipment/calculate", bytes.NewReader(payload))
	if err != nil {
		return []Option{}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("User-Agent", "loja-api")

	options, err := m.send(ctx, httpReq)
	if err != nil {
		m.logger.Warn().Err(err).Str("destination", dest).Msg("shipping_quote_failed")
		return []Option{}
	}
	if len(options) == 0 {
		result = "empty"
	} else {
		result = "ok"
	}
	return options
}

func (m *MelhorEnvio) send(ctx context.Context, req *http.Request) ([]Option, error) {
	resp, err := m.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("melhor envio status %d", resp.StatusCode)
	}
	var raw []calcOption
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode melhor envio response: %w", err)
	}
	out := make([]Option, 0, len(raw))
	for _, o := range raw {
		price, ok := o.price()
		if o.failed() || !ok {
			continue
		}
		days := o.DeliveryRange.Max
		if days == 0 {
			days = o.DeliveryTime
		}
		out = append(out, Option{
			ID:           o.ID.String(),
			Service:      o.Name,
			Carrier:      o.Company.Name,
			Price:        price.Round(2),
			LeadTimeDays: days,
			LogoURL:      o.Company.Picture,
		})
	}
	return out, nil
}
