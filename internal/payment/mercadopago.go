package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/loja-api/internal/obs"
	"github.com/noah-isme/loja-api/internal/resilience"
)

var (
	// ErrMissingCredential is returned when no access token is configured.
	ErrMissingCredential = errors.New("payment: gateway credential not configured")
	// ErrPaymentNotFound is returned when the gateway has no record of a payment.
	ErrPaymentNotFound = errors.New("payment: payment not found at gateway")
	// ErrGatewayUnavailable wraps transport failures and unexpected responses.
	ErrGatewayUnavailable = errors.New("payment: gateway unavailable")
)

// Gateway is the subset of the Mercado Pago API used by the issuer and reconciler.
type Gateway interface {
	CreatePreference(ctx context.Context, token string, pref Preference) (PreferenceResult, error)
	GetPayment(ctx context.Context, token, paymentID string) (PaymentInfo, error)
	SearchByExternalReference(ctx context.Context, token, ref string) (PaymentInfo, error)
}

// PreferenceItem is a line on the hosted checkout page.
type PreferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

// BackURLs are the browser return targets after checkout.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// Preference is the checkout preference payload.
type Preference struct {
	Items             []PreferenceItem `json:"items"`
	Payer             *Payer           `json:"payer,omitempty"`
	Shipments         *Shipments       `json:"shipments,omitempty"`
	ExternalReference string           `json:"external_reference"`
	BackURLs          BackURLs         `json:"back_urls"`
	NotificationURL   string           `json:"notification_url"`
	AutoReturn        string           `json:"auto_return,omitempty"`
	StatementDesc     string           `json:"statement_descriptor,omitempty"`
}

// Payer identifies the buyer on the checkout page.
type Payer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Shipments carries a flat shipping cost.
type Shipments struct {
	Cost float64 `json:"cost"`
	Mode string  `json:"mode"`
}

// PreferenceResult is the gateway answer to CreatePreference.
type PreferenceResult struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// PaymentInfo is the authoritative payment record returned by the gateway.
type PaymentInfo struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	DateCreated       time.Time       `json:"date_created"`
}

type paymentWire struct {
	ID                json.Number     `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	DateCreated       string          `json:"date_created"`
}

func (w paymentWire) info() PaymentInfo {
	created, _ := time.Parse(time.RFC3339, w.DateCreated)
	return PaymentInfo{
		ID:                w.ID.String(),
		Status:            strings.ToLower(strings.TrimSpace(w.Status)),
		StatusDetail:      w.StatusDetail,
		ExternalReference: strings.TrimSpace(w.ExternalReference),
		TransactionAmount: w.TransactionAmount,
		DateCreated:       created,
	}
}

// MercadoPago talks to the Mercado Pago REST API over a resilient client.
type MercadoPago struct {
	BaseURL string
	HTTP    resilience.HTTPClient
}

// NewMercadoPago constructs a MercadoPago client.
func NewMercadoPago(baseURL string, client resilience.HTTPClient) *MercadoPago {
	return &MercadoPago{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: client}
}

// CreatePreference registers a checkout preference. The request is sent with
// an idempotency key derived from the external reference so a retried call
// never opens a second checkout for the same sale.
func (m *MercadoPago) CreatePreference(ctx context.Context, token string, pref Preference) (PreferenceResult, error) {
	body, err := json.Marshal(pref)
	if err != nil {
		return PreferenceResult{}, fmt.Errorf("encode preference: %w", err)
	}
	req, err := m.newRequest(ctx, http.MethodPost, "/checkout/preferences", token, bytes.NewReader(body))
	if err != nil {
		return PreferenceResult{}, err
	}
	if pref.ExternalReference != "" {
		req.Header.Set(resilience.IdempotencyHeader, "sale-"+pref.ExternalReference)
	}
	var out PreferenceResult
	if err := m.do(req, "create_preference", &out); err != nil {
		return PreferenceResult{}, err
	}
	return out, nil
}

// GetPayment fetches a payment by gateway id.
func (m *MercadoPago) GetPayment(ctx context.Context, token, paymentID string) (PaymentInfo, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return PaymentInfo{}, ErrPaymentNotFound
	}
	req, err := m.newRequest(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), token, nil)
	if err != nil {
		return PaymentInfo{}, err
	}
	var wire paymentWire
	if err := m.do(req, "get_payment", &wire); err != nil {
		return PaymentInfo{}, err
	}
	return wire.info(), nil
}

// SearchByExternalReference returns the most relevant payment recorded for a
// sale reference: an approved payment wins, otherwise the newest one.
func (m *MercadoPago) SearchByExternalReference(ctx context.Context, token, ref string) (PaymentInfo, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return PaymentInfo{}, ErrPaymentNotFound
	}
	q := url.Values{}
	q.Set("external_reference", ref)
	q.Set("sort", "date_created")
	q.Set("criteria", "desc")
	req, err := m.newRequest(ctx, http.MethodGet, "/v1/payments/search?"+q.Encode(), token, nil)
	if err != nil {
		return PaymentInfo{}, err
	}
	var page struct {
		Results []paymentWire `json:"results"`
	}
	if err := m.do(req, "search_payment", &page); err != nil {
		return PaymentInfo{}, err
	}
	return pickPayment(page.Results, ref)
}

func pickPayment(results []paymentWire, ref string) (PaymentInfo, error) {
	infos := make([]PaymentInfo, 0, len(results))
	for _, r := range results {
		info := r.info()
		if info.ExternalReference != ref {
			continue
		}
		infos = append(infos, info)
	}
	if len(infos) == 0 {
		return PaymentInfo{}, ErrPaymentNotFound
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].DateCreated.After(infos[j].DateCreated) })
	for _, info := range infos {
		if info.Status == StatusApproved {
			return info, nil
		}
	}
	return infos[0], nil
}

func (m *MercadoPago) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingCredential
	}
	req, err := http.NewRequestWithContext(ctx, method, m.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (m *MercadoPago) do(req *http.Request, operation string, out any) error {
	start := time.Now()
	result := "error"
	defer func() {
		if obs.GatewayLatency != nil {
			obs.GatewayLatency.WithLabelValues(operation, result).Observe(obs.DurationMillis(time.Since(start)))
		}
	}()

	resp, err := m.HTTP.Do(req.Context(), req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrGatewayUnavailable, operation, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", ErrGatewayUnavailable, operation, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		result = "not_found"
		return ErrPaymentNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %s: status %d: %s", ErrGatewayUnavailable, operation, resp.StatusCode, truncate(string(data), 256))
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", ErrGatewayUnavailable, operation, err)
	}
	result = "ok"
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
