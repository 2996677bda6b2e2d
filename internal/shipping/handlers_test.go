package shipping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/loja-api/internal/catalog"
	"github.com/noah-isme/loja-api/internal/settings"
)

type fakeProducts map[string]catalog.Product

func (f fakeProducts) Get(_ context.Context, id string) (catalog.Product, error) {
	p, ok := f[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (fakeProducts) Now() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

type staticSettings settings.Values

func (s staticSettings) Snapshot(context.Context) (settings.Values, error) {
	return settings.Values(s), nil
}

type emptyClient struct{}

func (emptyClient) Quote(context.Context, settings.Values, QuoteRequest) []Option { return []Option{} }

func newQuoteHandler(client Client) *Handler {
	return &Handler{
		Client: client,
		Products: fakeProducts{
			"P001": {ID: "P001", Name: "Fone", Price: decimal.RequireFromString("89.90")},
			"P002": {ID: "P002", Name: "Smartwatch", Price: decimal.RequireFromString("250.00"), FreeShippingThreshold: decimal.NewFromInt(200)},
		},
		Settings: staticSettings{},
		Logger:   zerolog.Nop(),
	}
}

func postQuote(h *Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shipping/quote", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.Quote(rec, req)
	return rec
}

func TestQuoteHandler(t *testing.T) {
	rec := postQuote(newQuoteHandler(MockClient{}), `{"productId":"P001","postalCode":"01310-100"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"service":"PAC"`)
}

func TestQuoteHandlerFreeShippingSkipsProvider(t *testing.T) {
	rec := postQuote(newQuoteHandler(emptyClient{}), `{"productId":"P002","postalCode":"01310100"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"freeShipping":true`)
}

func TestQuoteHandlerErrors(t *testing.T) {
	h := newQuoteHandler(emptyClient{})

	rec := postQuote(h, `{"productId":"P001","postalCode":"01310100"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "NO_SHIPPING_OPTION")

	rec = postQuote(h, `{"productId":"P404","postalCode":"01310100"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = postQuote(h, `{"productId":"P001"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "VALIDATION_FAILED")

	rec = postQuote(h, `{`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
