package shipping

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/loja-api/internal/resilience"
	"github.com/noah-isme/loja-api/internal/settings"
)

func newTestMelhorEnvio(t *testing.T, handler http.HandlerFunc) *MelhorEnvio {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewMelhorEnvio(MelhorEnvioConfig{
		BaseURL: srv.URL,
		Origin:  "04866-220",
		HTTP: resilience.NewHTTPClient(resilience.Options{
			Target:              "melhorenvio-test",
			Timeout:             2 * time.Second,
			MaxAttempts:         1,
			CircuitMinRequests:  100,
			CircuitFailureRatio: 1,
			CircuitOpenFor:      time.Second,
		}),
		Logger: zerolog.Nop(),
	})
}

const calculateResponse = `[
	{"id":1,"name":"PAC","price":"22.35","delivery_time":8,"delivery_range":{"min":6,"max":8},"company":{"name":"Correios","picture":"https://cdn.example/correios.png"}},
	{"id":2,"name":"SEDEX","price":"41.10","delivery_time":3,"company":{"name":"Correios"}},
	{"id":3,"name":".Package","error":"Transportadora não atende este trecho.","company":{"name":"Jadlog"}},
	{"id":4,"name":"Mini Envios","company":{"name":"Correios"}}
]`

func TestMelhorEnvioQuote(t *testing.T) {
	var body map[string]any
	me := newTestMelhorEnvio(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/me/shipment/calculate", r.URL.Path)
		require.Equal(t, "Bearer me-token", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &body))
		_, _ = w.Write([]byte(calculateResponse))
	})
	vals := settings.Values{settings.KeyShippingToken: "me-token"}

	options := me.Quote(context.Background(), vals, QuoteRequest{
		DestinationPostalCode: "01310-100",
		InsuredValue:          decimal.RequireFromString("89.90"),
	})
	require.Len(t, options, 2)
	first := options[0]
	require.Equal(t, "1", first.ID)
	require.Equal(t, "PAC", first.Service)
	require.Equal(t, "Correios", first.Carrier)
	require.Equal(t, "22.35", first.Price.StringFixed(2))
	require.Equal(t, 8, first.LeadTimeDays)
	require.Equal(t, "https://cdn.example/correios.png", first.LogoURL)
	require.Equal(t, 3, options[1].LeadTimeDays)

	require.Equal(t, "04866220", body["from"].(map[string]any)["postal_code"])
	require.Equal(t, "01310100", body["to"].(map[string]any)["postal_code"])
	product := body["products"].([]any)[0].(map[string]any)
	require.Equal(t, 89.9, product["insurance_value"])
	require.Equal(t, 0.5, product["weight"])
	require.EqualValues(t, 16, product["length"])
}

func TestMelhorEnvioFailuresYieldEmptyList(t *testing.T) {
	calls := 0
	me := newTestMelhorEnvio(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"message":"Unauthenticated."}`, http.StatusUnauthorized)
	})
	req := QuoteRequest{DestinationPostalCode: "01310100", InsuredValue: decimal.NewFromInt(10)}

	require.Empty(t, me.Quote(context.Background(), settings.Values{}, req))
	require.Zero(t, calls)

	opts := me.Quote(context.Background(), settings.Values{settings.KeyShippingToken: "bad"}, req)
	require.NotNil(t, opts)
	require.Empty(t, opts)
	require.Equal(t, 1, calls)
}

func TestSelect(t *testing.T) {
	opts := []Option{
		{ID: "2", Price: decimal.RequireFromString("41.10")},
		{ID: "1", Price: decimal.RequireFromString("22.35")},
	}

	got, ok := Select(opts, "")
	require.True(t, ok)
	require.Equal(t, "1", got.ID)

	got, ok = Select(opts, "2")
	require.True(t, ok)
	require.Equal(t, "2", got.ID)

	_, ok = Select(opts, "9")
	require.False(t, ok)
	_, ok = Select(nil, "")
	require.False(t, ok)
}

func TestDigits(t *testing.T) {
	require.Equal(t, "04866220", Digits(" 04866-220 "))
	require.Equal(t, "", Digits("abc"))
}
