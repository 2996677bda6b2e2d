package payment

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/loja-api/internal/config"
	"github.com/noah-isme/loja-api/internal/sale"
)

func TestParseNotificationSources(t *testing.T) {
	cases := []struct {
		name        string
		req         func() *http.Request
		wantPayment string
		wantTopic   string
		wantRef     string
		wantHint    string
	}{
		{
			name: "json body",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(`{"action":"payment.updated","type":"payment","data":{"id":"123"}}`))
				r.Header.Set("Content-Type", "application/json")
				return r
			},
			wantPayment: "123",
			wantTopic:   "payment",
		},
		{
			name: "json numeric id",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(`{"type":"payment","data":{"id":98765432101}}`))
			},
			wantPayment: "98765432101",
			wantTopic:   "payment",
		},
		{
			name: "query string ipn",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment?topic=payment&id=456", nil)
			},
			wantPayment: "456",
			wantTopic:   "payment",
		},
		{
			name: "form body",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader("data_id=789&status=approved&external_reference=7"))
				r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return r
			},
			wantPayment: "789",
			wantRef:     "7",
			wantHint:    "approved",
		},
		{
			name: "return url params",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/api/v1/payments/return/success?collection_id=321&collection_status=approved&external_reference=7", nil)
			},
			wantPayment: "321",
			wantRef:     "7",
			wantHint:    "approved",
		},
		{
			name: "merchant order id is not a payment",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/payment?topic=merchant_order&id=111", nil)
			},
			wantTopic: "merchant_order",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := ParseNotification(tc.req())
			require.NoError(t, err)
			require.Equal(t, tc.wantPayment, n.PaymentID)
			require.Equal(t, tc.wantTopic, n.Topic)
			require.Equal(t, tc.wantRef, n.ExternalReference)
			require.Equal(t, tc.wantHint, n.StatusHint)
		})
	}
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	f := newReconcileFixture(t, config.PolicyKeepPending, nil)
	f.gateway.payments["555"] = PaymentInfo{ID: "555", Status: StatusApproved, ExternalReference: "7"}
	h := &Webhook{Reconciler: f.rec, Logger: zerolog.Nop()}

	bodies := []string{
		`{"type":"payment","data":{"id":"555"}}`,
		`{"type":"payment","data":{"id":"555"}}`,
		`{"type":"payment","data":{"id":"does-not-exist"}}`,
		`not json at all {`,
		``,
	}
	for _, body := range bodies {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		h.Handle(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, body)
		require.JSONEq(t, `{"received":true}`, rec.Body.String())
	}
	require.Equal(t, sale.StatusPaid, f.ledger.status(7))
}

func TestWebhookAcknowledgesWhenGatewayDown(t *testing.T) {
	f := newReconcileFixture(t, config.PolicyKeepPending, nil)
	f.gateway.err = errors.New("connection reset")
	h := &Webhook{Reconciler: f.rec, Logger: zerolog.Nop()}

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/payment?type=payment&data.id=555", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, f.recheck.count())
	require.Equal(t, sale.StatusPending, f.ledger.status(7))
}

func TestReturnHandlerReportsVerifiedStatus(t *testing.T) {
	f := newReconcileFixture(t, config.PolicyKeepPending, nil)
	f.gateway.payments["321"] = PaymentInfo{ID: "321", Status: StatusRejected, ExternalReference: "7"}
	h := &ReturnHandler{Reconciler: f.rec, Ledger: f.ledger, Logger: zerolog.Nop()}
	r := chi.NewRouter()
	r.Get("/api/v1/payments/return/{outcome}", h.Handle)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payments/return/success?collection_id=321&collection_status=approved&external_reference=7", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Outcome       string `json:"outcome"`
			Verified      bool   `json:"verified"`
			SaleID        int64  `json:"saleId"`
			SaleStatus    string `json:"saleStatus"`
			PaymentStatus string `json:"paymentStatus"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "success", body.Data.Outcome)
	require.True(t, body.Data.Verified)
	require.Equal(t, int64(7), body.Data.SaleID)
	require.Equal(t, "pending", body.Data.SaleStatus)
	require.Equal(t, StatusRejected, body.Data.PaymentStatus)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payments/return/hacked", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
