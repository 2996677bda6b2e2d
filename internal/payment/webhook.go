package payment

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/loja-api/internal/common"
	"github.com/noah-isme/loja-api/internal/sale"
)

const maxNotificationBody = 64 << 10

// Webhook receives gateway notifications on GET or POST.
type Webhook struct {
	Reconciler *Reconciler
	Logger     zerolog.Logger
}

// Handle acknowledges every notification with 200 so the gateway stops
// redelivering; verification failures are handled through re-checks.
func (h *Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	n, err := ParseNotification(r)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("payment_notification_unparseable")
	}
	n.Source = SourceWebhook
	h.Reconciler.Reconcile(r.Context(), n)
	common.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

// ParseNotification collects notification fields from the query string and a
// JSON or form body. Body values win over query values. An error is returned
// only for unreadable bodies; the fields found so far are still returned.
func ParseNotification(r *http.Request) (Notification, error) {
	fields := map[string]string{}
	mergeValues(fields, r.URL.Query())

	if r.Body == nil || r.Method == http.MethodGet {
		return fromFields(fields), nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBody))
	if err != nil {
		return fromFields(fields), err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return fromFields(fields), nil
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return fromFields(fields), err
		}
		mergeValues(fields, values)
	case body[0] == '{':
		var payload map[string]any
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil {
			return fromFields(fields), err
		}
		flatten(fields, "", payload)
	default:
		if values, err := url.ParseQuery(string(body)); err == nil {
			mergeValues(fields, values)
		}
	}
	return fromFields(fields), nil
}

func fromFields(f map[string]string) Notification {
	first := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(f[k]); v != "" {
				return v
			}
		}
		return ""
	}
	n := Notification{
		Topic:             first("type", "topic", "action"),
		StatusHint:        first("status", "collection_status"),
		ExternalReference: first("external_reference"),
	}
	n.PaymentID = first("data.id", "data_id", "payment_id", "collection_id")
	if n.PaymentID == "" && !strings.HasPrefix(n.Topic, "merchant_order") {
		// bare id means the payment id unless the topic says otherwise
		n.PaymentID = first("id")
	}
	if strings.HasPrefix(n.Topic, "payment.") {
		n.Topic = "payment"
	}
	return n
}

func mergeValues(dst map[string]string, values url.Values) {
	for k, v := range values {
		if len(v) > 0 && strings.TrimSpace(v[0]) != "" {
			dst[k] = v[0]
		}
	}
}

func flatten(dst map[string]string, prefix string, payload map[string]any) {
	for k, v := range payload {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(dst, key, val)
		case string:
			if strings.TrimSpace(val) != "" {
				dst[key] = val
			}
		case json.Number:
			dst[key] = val.String()
		}
	}
}

// ReturnHandler serves the browser return URLs. The outcome in the path is
// only a label; the sale status returned is the verified one.
type ReturnHandler struct {
	Reconciler *Reconciler
	Ledger     Ledger
	Logger     zerolog.Logger
}

// Handle handles GET /api/v1/payments/return/{outcome}.
func (h *ReturnHandler) Handle(w http.ResponseWriter, r *http.Request) {
	outcome := strings.ToLower(chi.URLParam(r, "outcome"))
	switch outcome {
	case "success", "failure", "pending":
	default:
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "unknown return page", nil)
		return
	}
	n, _ := ParseNotification(r)
	n.Source = SourceReturn
	result := Outcome{Result: ResultIgnored}
	if n.PaymentID != "" || n.ExternalReference != "" {
		result = h.Reconciler.Reconcile(r.Context(), n)
	}

	resp := map[string]any{
		"outcome":  outcome,
		"verified": result.GatewayStatus != "",
	}
	if result.SaleID != 0 {
		resp["saleId"] = result.SaleID
	}
	if result.GatewayStatus != "" {
		resp["paymentStatus"] = result.GatewayStatus
	}
	status := result.SaleStatus
	if status == "" && h.Ledger != nil {
		if id, ok := sale.ParseReference(n.ExternalReference); ok && result.GatewayStatus == "" {
			if s, err := h.Ledger.Get(r.Context(), id); err == nil {
				resp["saleId"] = s.ID
				status = s.Status
			}
		}
	}
	if status != "" {
		resp["saleStatus"] = status
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": resp})
}
