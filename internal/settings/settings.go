// Package settings holds the store-wide key/value configuration edited from
// the back office. Callers take a fresh Snapshot per request and pass it to
// the components that need credentials or branding.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	dbgen "github.com/noah-isme/loja-api/internal/db/gen"
)

// Known configuration keys.
const (
	KeyPaymentAccessToken = "payment_access_token"
	KeyShippingToken      = "shipping_token"
	KeyShippingOrigin     = "shipping_origin_postal_code"
	KeyStoreName          = "store_name"
	KeyHeaderColor        = "header_color"
	KeyFooterColor        = "footer_color"
	KeyBannerImage        = "banner_img"
	KeyPaymentBanners     = "payment_banners"
	KeyContactEmail       = "contact_email"
	KeyContactWhatsApp    = "contact_whatsapp"
)

// Page keys hold long-form informational text.
var pageTitles = map[string]string{
	"about_us":        "Quem Somos",
	"privacy_policy":  "Política de Privacidade",
	"refund_policy":   "Política de Reembolso",
	"payment_methods": "Formas de Pagamento",
	"shipping_info":   "Entrega e Frete",
	"returns":         "Trocas e Devoluções",
	"warranty":        "Garantia e Segurança",
	"order_tracking":  "Rastrear Pedido",
}

var secretKeys = map[string]struct{}{
	KeyPaymentAccessToken: {},
	KeyShippingToken:      {},
}

var publicKeys = []string{
	KeyStoreName, KeyHeaderColor, KeyFooterColor, KeyBannerImage,
	KeyPaymentBanners, KeyContactEmail, KeyContactWhatsApp,
}

// ErrUnknownKey is returned when an update names a key outside the known set.
var ErrUnknownKey = errors.New("settings: unknown key")

// Values is an immutable snapshot of the configuration.
type Values map[string]string

// Get returns the trimmed value for key.
func (v Values) Get(key string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(v[key])
}

// PaymentAccessToken is the gateway credential, empty when not configured.
func (v Values) PaymentAccessToken() string { return v.Get(KeyPaymentAccessToken) }

// ShippingToken is the shipping quote credential.
func (v Values) ShippingToken() string { return v.Get(KeyShippingToken) }

// ShippingOrigin is the origin postal code used for quotes.
func (v Values) ShippingOrigin() string { return v.Get(KeyShippingOrigin) }

// PaymentBanners splits the comma separated banner list.
func (v Values) PaymentBanners() []string {
	raw := v.Get(KeyPaymentBanners)
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Public returns the subset safe to expose to storefront clients.
func (v Values) Public() map[string]any {
	out := make(map[string]any, len(publicKeys))
	for _, key := range publicKeys {
		out[key] = v.Get(key)
	}
	out[KeyPaymentBanners] = v.PaymentBanners()
	return out
}

// Redacted returns every key with secrets masked, for the back office.
func (v Values) Redacted() map[string]string {
	out := make(map[string]string, len(v))
	for key, value := range v {
		if _, secret := secretKeys[key]; secret && value != "" {
			out[key] = mask(value)
			continue
		}
		out[key] = value
	}
	return out
}

// Page is an informational text page.
type Page struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Page resolves an informational page. ok is false for unknown keys.
func (v Values) Page(key string) (Page, bool) {
	title, ok := pageTitles[key]
	if !ok {
		return Page{}, false
	}
	content := v.Get(key)
	if content == "" {
		content = "Conteúdo em breve."
	}
	return Page{Key: key, Title: title, Content: content}, true
}

// PageKeys lists the informational page keys in stable order.
func PageKeys() []string {
	keys := make([]string, 0, len(pageTitles))
	for key := range pageTitles {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key may be stored.
func IsKnownKey(key string) bool {
	if _, ok := pageTitles[key]; ok {
		return true
	}
	if _, ok := secretKeys[key]; ok {
		return true
	}
	if key == KeyShippingOrigin {
		return true
	}
	for _, k := range publicKeys {
		if k == key {
			return true
		}
	}
	return false
}

func mask(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

type queryProvider interface {
	ListSettings(ctx context.Context) ([]dbgen.ListSettingsRow, error)
	UpsertSetting(ctx context.Context, arg dbgen.UpsertSettingParams) error
}

// Store reads and writes configuration rows, layering them over defaults.
type Store struct {
	queries  queryProvider
	defaults Values
}

// NewStore constructs a Store. defaults fill keys missing from the table.
func NewStore(q queryProvider, defaults Values) *Store {
	copied := make(Values, len(defaults))
	for k, v := range defaults {
		copied[k] = v
	}
	return &Store{queries: q, defaults: copied}
}

// Snapshot reads the current configuration. On storage failure it returns the
// defaults together with the error so callers can choose to degrade.
func (s *Store) Snapshot(ctx context.Context) (Values, error) {
	out := make(Values, len(s.defaults)+8)
	for k, v := range s.defaults {
		out[k] = v
	}
	if s.queries == nil {
		return out, nil
	}
	rows, err := s.queries.ListSettings(ctx)
	if err != nil {
		return out, fmt.Errorf("list settings: %w", err)
	}
	for _, row := range rows {
		if strings.TrimSpace(row.Value) == "" {
			continue
		}
		out[row.Key] = row.Value
	}
	return out, nil
}

// Update upserts the provided keys. Masked secrets echoed back unchanged are skipped.
func (s *Store) Update(ctx context.Context, values map[string]string) error {
	if s.queries == nil {
		return errors.New("settings store not configured")
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		if !IsKnownKey(key) {
			return fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := values[key]
		if _, secret := secretKeys[key]; secret && strings.HasPrefix(value, "****") {
			continue
		}
		if err := s.queries.UpsertSetting(ctx, dbgen.UpsertSettingParams{Key: key, Value: value}); err != nil {
			return fmt.Errorf("upsert setting %s: %w", key, err)
		}
	}
	return nil
}

// Defaults returns the storefront defaults seeded on first run.
func Defaults() Values {
	return Values{
		KeyStoreName:       "Loja",
		KeyHeaderColor:     "#111827",
		KeyFooterColor:     "#111827",
		KeyPaymentBanners:  "visa,mastercard,elo,pix,boleto",
		KeyContactEmail:    "contato@loja.com.br",
		KeyContactWhatsApp: "5511999999999",
		KeyShippingOrigin:  "04866220",
	}
}
