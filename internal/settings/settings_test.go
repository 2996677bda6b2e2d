package settings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	dbgen "github.com/noah-isme/loja-api/internal/db/gen"
)

type fakeQueries struct {
	rows    map[string]string
	listErr error
}

func (f *fakeQueries) ListSettings(context.Context) ([]dbgen.ListSettingsRow, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]dbgen.ListSettingsRow, 0, len(f.rows))
	for k, v := range f.rows {
		out = append(out, dbgen.ListSettingsRow{Key: k, Value: v})
	}
	return out, nil
}

func (f *fakeQueries) UpsertSetting(_ context.Context, arg dbgen.UpsertSettingParams) error {
	if f.rows == nil {
		f.rows = map[string]string{}
	}
	f.rows[arg.Key] = arg.Value
	return nil
}

func TestSnapshotLayersRowsOverDefaults(t *testing.T) {
	q := &fakeQueries{rows: map[string]string{
		KeyPaymentAccessToken: "APP_USR-123456",
		KeyStoreName:          "Loja do Bairro",
		KeyHeaderColor:        "  ",
	}}
	store := NewStore(q, Values{KeyStoreName: "Loja", KeyHeaderColor: "#000", KeyShippingOrigin: "04866220"})

	vals, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, "APP_USR-123456", vals.PaymentAccessToken())
	require.Equal(t, "Loja do Bairro", vals.Get(KeyStoreName))
	require.Equal(t, "#000", vals.Get(KeyHeaderColor))
	require.Equal(t, "04866220", vals.ShippingOrigin())
}

func TestSnapshotIsFreshPerCall(t *testing.T) {
	q := &fakeQueries{rows: map[string]string{}}
	store := NewStore(q, nil)

	before, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	require.Empty(t, before.PaymentAccessToken())

	require.NoError(t, store.Update(context.Background(), map[string]string{KeyPaymentAccessToken: "TEST-1"}))
	after, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, "TEST-1", after.PaymentAccessToken())
	require.Empty(t, before.PaymentAccessToken())
}

func TestSnapshotDegradesToDefaults(t *testing.T) {
	store := NewStore(&fakeQueries{listErr: errors.New("db down")}, Values{KeyStoreName: "Loja"})
	vals, err := store.Snapshot(context.Background())
	require.Error(t, err)
	require.Equal(t, "Loja", vals.Get(KeyStoreName))
}

func TestUpdateRejectsUnknownAndSkipsMaskedSecrets(t *testing.T) {
	q := &fakeQueries{rows: map[string]string{KeyPaymentAccessToken: "APP_USR-secret"}}
	store := NewStore(q, nil)

	err := store.Update(context.Background(), map[string]string{"bogus": "1"})
	require.ErrorIs(t, err, ErrUnknownKey)

	require.NoError(t, store.Update(context.Background(), map[string]string{
		KeyPaymentAccessToken: "****cret",
		"about_us":            "Somos uma loja.",
	}))
	require.Equal(t, "APP_USR-secret", q.rows[KeyPaymentAccessToken])
	require.Equal(t, "Somos uma loja.", q.rows["about_us"])
}

func TestPublicNeverExposesSecrets(t *testing.T) {
	vals := Values{KeyPaymentAccessToken: "APP_USR-1", KeyShippingToken: "tok", KeyPaymentBanners: "visa, pix,,"}
	public := vals.Public()
	_, hasToken := public[KeyPaymentAccessToken]
	require.False(t, hasToken)
	require.Equal(t, []string{"visa", "pix"}, public[KeyPaymentBanners])

	redacted := vals.Redacted()
	require.Equal(t, "****SR-1", redacted[KeyPaymentAccessToken])
	require.Equal(t, "****", redacted[KeyShippingToken])
}

func TestPageHandler(t *testing.T) {
	h := &Handler{Store: NewStore(&fakeQueries{rows: map[string]string{"warranty": "90 dias"}}, nil), Logger: zerolog.Nop()}

	r := chi.NewRouter()
	r.Get("/pages/{key}", h.Page)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/pages/warranty", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"data":{"key":"warranty","title":"Garantia e Segurança","content":"90 dias"}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/pages/returns", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), "Conteúdo em breve."))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/pages/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminUpdateHandler(t *testing.T) {
	q := &fakeQueries{}
	h := &Handler{Store: NewStore(q, nil), Logger: zerolog.Nop()}

	rr := httptest.NewRecorder()
	h.AdminUpdate(rr, httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"header_color":"#fff"}`)))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "#fff", q.rows[KeyHeaderColor])

	rr = httptest.NewRecorder()
	h.AdminUpdate(rr, httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"unknown":"x"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
