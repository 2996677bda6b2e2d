package sale

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newAdminRouter(l *Ledger) http.Handler {
	h := &AdminHandler{Ledger: l, Logger: zerolog.Nop()}
	r := chi.NewRouter()
	r.Get("/sales", h.List)
	r.Get("/sales/{id}", h.Get)
	r.Post("/sales/{id}/cancel", h.Cancel)
	return r
}

func TestAdminListSetsTotalHeader(t *testing.T) {
	l, _ := newTestLedger(t)
	createPending(t, l)
	createPending(t, l)

	rec := httptest.NewRecorder()
	newAdminRouter(l).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales?page=1&limit=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-Total-Count"))
	var body struct {
		Data []Sale `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
}

func TestAdminGetUnknownSale(t *testing.T) {
	l, _ := newTestLedger(t)

	rec := httptest.NewRecorder()
	newAdminRouter(l).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales/99", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	newAdminRouter(l).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales/abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCancel(t *testing.T) {
	l, _ := newTestLedger(t)
	pending := createPending(t, l)
	paid := createPending(t, l)
	_, err := l.UpdateStatus(context.Background(), paid.ID, StatusPaid, "")
	require.NoError(t, err)
	router := newAdminRouter(l)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales/1/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got, err := l.Get(context.Background(), pending.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales/2/cancel", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales/77/cancel", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
