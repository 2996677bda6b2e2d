package customer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/loja-api/internal/common"
	dbgen "github.com/noah-isme/loja-api/internal/db/gen"
)

type memQueries struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]dbgen.Customer
}

func newMemQueries() *memQueries { return &memQueries{rows: map[int64]dbgen.Customer{}} }

func (m *memQueries) emailTaken(email string, except int64) bool {
	for id, c := range m.rows {
		if id != except && strings.EqualFold(c.Email, email) {
			return true
		}
	}
	return false
}

func (m *memQueries) CreateCustomer(_ context.Context, arg dbgen.CreateCustomerParams) (dbgen.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(arg.Email, 0) {
		return dbgen.Customer{}, &pgconn.PgError{Code: "23505"}
	}
	m.nextID++
	c := dbgen.Customer{ID: m.nextID, FullName: arg.FullName, Whatsapp: arg.Whatsapp, Email: arg.Email, CreatedAt: time.Now()}
	m.rows[c.ID] = c
	return c, nil
}

func (m *memQueries) GetCustomer(_ context.Context, id int64) (dbgen.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return dbgen.Customer{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *memQueries) ListCustomers(_ context.Context, arg dbgen.ListCustomersParams) ([]dbgen.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]dbgen.Customer, 0, len(m.rows))
	for _, c := range m.rows {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	start := min(int(arg.Offset), len(out))
	end := min(start+int(arg.Limit), len(out))
	return out[start:end], nil
}

func (m *memQueries) CountCustomers(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

func (m *memQueries) UpdateCustomer(_ context.Context, arg dbgen.UpdateCustomerParams) (dbgen.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[arg.ID]
	if !ok {
		return dbgen.Customer{}, pgx.ErrNoRows
	}
	if m.emailTaken(arg.Email, arg.ID) {
		return dbgen.Customer{}, &pgconn.PgError{Code: "23505"}
	}
	c.FullName, c.Whatsapp, c.Email = arg.FullName, arg.Whatsapp, arg.Email
	m.rows[c.ID] = c
	return c, nil
}

func (m *memQueries) DeleteCustomer(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

func TestRegisterAndDuplicateEmail(t *testing.T) {
	svc := NewService(newMemQueries())
	ctx := context.Background()

	c, err := svc.Register(ctx, Input{FullName: " Ana Souza ", Email: "Ana@Example.com", WhatsApp: "11999999999"})
	require.NoError(t, err)
	require.Equal(t, "Ana Souza", c.FullName)
	require.Equal(t, "ana@example.com", c.Email)

	_, err = svc.Register(ctx, Input{FullName: "Outra Ana", Email: "ANA@example.com"})
	require.ErrorIs(t, err, errEmailUsed)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newMemQueries())

	_, err := svc.Register(context.Background(), Input{FullName: "", Email: "nope"})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
	fields := appErr.Details.(map[string]any)["fields"].(map[string]string)
	require.Equal(t, "required", fields["fullName"])
	require.Equal(t, "email", fields["email"])
}

func TestUpdateDeleteLifecycle(t *testing.T) {
	svc := NewService(newMemQueries())
	ctx := context.Background()
	a, err := svc.Register(ctx, Input{FullName: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	b, err := svc.Register(ctx, Input{FullName: "Bruno", Email: "bruno@example.com"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, b.ID, Input{FullName: "Bruno", Email: "ana@example.com"})
	require.ErrorIs(t, err, errEmailUsed)

	updated, err := svc.Update(ctx, b.ID, Input{FullName: "Bruno Lima", Email: "bruno@example.com", WhatsApp: "11888888888"})
	require.NoError(t, err)
	require.Equal(t, "Bruno Lima", updated.FullName)

	items, total, err := svc.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, a.ID, items[0].ID)

	require.NoError(t, svc.Delete(ctx, a.ID))
	require.ErrorIs(t, svc.Delete(ctx, a.ID), errNotFound)
	_, err = svc.Get(ctx, a.ID)
	require.ErrorIs(t, err, errNotFound)
}

func TestRegisterHandlerConflict(t *testing.T) {
	h := &Handler{Service: NewService(newMemQueries()), Logger: zerolog.Nop()}
	r := chi.NewRouter()
	r.Post("/api/v1/customers", h.Register)
	r.Get("/api/v1/admin/customers/{id}", h.Get)

	body := `{"fullName":"Ana","email":"ana@example.com","whatsapp":"11999999999"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader(body)))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "EMAIL_ALREADY_USED")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/customers/x", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/customers/99", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
