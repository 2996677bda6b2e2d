package sale

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	dbgen "github.com/noah-isme/loja-api/internal/db/gen"
)

// memQueries mirrors the guarded SQL statements over an in-memory table.
type memQueries struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]dbgen.Sale
	fail   error
}

func newMemQueries() *memQueries {
	return &memQueries{rows: map[int64]dbgen.Sale{}}
}

func (m *memQueries) CreateSale(_ context.Context, arg dbgen.CreateSaleParams) (dbgen.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return dbgen.Sale{}, m.fail
	}
	m.nextID++
	now := time.Now().UTC()
	row := dbgen.Sale{
		ID:            m.nextID,
		CustomerName:  arg.CustomerName,
		CustomerEmail: arg.CustomerEmail,
		CustomerPhone: arg.CustomerPhone,
		ProductID:     arg.ProductID,
		ProductName:   arg.ProductName,
		Quantity:      arg.Quantity,
		PaymentMethod: arg.PaymentMethod,
		Total:         arg.Total,
		Status:        string(StatusPending),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.rows[row.ID] = row
	return row, nil
}

func (m *memQueries) GetSale(_ context.Context, id int64) (dbgen.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return dbgen.Sale{}, m.fail
	}
	row, ok := m.rows[id]
	if !ok {
		return dbgen.Sale{}, pgx.ErrNoRows
	}
	return row, nil
}

func (m *memQueries) ListSales(_ context.Context, arg dbgen.ListSalesParams) ([]dbgen.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := make([]dbgen.Sale, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	start := int(arg.Offset)
	if start > len(out) {
		return []dbgen.Sale{}, nil
	}
	end := start + int(arg.Limit)
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (m *memQueries) CountSales(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return 0, m.fail
	}
	return int64(len(m.rows)), nil
}

func (m *memQueries) UpdateSaleStatus(_ context.Context, arg dbgen.UpdateSaleStatusParams) (dbgen.UpdateSaleStatusRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return dbgen.UpdateSaleStatusRow{}, m.fail
	}
	row, ok := m.rows[arg.ID]
	if !ok {
		return dbgen.UpdateSaleStatusRow{}, pgx.ErrNoRows
	}
	prev := row.Status
	if prev != string(StatusPending) && prev != arg.Status {
		return dbgen.UpdateSaleStatusRow{}, pgx.ErrNoRows
	}
	if prev == string(StatusPending) {
		row.Status = arg.Status
		if arg.PaymentID.Valid {
			row.PaymentID = arg.PaymentID
		}
		row.UpdatedAt = time.Now().UTC()
		m.rows[row.ID] = row
	}
	return dbgen.UpdateSaleStatusRow{
		ID:             row.ID,
		CustomerName:   row.CustomerName,
		CustomerEmail:  row.CustomerEmail,
		CustomerPhone:  row.CustomerPhone,
		ProductID:      row.ProductID,
		ProductName:    row.ProductName,
		Quantity:       row.Quantity,
		PaymentMethod:  row.PaymentMethod,
		Total:          row.Total,
		Status:         row.Status,
		PaymentID:      row.PaymentID,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
		PreviousStatus: prev,
	}, nil
}

var errBoom = errors.New("connection refused")
