// Package sale is the order ledger: it records one row per checkout attempt
// and moves it from pending to exactly one terminal status.
package sale

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/loja-api/internal/db"
	dbgen "github.com/noah-isme/loja-api/internal/db/gen"
	"github.com/noah-isme/loja-api/internal/obs"
)

// Status is the lifecycle state of a sale.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s can no longer change.
func (s Status) Terminal() bool {
	return s.Valid() && s != StatusPending
}

// CanTransition reports whether a sale in from may be set to to. Re-applying
// the current status is allowed and changes nothing.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	return from == StatusPending || from == to
}

var (
	// ErrNotFound is returned by Get for an unknown id.
	ErrNotFound = errors.New("sale: not found")
	// ErrStorageUnavailable wraps any persistence failure.
	ErrStorageUnavailable = errors.New("sale: storage unavailable")
	// ErrInvalidStatus is returned for statuses outside the known set.
	ErrInvalidStatus = errors.New("sale: invalid status")
)

// Sale is a persisted purchase attempt.
type Sale struct {
	ID            int64           `json:"id"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail"`
	CustomerPhone string          `json:"customerPhone"`
	ProductID     string          `json:"productId,omitempty"`
	ProductName   string          `json:"productName"`
	Quantity      int             `json:"quantity"`
	PaymentMethod string          `json:"paymentMethod"`
	Total         decimal.Decimal `json:"total"`
	Status        Status          `json:"status"`
	PaymentID     string          `json:"paymentId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Reference is the external reference handed to the payment gateway.
func (s Sale) Reference() string {
	return strconv.FormatInt(s.ID, 10)
}

// ParseReference converts a gateway external reference back into a sale id.
func ParseReference(ref string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(ref), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// NewSale carries the fields captured at checkout.
type NewSale struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	ProductID     string
	ProductName   string
	Quantity      int
	PaymentMethod string
	Total         decimal.Decimal
}

// UpdateResult classifies the effect of UpdateStatus.
type UpdateResult string

const (
	UpdateApplied   UpdateResult = "applied"
	UpdateUnchanged UpdateResult = "unchanged"
	UpdateRejected  UpdateResult = "rejected"
	UpdateUnknown   UpdateResult = "unknown"
)

// Update describes the outcome of a status change request.
type Update struct {
	Result   UpdateResult
	Previous Status
	Sale     Sale
}

// ListParams paginates List.
type ListParams struct {
	Page  int
	Limit int
}

// ListResult is a page of sales, newest first.
type ListResult struct {
	Items []Sale
	Total int64
	Page  int
	Limit int
}

// Querier is the subset of generated queries the ledger depends on.
type Querier interface {
	CreateSale(ctx context.Context, arg dbgen.CreateSaleParams) (dbgen.Sale, error)
	GetSale(ctx context.Context, id int64) (dbgen.Sale, error)
	ListSales(ctx context.Context, arg dbgen.ListSalesParams) ([]dbgen.Sale, error)
	CountSales(ctx context.Context) (int64, error)
	UpdateSaleStatus(ctx context.Context, arg dbgen.UpdateSaleStatusParams) (dbgen.UpdateSaleStatusRow, error)
}

// Ledger persists sales and guards status transitions.
type Ledger struct {
	q      Querier
	logger zerolog.Logger
}

// NewLedger constructs a Ledger.
func NewLedger(q Querier, logger zerolog.Logger) *Ledger {
	return &Ledger{q: q, logger: logger.With().Str("component", "ledger").Logger()}
}

// Create records a pending sale and returns it with its assigned id.
func (l *Ledger) Create(ctx context.Context, in NewSale) (Sale, error) {
	qty := in.Quantity
	if qty < 1 {
		qty = 1
	}
	row, err := l.q.CreateSale(ctx, dbgen.CreateSaleParams{
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerEmail: strings.TrimSpace(in.CustomerEmail),
		CustomerPhone: strings.TrimSpace(in.CustomerPhone),
		ProductID:     optionalText(in.ProductID),
		ProductName:   in.ProductName,
		Quantity:      int32(qty),
		PaymentMethod: in.PaymentMethod,
		Total:         in.Total.Round(2),
	})
	if err != nil {
		return Sale{}, fmt.Errorf("%w: create sale: %v", ErrStorageUnavailable, err)
	}
	obs.IncCounter(obs.SalesCreatedTotal, in.PaymentMethod)
	s := fromRow(row)
	l.logger.Info().Int64("sale_id", s.ID).Str("total", s.Total.StringFixed(2)).Str("method", s.PaymentMethod).Msg("sale_created")
	return s, nil
}

// Get returns a sale by id.
func (l *Ledger) Get(ctx context.Context, id int64) (Sale, error) {
	row, err := l.q.GetSale(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return Sale{}, ErrNotFound
		}
		return Sale{}, fmt.Errorf("%w: get sale: %v", ErrStorageUnavailable, err)
	}
	return fromRow(row), nil
}

// List returns sales newest first.
func (l *Ledger) List(ctx context.Context, p ListParams) (ListResult, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 50
	}
	total, err := l.q.CountSales(ctx)
	if err != nil {
		return ListResult{}, fmt.Errorf("%w: count sales: %v", ErrStorageUnavailable, err)
	}
	rows, err := l.q.ListSales(ctx, dbgen.ListSalesParams{
		Limit:  int32(p.Limit),
		Offset: int32((p.Page - 1) * p.Limit),
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("%w: list sales: %v", ErrStorageUnavailable, err)
	}
	items := make([]Sale, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromRow(row))
	}
	return ListResult{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

// UpdateStatus moves a sale to status in a single guarded statement. Repeating
// a delivered status is a no-op, terminal statuses never change, and an
// unknown id is logged and reported as UpdateUnknown rather than an error.
// paymentID, when non-empty, is recorded alongside the status.
func (l *Ledger) UpdateStatus(ctx context.Context, id int64, status Status, paymentID string) (Update, error) {
	if !status.Valid() {
		return Update{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	log := l.logger.With().Int64("sale_id", id).Str("target_status", string(status)).Logger()
	row, err := l.q.UpdateSaleStatus(ctx, dbgen.UpdateSaleStatusParams{
		ID:        id,
		Status:    string(status),
		PaymentID: optionalText(paymentID),
	})
	if err == nil {
		prev := Status(row.PreviousStatus)
		result := UpdateApplied
		if prev == status {
			result = UpdateUnchanged
		}
		log.Info().Str("previous_status", string(prev)).Str("result", string(result)).Msg("sale_status_update")
		return Update{Result: result, Previous: prev, Sale: fromUpdateRow(row)}, nil
	}
	if !db.IsNotFound(err) {
		return Update{}, fmt.Errorf("%w: update sale status: %v", ErrStorageUnavailable, err)
	}
	// no row matched: either the id is unknown or the transition is not allowed
	current, getErr := l.Get(ctx, id)
	switch {
	case errors.Is(getErr, ErrNotFound):
		log.Warn().Msg("sale_status_update_unknown_sale")
		return Update{Result: UpdateUnknown}, nil
	case getErr != nil:
		return Update{}, getErr
	}
	log.Warn().Str("current_status", string(current.Status)).Msg("sale_status_update_rejected")
	return Update{Result: UpdateRejected, Previous: current.Status, Sale: current}, nil
}

func fromRow(row dbgen.Sale) Sale {
	return Sale{
		ID:            row.ID,
		CustomerName:  row.CustomerName,
		CustomerEmail: row.CustomerEmail,
		CustomerPhone: row.CustomerPhone,
		ProductID:     row.ProductID.String,
		ProductName:   row.ProductName,
		Quantity:      int(row.Quantity),
		PaymentMethod: row.PaymentMethod,
		Total:         row.Total,
		Status:        Status(row.Status),
		PaymentID:     row.PaymentID.String,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func fromUpdateRow(row dbgen.UpdateSaleStatusRow) Sale {
	return fromRow(dbgen.Sale{
		ID:            row.ID,
		CustomerName:  row.CustomerName,
		CustomerEmail: row.CustomerEmail,
		CustomerPhone: row.CustomerPhone,
		ProductID:     row.ProductID,
		ProductName:   row.ProductName,
		Quantity:      row.Quantity,
		PaymentMethod: row.PaymentMethod,
		Total:         row.Total,
		Status:        row.Status,
		PaymentID:     row.PaymentID,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	})
}

func optionalText(v string) pgtype.Text {
	v = strings.TrimSpace(v)
	if v == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: v, Valid: true}
}
