// Package customer keeps the storefront's customer register.
package customer

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/loja-api/internal/common"
	"github.com/noah-isme/loja-api/internal/db"
	dbgen "github.com/noah-isme/loja-api/internal/db/gen"
)

// Customer is a registered shopper.
type Customer struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"fullName"`
	WhatsApp  string    `json:"whatsapp"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Input is the register and update payload.
type Input struct {
	FullName string `json:"fullName" validate:"required,max=120"`
	WhatsApp string `json:"whatsapp" validate:"omitempty,max=30"`
	Email    string `json:"email" validate:"required,email,max=254"`
}

type queryProvider interface {
	CreateCustomer(ctx context.Context, arg dbgen.CreateCustomerParams) (dbgen.Customer, error)
	GetCustomer(ctx context.Context, id int64) (dbgen.Customer, error)
	ListCustomers(ctx context.Context, arg dbgen.ListCustomersParams) ([]dbgen.Customer, error)
	CountCustomers(ctx context.Context) (int64, error)
	UpdateCustomer(ctx context.Context, arg dbgen.UpdateCustomerParams) (dbgen.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) (int64, error)
}

var (
	errNotFound  = common.NewAppError("CUSTOMER_NOT_FOUND", "customer not found", http.StatusNotFound, nil)
	errEmailUsed = common.NewAppError("EMAIL_ALREADY_USED", "email already registered", http.StatusConflict, nil)
)

// Service manages customers.
type Service struct {
	queries queryProvider
}

// NewService constructs a Service.
func NewService(q queryProvider) *Service {
	return &Service{queries: q}
}

// Register creates a customer. Emails are unique regardless of case.
func (s *Service) Register(ctx context.Context, in Input) (Customer, error) {
	in = normalize(in)
	if err := common.ValidateStruct(in); err != nil {
		return Customer{}, err
	}
	row, err := s.queries.CreateCustomer(ctx, dbgen.CreateCustomerParams{
		FullName: in.FullName,
		Whatsapp: in.WhatsApp,
		Email:    in.Email,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Customer{}, errEmailUsed
		}
		return Customer{}, err
	}
	return fromRow(row), nil
}

// Get returns a customer by id.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	row, err := s.queries.GetCustomer(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return Customer{}, errNotFound
		}
		return Customer{}, err
	}
	return fromRow(row), nil
}

// List returns customers ordered by name.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Customer, int64, error) {
	if perPage <= 0 {
		perPage = 20
	}
	total, err := s.queries.CountCustomers(ctx)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.queries.ListCustomers(ctx, dbgen.ListCustomersParams{
		Limit:  int32(perPage),
		Offset: int32(common.Offset(page, perPage)),
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]Customer, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, total, nil
}

// Update replaces a customer's details.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Customer, error) {
	in = normalize(in)
	if err := common.ValidateStruct(in); err != nil {
		return Customer{}, err
	}
	row, err := s.queries.UpdateCustomer(ctx, dbgen.UpdateCustomerParams{
		ID:       id,
		FullName: in.FullName,
		Whatsapp: in.WhatsApp,
		Email:    in.Email,
	})
	if err != nil {
		switch {
		case db.IsNotFound(err):
			return Customer{}, errNotFound
		case db.IsUniqueViolation(err):
			return Customer{}, errEmailUsed
		}
		return Customer{}, err
	}
	return fromRow(row), nil
}

// Delete removes a customer.
func (s *Service) Delete(ctx context.Context, id int64) error {
	n, err := s.queries.DeleteCustomer(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return errNotFound
	}
	return nil
}

func normalize(in Input) Input {
	in.FullName = strings.TrimSpace(in.FullName)
	in.WhatsApp = strings.TrimSpace(in.WhatsApp)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	return in
}

func fromRow(row dbgen.Customer) Customer {
	return Customer{
		ID:        row.ID,
		FullName:  row.FullName,
		WhatsApp:  row.Whatsapp,
		Email:     row.Email,
		CreatedAt: row.CreatedAt,
	}
}
