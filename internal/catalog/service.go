package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/loja-api/internal/common"
	"github.com/noah-isme/loja-api/internal/db"
	dbgen "github.com/noah-isme/loja-api/internal/db/gen"
	"github.com/noah-isme/loja-api/internal/pricing"
)

// ErrNotFound is returned when a product id does not exist.
var ErrNotFound = errors.New("catalog: product not found")

type queryProvider interface {
	GetProduct(ctx context.Context, id string) (dbgen.Product, error)
	ListProducts(ctx context.Context, arg dbgen.ListProductsParams) ([]dbgen.Product, error)
	CountProducts(ctx context.Context) (int64, error)
	ListActiveOffers(ctx context.Context, now time.Time) ([]dbgen.Product, error)
	UpsertProduct(ctx context.Context, arg dbgen.UpsertProductParams) (dbgen.Product, error)
	DeleteProduct(ctx context.Context, id string) (int64, error)
}

// Service orchestrates catalog queries and caching.
type Service struct {
	queries      queryProvider
	cache        *Cache
	logger       zerolog.Logger
	now          func() time.Time
	location     *time.Location
	defaultLimit int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      queryProvider
	Cache        *Cache
	Logger       zerolog.Logger
	Now          func() time.Time
	Location     *time.Location
	DefaultLimit int
}

// ListResult contains list data and pagination metadata.
type ListResult struct {
	Items []Product
	Total int64
	Page  int
	Limit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	limit := cfg.DefaultLimit
	if limit < 1 {
		limit = 24
	}
	return &Service{
		queries:      cfg.Queries,
		cache:        cfg.Cache,
		logger:       cfg.Logger,
		now:          now,
		location:     loc,
		defaultLimit: limit,
	}, nil
}

// Now exposes the service clock so handlers price views consistently.
func (s *Service) Now() time.Time { return s.now() }

// Get returns a product by id, served from cache when possible.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, ErrNotFound
	}
	if cached, ok, err := s.cache.Product(ctx, id); err == nil && ok {
		return cached, nil
	} else if err != nil {
		s.logger.Warn().Err(err).Str("product_id", id).Msg("catalog_cache_read_failed")
	}
	row, err := s.queries.GetProduct(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	p := fromRow(row)
	if err := s.cache.StoreProduct(ctx, p); err != nil {
		s.logger.Warn().Err(err).Str("product_id", id).Msg("catalog_cache_write_failed")
	}
	return p, nil
}

// List returns products newest first.
func (s *Service) List(ctx context.Context, page, limit int) (ListResult, error) {
	if limit < 1 {
		limit = s.defaultLimit
	}
	if page < 1 {
		page = 1
	}
	total, err := s.queries.CountProducts(ctx)
	if err != nil {
		return ListResult{}, fmt.Errorf("count products: %w", err)
	}
	rows, err := s.queries.ListProducts(ctx, dbgen.ListProductsParams{
		Limit:  int32(limit),
		Offset: int32(common.Offset(page, limit)),
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list products: %w", err)
	}
	items := make([]Product, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromRow(row))
	}
	return ListResult{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// ListOnOffer returns products whose offer is active now.
func (s *Service) ListOnOffer(ctx context.Context) ([]Product, error) {
	rows, err := s.queries.ListActiveOffers(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	items := make([]Product, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromRow(row))
	}
	return items, nil
}

// Upsert creates or replaces a product. A missing id gets a generated one.
func (s *Service) Upsert(ctx context.Context, in Input) (Product, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Product{}, err
	}
	params, err := s.upsertParams(in)
	if err != nil {
		return Product{}, err
	}
	row, err := s.queries.UpsertProduct(ctx, params)
	if err != nil {
		return Product{}, fmt.Errorf("upsert product: %w", err)
	}
	if err := s.cache.Invalidate(ctx, row.ID); err != nil {
		s.logger.Warn().Err(err).Str("product_id", row.ID).Msg("catalog_cache_invalidate_failed")
	}
	return fromRow(row), nil
}

// Delete removes a product. Past sales keep their denormalized product name.
func (s *Service) Delete(ctx context.Context, id string) error {
	n, err := s.queries.DeleteProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("product_id", id).Msg("catalog_cache_invalidate_failed")
	}
	return nil
}

func (s *Service) upsertParams(in Input) (dbgen.UpsertProductParams, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	price := pricing.ParseAmount(in.Price)
	if !price.IsPositive() {
		return dbgen.UpsertProductParams{}, badRequest("price", "price must be a positive amount", nil)
	}
	var offer decimal.NullDecimal
	if strings.TrimSpace(in.OfferPrice) != "" {
		offer = decimal.NullDecimal{Decimal: pricing.ParseAmount(in.OfferPrice), Valid: true}
	}
	if in.OnOffer && (!offer.Valid || !offer.Decimal.IsPositive()) {
		return dbgen.UpsertProductParams{}, badRequest("offerPrice", "offer price is required when the product is on offer", nil)
	}
	ends, ok := parseOfferEnd(in.OfferEndsAt, s.location)
	if !ok {
		return dbgen.UpsertProductParams{}, badRequest("offerEndsAt", "offer end must be RFC3339 or YYYY-MM-DDTHH:MM", nil)
	}
	threshold := pricing.ParseAmount(in.FreeShippingThreshold)
	if threshold.IsNegative() {
		threshold = decimal.Zero
	}
	images := make([]string, 0, len(in.ImageURLs))
	for _, u := range in.ImageURLs {
		if u = strings.TrimSpace(u); u != "" && len(images) < MaxImages {
			images = append(images, u)
		}
	}
	return dbgen.UpsertProductParams{
		ID:                    id,
		Name:                  strings.TrimSpace(in.Name),
		Category:              strings.TrimSpace(in.Category),
		Description:           in.Description,
		Price:                 price,
		OnOffer:               in.OnOffer,
		OfferPrice:            offer,
		OfferEndsAt:           ends,
		PixDiscountPercent:    int32(in.PixDiscountPercent),
		FreeShippingThreshold: threshold,
		Stock:                 int32(in.Stock),
		DeliveryEstimate:      strings.TrimSpace(in.DeliveryEstimate),
		PreparationTime:       strings.TrimSpace(in.PreparationTime),
		ImageUrls:             images,
		VideoUrl:              strings.TrimSpace(in.VideoURL),
	}, nil
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": field,
		},
	}
}
