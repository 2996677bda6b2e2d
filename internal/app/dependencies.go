// Package app assembles the shared infrastructure used by the API, the
// worker and the tooling binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/noah-isme/loja-api/internal/config"
	"github.com/noah-isme/loja-api/internal/db"
	"github.com/noah-isme/loja-api/internal/lock"
	dbgen "github.com/noah-isme/loja-api/internal/db/gen"
	"github.com/noah-isme/loja-api/internal/obs"
	"github.com/noah-isme/loja-api/internal/payment"
	"github.com/noah-isme/loja-api/internal/resilience"
	"github.com/noah-isme/loja-api/internal/sale"
	"github.com/noah-isme/loja-api/internal/settings"
)

// Dependencies are the long-lived clients shared by every module.
type Dependencies struct {
	Config     *config.Config
	Logger     zerolog.Logger
	DB         *pgxpool.Pool
	Redis      *redis.Client
	Queries    *dbgen.Queries
	Settings   *settings.Store
	Ledger     *sale.Ledger
	TaskClient *asynq.Client
	Meter      metric.Meter
}

// Options tunes New.
type Options struct {
	ApplicationName string
	Migrate         bool
	RedisMetrics    bool
}

// New connects to Postgres and Redis and builds the stores on top of them.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	if opts.Migrate {
		if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Msg("migrations_applied")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := db.NewPool(connectCtx, cfg.DatabaseURL, db.PoolOptions{
		ApplicationName: opts.ApplicationName,
		Tracer:          obs.PGXTracer{},
	})
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	rdb, err := NewRedis(cfg.RedisURL, opts.RedisMetrics, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := rdb.Ping(connectCtx).Err(); err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("parse redis uri for tasks: %w", err)
	}

	queries := dbgen.New(pool)
	return &Dependencies{
		Config:     cfg,
		Logger:     logger,
		DB:         pool,
		Redis:      rdb,
		Queries:    queries,
		Settings:   settings.NewStore(queries, SettingsDefaults(cfg)),
		Ledger:     sale.NewLedger(queries, logger),
		TaskClient: asynq.NewClient(redisOpt),
		Meter:      otel.Meter("github.com/noah-isme/loja-api"),
	}, nil
}

// NewRedis parses url and instruments the client with OpenTelemetry.
func NewRedis(url string, withMetrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Warn().Err(err).Msg("instrument redis tracing")
	}
	if withMetrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Warn().Err(err).Msg("instrument redis metrics")
		}
	}
	return client, nil
}

// SettingsDefaults layers credentials from the environment under the
// settings table, so a back-office value always wins.
func SettingsDefaults(cfg *config.Config) settings.Values {
	vals := settings.Defaults()
	if cfg.Payment.AccessToken != "" {
		vals[settings.KeyPaymentAccessToken] = cfg.Payment.AccessToken
	}
	if cfg.Shipping.Token != "" {
		vals[settings.KeyShippingToken] = cfg.Shipping.Token
	}
	if cfg.Shipping.OriginPostalCode != "" {
		vals[settings.KeyShippingOrigin] = cfg.Shipping.OriginPostalCode
	}
	return vals
}

// OutboundClient builds the resilient HTTP client for one upstream target.
func (d *Dependencies) OutboundClient(target string) resilience.HTTPClient {
	o := d.Config.Outbound
	client := resilience.NewHTTPClient(resilience.Options{
		Target:              target,
		Timeout:             o.Timeout,
		MaxAttempts:         o.RetryMaxAttempts,
		BaseBackoff:         o.RetryBase,
		CircuitMinRequests:  o.CircuitMinRequests,
		CircuitFailureRatio: o.CircuitFailureRatio,
		CircuitOpenFor:      o.CircuitOpenFor,
	})
	client.Breaker.WithLogger(d.Logger)
	return client
}

// Gateway returns the Mercado Pago client.
func (d *Dependencies) Gateway() *payment.MercadoPago {
	return payment.NewMercadoPago(d.Config.Payment.BaseURL, d.OutboundClient("mercadopago"))
}

// Reconciler wires the payment reconciliation pipeline: gateway lookups,
// terminal status cache, per-payment locking and asynq-backed re-checks.
func (d *Dependencies) Reconciler(gateway payment.Gateway) *payment.Reconciler {
	p := d.Config.Payment
	return payment.NewReconciler(payment.ReconcilerConfig{
		Gateway:  gateway,
		Ledger:   d.Ledger,
		Settings: d.Settings,
		Cache:    payment.NewStatusCache(d.Redis, p.StatusCacheTTL),
		Recheck:  payment.NewRecheckScheduler(d.TaskClient, p.RecheckDelay, p.RecheckMaxAttempts, d.Logger),
		Lock:     lock.Locker{Client: d.Redis, Prefix: "loja:lock:"},
		Policy:   p.UndecidedPolicy,
		Logger:   d.Logger,
		Meter:    d.Meter,
	})
}

// Close releases every client. It is safe to call once.
func (d *Dependencies) Close() error {
	var errs []error
	if d.TaskClient != nil {
		errs = append(errs, d.TaskClient.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	if d.DB != nil {
		d.DB.Close()
	}
	return errors.Join(errs...)
}
