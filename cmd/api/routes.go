package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/loja-api/internal/app"
	"github.com/noah-isme/loja-api/internal/auth"
	"github.com/noah-isme/loja-api/internal/catalog"
	"github.com/noah-isme/loja-api/internal/checkout"
	"github.com/noah-isme/loja-api/internal/common"
	"github.com/noah-isme/loja-api/internal/customer"
	"github.com/noah-isme/loja-api/internal/health"
	"github.com/noah-isme/loja-api/internal/obs"
	"github.com/noah-isme/loja-api/internal/payment"
	"github.com/noah-isme/loja-api/internal/ratelimit"
	"github.com/noah-isme/loja-api/internal/sale"
	"github.com/noah-isme/loja-api/internal/security"
	"github.com/noah-isme/loja-api/internal/settings"
	"github.com/noah-isme/loja-api/internal/shipping"
)

type routerOptions struct {
	Metrics bool
	Tracing bool
}

func newRouter(deps *app.Dependencies, opts routerOptions) (http.Handler, error) {
	cfg := deps.Config
	logger := deps.Logger

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Queries: deps.Queries,
		Cache:   catalog.NewCache(deps.Redis, cfg.CatalogCacheTTL),
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: catalogSvc})
	settingsHandler := &settings.Handler{Store: deps.Settings, Logger: logger}

	var quotes shipping.Client = shipping.MockClient{}
	if cfg.Shipping.Provider == "melhorenvio" {
		quotes = shipping.NewMelhorEnvio(shipping.MelhorEnvioConfig{
			BaseURL: cfg.Shipping.BaseURL,
			Token:   cfg.Shipping.Token,
			Origin:  cfg.Shipping.OriginPostalCode,
			HTTP:    deps.OutboundClient("melhorenvio"),
			Logger:  logger,
		})
	}
	shippingHandler := &shipping.Handler{Client: quotes, Products: catalogSvc, Settings: deps.Settings, Logger: logger}

	gateway := deps.Gateway()
	issuer := payment.NewIssuer(payment.IssuerConfig{
		Gateway:      gateway,
		Currency:     cfg.Payment.Currency,
		CallbackBase: cfg.Payment.CallbackBaseURL,
		Logger:       logger,
	})
	checkoutHandler := &checkout.Handler{
		Svc: checkout.NewService(checkout.ServiceConfig{
			Products:   catalogSvc,
			Settings:   deps.Settings,
			Shipping:   quotes,
			Ledger:     deps.Ledger,
			Issuer:     issuer,
			FailureURL: cfg.CheckoutFailureURL,
			Logger:     logger,
		}),
		Logger: logger,
	}

	reconciler := deps.Reconciler(gateway)
	webhook := &payment.Webhook{Reconciler: reconciler, Logger: logger}
	returns := &payment.ReturnHandler{Reconciler: reconciler, Ledger: deps.Ledger, Logger: logger}

	customerHandler := &customer.Handler{Service: customer.NewService(deps.Queries), Logger: logger}
	salesHandler := &sale.AdminHandler{Ledger: deps.Ledger, Logger: logger}

	authSvc, err := auth.NewService(auth.Config{
		Queries:        deps.Queries,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		return nil, err
	}
	authHandler := &auth.Handler{Service: authSvc, Logger: logger}
	adminOnly := auth.Middleware{Service: authSvc}.RequireAdmin

	limiter, err := ratelimit.NewLimiter(deps.Redis, "loja:ratelimit", cfg.RateLimitWindow, cfg.RateLimitMax)
	if err != nil {
		return nil, err
	}
	throttle := func(scope string) func(http.Handler) http.Handler {
		return ratelimit.Handler{
			Limiter: limiter,
			Key:     ratelimit.ByClientIP(scope),
			OnError: func(err error) { logger.Warn().Err(err).Str("scope", scope).Msg("ratelimit_store_failed") },
		}.Middleware
	}
	idem := common.Idem{R: deps.Redis, TTL: 24 * time.Hour}

	healthHandler := health.Handler{Probes: []health.Probe{
		{Name: "db", Check: func(ctx context.Context) error { return deps.DB.Ping(ctx) }},
		{Name: "redis", Timeout: 300 * time.Millisecond, Check: func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() }},
		{Name: "payment_credentials", Optional: true, Check: func(ctx context.Context) error {
			vals, err := deps.Settings.Snapshot(ctx)
			if err != nil {
				return err
			}
			if vals.PaymentAccessToken() == "" {
				return errors.New("not configured")
			}
			return nil
		}},
	}}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if opts.Tracing {
		r.Use(obs.Tracing)
	}
	if opts.Metrics {
		metrics := obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
		r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger, Quiet: []string{"/health/live", "/health/ready", "/metrics"}}.Middleware)
	r.Use(security.Headers{HSTS: cfg.IsProduction()}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"X-Total-Count", "X-RateLimit-Remaining"},
		MaxAge:         300,
	}))

	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/offers", catalogHandler.Offers)
		v.Get("/products/{id}", catalogHandler.ProductDetail)

		v.Get("/store/settings", settingsHandler.Public)
		v.Get("/store/pages/{key}", settingsHandler.Page)

		v.Post("/shipping/quote", shippingHandler.Quote)

		v.With(throttle("checkout"), idem.Middleware).Post("/checkout", checkoutHandler.Checkout)
		v.With(throttle("checkout")).Get("/checkout/{productId}", checkoutHandler.BuyNow)
		v.With(throttle("customers")).Post("/customers", customerHandler.Register)

		// Mercado Pago sends GET or POST depending on the notification kind.
		v.Get("/webhooks/payment", webhook.Handle)
		v.Post("/webhooks/payment", webhook.Handle)
		v.Get("/payments/return/{outcome}", returns.Handle)

		v.With(throttle("admin_login")).Post("/admin/login", authHandler.Login)
		v.Route("/admin", func(admin chi.Router) {
			admin.Use(adminOnly)
			admin.Put("/products", catalogHandler.Upsert)
			admin.Delete("/products/{id}", catalogHandler.Delete)

			admin.Get("/settings", settingsHandler.AdminGet)
			admin.Put("/settings", settingsHandler.AdminUpdate)

			admin.Get("/sales", salesHandler.List)
			admin.Get("/sales/{id}", salesHandler.Get)
			admin.Post("/sales/{id}/cancel", salesHandler.Cancel)

			admin.Get("/customers", customerHandler.List)
			admin.Get("/customers/{id}", customerHandler.Get)
			admin.Put("/customers/{id}", customerHandler.Update)
			admin.Delete("/customers/{id}", customerHandler.Delete)
		})
	})

	return r, nil
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
