package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// MaxOutboundTimeout caps every call made to the payment gateway or the shipping quote service.
const MaxOutboundTimeout = 10 * time.Second

// Undecided payment policies.
const (
	PolicyKeepPending = "keep_pending"
	PolicyFail        = "fail"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string
	AutoMigrate        bool
	AccessTokenTTL     time.Duration

	Payment  PaymentConfig
	Shipping ShippingConfig
	Outbound OutboundConfig
	Obs      ObsConfig

	CatalogCacheTTL    time.Duration
	CheckoutFailureURL string
	RateLimitWindow    time.Duration
	RateLimitMax       int
	WorkerConcurrency  int
}

// PaymentConfig configures the Mercado Pago integration.
type PaymentConfig struct {
	BaseURL     string
	AccessToken string
	// CallbackBaseURL overrides the request-derived base for notification and return URLs.
	CallbackBaseURL    string
	Currency           string
	UndecidedPolicy    string
	StatusCacheTTL     time.Duration
	RecheckDelay       time.Duration
	RecheckMaxAttempts int
}

// ShippingConfig configures the Melhor Envio quote integration.
type ShippingConfig struct {
	Provider         string
	BaseURL          string
	Token            string
	OriginPostalCode string
}

// OutboundConfig tunes the resilient HTTP client shared by gateway clients.
type OutboundConfig struct {
	Timeout             time.Duration
	CircuitMinRequests  int
	CircuitFailureRatio float64
	CircuitOpenFor      time.Duration
	RetryMaxAttempts    int
	RetryBase           time.Duration
}

// ObsConfig controls logging, metrics and tracing.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	Prometheus       bool
	MetricsNamespace string
	MetricsBuckets   string
	Tracing          bool
	TracingExporter  string
	OTLPEndpoint     string
	SamplingRatio    float64
}

// defaults apply whenever a variable is unset or blank.
var defaults = map[string]any{
	"APP_ENV":                      "development",
	"PORT":                         "8080",
	"DB_AUTO_MIGRATE":              true,
	"ACCESS_TOKEN_TTL":             "12h",
	"MP_BASE_URL":                  "https://api.mercadopago.com",
	"CURRENCY_CODE":                "BRL",
	"PAYMENT_UNDECIDED_POLICY":     PolicyKeepPending,
	"PAYMENT_STATUS_CACHE_TTL":     "10m",
	"PAYMENT_RECHECK_DELAY":        "2m",
	"PAYMENT_RECHECK_MAX_ATTEMPTS": 6,
	"SHIPPING_PROVIDER":            "melhorenvio",
	"MELHOR_ENVIO_BASE_URL":        "https://www.melhorenvio.com.br",
	"SHIPPING_ORIGIN_POSTAL_CODE":  "04866220",
	"OUTBOUND_TIMEOUT":             "8s",
	"CIRCUIT_MIN_REQUESTS":         10,
	"CIRCUIT_FAILURE_RATIO":        0.5,
	"CIRCUIT_OPEN_FOR":             "30s",
	"RETRY_MAX_ATTEMPTS":           3,
	"RETRY_BASE":                   "200ms",
	"CATALOG_CACHE_TTL":            "5m",
	"CHECKOUT_FAILURE_URL":         "/api/v1/payments/return/failure",
	"RATE_LIMIT_WINDOW":            "1m",
	"RATE_LIMIT_MAX":               30,
	"WORKER_CONCURRENCY":           5,
	"OBS_LOG_FORMAT":               "json",
	"OBS_LOG_LEVEL":                "info",
	"OBS_ENABLE_PROMETHEUS":        true,
	"OBS_METRICS_NAMESPACE":        "loja",
	"OBS_ENABLE_TRACING":           true,
	"OBS_TRACING_EXPORTER":         "otlp",
	"OBS_TRACING_SAMPLING_RATIO":   1.0,
}

// Load reads configuration from the environment, after merging an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("default %s: %w", key, err)
		}
	}
	// blank variables keep the default
	provider := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		value = strings.TrimSpace(value)
		if value == "" {
			return "", nil
		}
		return key, value
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             k.String("APP_ENV"),
		Port:               k.String("PORT"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitList(k.String("CORS_ALLOWED_ORIGINS")),
		AutoMigrate:        k.Bool("DB_AUTO_MIGRATE"),
		AccessTokenTTL:     duration(k, "ACCESS_TOKEN_TTL"),
		Payment: PaymentConfig{
			BaseURL:            strings.TrimRight(k.String("MP_BASE_URL"), "/"),
			AccessToken:        k.String("MP_ACCESS_TOKEN"),
			CallbackBaseURL:    strings.TrimRight(k.String("PAYMENT_CALLBACK_BASE_URL"), "/"),
			Currency:           strings.ToUpper(k.String("CURRENCY_CODE")),
			UndecidedPolicy:    policy(k.String("PAYMENT_UNDECIDED_POLICY")),
			StatusCacheTTL:     duration(k, "PAYMENT_STATUS_CACHE_TTL"),
			RecheckDelay:       duration(k, "PAYMENT_RECHECK_DELAY"),
			RecheckMaxAttempts: positiveInt(k, "PAYMENT_RECHECK_MAX_ATTEMPTS"),
		},
		Shipping: ShippingConfig{
			Provider:         strings.ToLower(k.String("SHIPPING_PROVIDER")),
			BaseURL:          strings.TrimRight(k.String("MELHOR_ENVIO_BASE_URL"), "/"),
			Token:            k.String("MELHOR_ENVIO_TOKEN"),
			OriginPostalCode: k.String("SHIPPING_ORIGIN_POSTAL_CODE"),
		},
		Outbound: OutboundConfig{
			Timeout:             min(duration(k, "OUTBOUND_TIMEOUT"), MaxOutboundTimeout),
			CircuitMinRequests:  positiveInt(k, "CIRCUIT_MIN_REQUESTS"),
			CircuitFailureRatio: ratio(k, "CIRCUIT_FAILURE_RATIO"),
			CircuitOpenFor:      duration(k, "CIRCUIT_OPEN_FOR"),
			RetryMaxAttempts:    positiveInt(k, "RETRY_MAX_ATTEMPTS"),
			RetryBase:           duration(k, "RETRY_BASE"),
		},
		Obs: ObsConfig{
			LogFormat:        k.String("OBS_LOG_FORMAT"),
			LogLevel:         k.String("OBS_LOG_LEVEL"),
			Prometheus:       k.Bool("OBS_ENABLE_PROMETHEUS"),
			MetricsNamespace: k.String("OBS_METRICS_NAMESPACE"),
			MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
			Tracing:          k.Bool("OBS_ENABLE_TRACING"),
			TracingExporter:  k.String("OBS_TRACING_EXPORTER"),
			OTLPEndpoint:     k.String("OBS_OTLP_ENDPOINT"),
			SamplingRatio:    ratio(k, "OBS_TRACING_SAMPLING_RATIO"),
		},
		CatalogCacheTTL:    duration(k, "CATALOG_CACHE_TTL"),
		CheckoutFailureURL: k.String("CHECKOUT_FAILURE_URL"),
		RateLimitWindow:    duration(k, "RATE_LIMIT_WINDOW"),
		RateLimitMax:       positiveInt(k, "RATE_LIMIT_MAX"),
		WorkerConcurrency:  positiveInt(k, "WORKER_CONCURRENCY"),
	}

	var missing []error
	for _, req := range []struct{ key, value string }{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"REDIS_URL", cfg.RedisURL},
		{"JWT_SECRET", cfg.JWTSecret},
	} {
		if req.value == "" {
			missing = append(missing, fmt.Errorf("%s is required", req.key))
		}
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

// duration falls back to the default when the variable does not parse.
func duration(k *koanf.Koanf, key string) time.Duration {
	if d := k.Duration(key); d > 0 {
		return d
	}
	d, _ := time.ParseDuration(fmt.Sprint(defaults[key]))
	return d
}

func positiveInt(k *koanf.Koanf, key string) int {
	if v := k.Int(key); v > 0 {
		return v
	}
	v, _ := defaults[key].(int)
	return v
}

func ratio(k *koanf.Koanf, key string) float64 {
	if v := k.Float64(key); v > 0 && v <= 1 {
		return v
	}
	v, _ := defaults[key].(float64)
	return v
}

func policy(value string) string {
	switch strings.ToLower(value) {
	case PolicyFail, "failed":
		return PolicyFail
	default:
		return PolicyKeepPending
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadForTests runs Load with env applied on top of the process environment,
// restoring the previous values afterwards. An empty value unsets the variable.
func LoadForTests(env map[string]string) (*Config, error) {
	previous := make(map[string]*string, len(env))
	for key, value := range env {
		if old, ok := os.LookupEnv(key); ok {
			previous[key] = &old
		} else {
			previous[key] = nil
		}
		if err := setenv(key, &value); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	for key, old := range previous {
		_ = setenv(key, old)
	}
	return cfg, err
}

func setenv(key string, value *string) error {
	if value == nil || *value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, *value)
}
