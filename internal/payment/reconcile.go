package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/noah-isme/loja-api/internal/config"
	"github.com/noah-isme/loja-api/internal/obs"
	"github.com/noah-isme/loja-api/internal/sale"
	"github.com/noah-isme/loja-api/internal/settings"
)

// Notification sources.
const (
	SourceWebhook = "webhook"
	SourceReturn  = "return"
	SourceRecheck = "recheck"
)

// Notification is an unverified hint that a payment changed. Only PaymentID
// and ExternalReference are used to look the payment up; StatusHint is never
// trusted.
type Notification struct {
	PaymentID         string
	Topic             string
	StatusHint        string
	ExternalReference string
	Source            string
	Attempt           int
}

func (n Notification) normalized() Notification {
	n.PaymentID = strings.TrimSpace(n.PaymentID)
	n.ExternalReference = strings.TrimSpace(n.ExternalReference)
	n.Topic = strings.ToLower(strings.TrimSpace(n.Topic))
	n.StatusHint = strings.ToLower(strings.TrimSpace(n.StatusHint))
	if n.Source == "" {
		n.Source = SourceWebhook
	}
	return n
}

// Result classifies how a notification was handled.
type Result string

const (
	// ResultIgnored means there was nothing to verify.
	ResultIgnored Result = "ignored"
	// ResultNotFound means the gateway has no such payment.
	ResultNotFound Result = "not_found"
	// ResultUnverified means the gateway could not be consulted.
	ResultUnverified Result = "unverified"
	// ResultUnknownSale means the verified reference matches no sale.
	ResultUnknownSale Result = "unknown_sale"
	// ResultUndecided means the payment has not settled yet.
	ResultUndecided Result = "undecided"
	// ResultKept means an adverse status left the sale pending by policy.
	ResultKept Result = "kept_pending"
	ResultApplied   Result = "applied"
	ResultUnchanged Result = "unchanged"
	ResultRejected  Result = "rejected"
	// ResultPaidAfterClose means the gateway approved a payment for a sale that
	// was already closed, so the customer was charged for a cancelled or failed order.
	ResultPaidAfterClose Result = "paid_after_close"
	// ResultStorageError means the ledger could not be written.
	ResultStorageError Result = "storage_error"
)

// Outcome reports what Reconcile did.
type Outcome struct {
	Result        Result
	SaleID        int64
	SaleStatus    sale.Status
	GatewayStatus string
	PaymentID     string
	Rescheduled   bool
}

// Ledger is the part of the order ledger the reconciler writes to.
type Ledger interface {
	Get(ctx context.Context, id int64) (sale.Sale, error)
	UpdateStatus(ctx context.Context, id int64, status sale.Status, paymentID string) (sale.Update, error)
}

// SettingsSource yields a fresh configuration snapshot.
type SettingsSource interface {
	Snapshot(ctx context.Context) (settings.Values, error)
}

// Rechecker schedules a later verification attempt.
type Rechecker interface {
	Schedule(ctx context.Context, n Notification) error
}

// Serializer runs fn while no other process reconciles the same key.
type Serializer interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

const (
	lockWait = 3 * time.Second
	lockTTL  = 30 * time.Second
)

// Reconciler verifies payment notifications against the gateway and applies
// the verified outcome to the ledger.
type Reconciler struct {
	gateway  Gateway
	ledger   Ledger
	settings SettingsSource
	cache    *StatusCache
	recheck  Rechecker
	lock     Serializer
	policy   string
	logger   zerolog.Logger
	latency  metric.Float64Histogram
}

// ReconcilerConfig configures NewReconciler.
type ReconcilerConfig struct {
	Gateway  Gateway
	Ledger   Ledger
	Settings SettingsSource
	Cache    *StatusCache
	Recheck  Rechecker
	// Lock is optional; the ledger's conditional update stays the source of truth.
	Lock Serializer
	// Policy is config.PolicyKeepPending or config.PolicyFail.
	Policy string
	Logger zerolog.Logger
	Meter  metric.Meter
}

// NewReconciler constructs a Reconciler.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	policy := cfg.Policy
	if policy != config.PolicyFail {
		policy = config.PolicyKeepPending
	}
	meter := cfg.Meter
	if meter == nil {
		meter = otel.Meter("github.com/noah-isme/loja-api/internal/payment")
	}
	latency, err := meter.Float64Histogram("payment.reconcile.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Time spent verifying and applying a payment notification."),
	)
	if err != nil {
		cfg.Logger.Warn().Err(err).Msg("reconcile_histogram_unavailable")
	}
	return &Reconciler{
		gateway:  cfg.Gateway,
		ledger:   cfg.Ledger,
		settings: cfg.Settings,
		cache:    cfg.Cache,
		recheck:  cfg.Recheck,
		lock:     cfg.Lock,
		policy:   policy,
		logger:   cfg.Logger.With().Str("component", "reconciler").Logger(),
		latency:  latency,
	}
}

// Reconcile verifies n and applies the result. It never returns an error:
// every failure is folded into the Outcome and, when worth retrying, a
// re-check is scheduled.
func (r *Reconciler) Reconcile(ctx context.Context, n Notification) Outcome {
	ctx, span := otel.Tracer("payment.Reconciler").Start(ctx, "Reconciler.Reconcile")
	defer span.End()
	start := time.Now()
	n = n.normalized()

	out := r.serialized(ctx, n)
	if retryable(out.Result) {
		if err := r.scheduleRecheck(ctx, n); err == nil {
			out.Rescheduled = true
		}
	}

	span.SetAttributes(
		attribute.String("payment.source", n.Source),
		attribute.String("payment.reconcile.result", string(out.Result)),
		attribute.String("payment.gateway_status", out.GatewayStatus),
		attribute.Int64("sale.id", out.SaleID),
	)
	if r.latency != nil {
		r.latency.Record(ctx, obs.DurationMillis(time.Since(start)), metric.WithAttributes(
			attribute.String("source", n.Source),
			attribute.String("result", string(out.Result)),
		))
	}
	obs.IncCounter(obs.PaymentNotificationTotal, n.Source, string(out.Result))
	obs.IncCounter(obs.ReconcileTotal, string(out.Result))

	r.logger.Info().
		Str("source", n.Source).
		Str("payment_id", out.PaymentID).
		Int64("sale_id", out.SaleID).
		Str("gateway_status", out.GatewayStatus).
		Str("status_hint", n.StatusHint).
		Str("result", string(out.Result)).
		Bool("rescheduled", out.Rescheduled).
		Msg("payment_reconciled")
	return out
}

// serialized collapses concurrent webhook, return and re-check deliveries for
// the same payment into one gateway round trip at a time. A lock that cannot
// be taken in time does not block reconciliation.
func (r *Reconciler) serialized(ctx context.Context, n Notification) Outcome {
	if r.lock == nil {
		return r.reconcile(ctx, n)
	}
	key := "payment:reconcile:" + n.PaymentID
	if n.PaymentID == "" {
		key = "payment:reconcile:ref-" + n.ExternalReference
	}
	lockCtx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()

	var (
		out Outcome
		ran bool
	)
	err := r.lock.WithLock(lockCtx, key, lockTTL, func(context.Context) error {
		ran = true
		out = r.reconcile(ctx, n)
		return nil
	})
	if !ran {
		r.logger.Warn().Err(err).Str("key", key).Msg("reconcile_lock_unavailable")
		return r.reconcile(ctx, n)
	}
	return out
}

func (r *Reconciler) reconcile(ctx context.Context, n Notification) Outcome {
	if n.Topic == "merchant_order" || (n.PaymentID == "" && n.ExternalReference == "") {
		return Outcome{Result: ResultIgnored}
	}
	vals, err := r.snapshot(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("settings_snapshot_failed")
	}
	info, err := r.lookup(ctx, vals, n)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return Outcome{Result: ResultNotFound, PaymentID: n.PaymentID}
		}
		r.logger.Warn().Err(err).Str("payment_id", n.PaymentID).Str("external_reference", n.ExternalReference).Msg("payment_lookup_failed")
		return Outcome{Result: ResultUnverified, PaymentID: n.PaymentID}
	}

	out := Outcome{PaymentID: info.ID, GatewayStatus: info.Status}
	// the sale is identified by the gateway's record, never by the notification
	saleID, ok := sale.ParseReference(info.ExternalReference)
	if !ok {
		out.Result = ResultUnknownSale
		return out
	}
	out.SaleID = saleID

	decision := Decide(info.Status, r.policy)
	switch {
	case decision.Undecided:
		out.Result = ResultUndecided
		out.SaleStatus = r.currentStatus(ctx, saleID)
		return out
	case decision.Target == "":
		out.Result = ResultKept
		out.SaleStatus = r.currentStatus(ctx, saleID)
		return out
	}

	upd, err := r.ledger.UpdateStatus(ctx, saleID, decision.Target, info.ID)
	if err != nil {
		r.logger.Error().Err(err).Int64("sale_id", saleID).Msg("sale_status_update_failed")
		out.Result = ResultStorageError
		return out
	}
	switch upd.Result {
	case sale.UpdateApplied:
		out.Result = ResultApplied
	case sale.UpdateUnchanged:
		out.Result = ResultUnchanged
	case sale.UpdateRejected:
		out.Result = ResultRejected
		if decision.Target == sale.StatusPaid {
			out.Result = ResultPaidAfterClose
			r.logger.Error().
				Int64("sale_id", saleID).
				Str("payment_id", info.ID).
				Str("sale_status", string(upd.Sale.Status)).
				Msg("payment_approved_for_closed_sale")
		}
	default:
		out.Result = ResultUnknownSale
		return out
	}
	out.SaleStatus = upd.Sale.Status
	return out
}

func (r *Reconciler) lookup(ctx context.Context, vals settings.Values, n Notification) (PaymentInfo, error) {
	if r.gateway == nil {
		return PaymentInfo{}, ErrGatewayUnavailable
	}
	if n.PaymentID != "" {
		if info, ok, err := r.cache.Get(ctx, n.PaymentID); err != nil {
			r.logger.Debug().Err(err).Msg("payment_status_cache_get_failed")
		} else if ok {
			return info, nil
		}
	}
	token := vals.PaymentAccessToken()
	if token == "" {
		return PaymentInfo{}, ErrMissingCredential
	}
	var (
		info PaymentInfo
		err  error
	)
	if n.PaymentID != "" {
		info, err = r.gateway.GetPayment(ctx, token, n.PaymentID)
	} else {
		info, err = r.gateway.SearchByExternalReference(ctx, token, n.ExternalReference)
	}
	if err != nil {
		return PaymentInfo{}, err
	}
	if err := r.cache.Put(ctx, info); err != nil {
		r.logger.Debug().Err(err).Msg("payment_status_cache_put_failed")
	}
	return info, nil
}

func (r *Reconciler) snapshot(ctx context.Context) (settings.Values, error) {
	if r.settings == nil {
		return settings.Values{}, nil
	}
	return r.settings.Snapshot(ctx)
}

func (r *Reconciler) currentStatus(ctx context.Context, id int64) sale.Status {
	s, err := r.ledger.Get(ctx, id)
	if err != nil {
		return ""
	}
	return s.Status
}

func (r *Reconciler) scheduleRecheck(ctx context.Context, n Notification) error {
	if r.recheck == nil {
		return errors.New("recheck not configured")
	}
	// a request context may already be winding down once the response is written
	ctx = context.WithoutCancel(ctx)
	if err := r.recheck.Schedule(ctx, n); err != nil {
		if !errors.Is(err, ErrRecheckExhausted) {
			r.logger.Error().Err(err).Str("payment_id", n.PaymentID).Msg("payment_recheck_schedule_failed")
		}
		return err
	}
	return nil
}

func retryable(res Result) bool {
	switch res {
	case ResultNotFound, ResultUnverified, ResultUndecided, ResultStorageError:
		return true
	}
	return false
}
