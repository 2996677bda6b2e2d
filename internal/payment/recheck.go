package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/loja-api/internal/resilience"
)

// TaskRecheck is the asynq task type for delayed payment verification.
const TaskRecheck = "payment:recheck"

// RecheckQueue is the asynq queue recheck tasks are enqueued on.
const RecheckQueue = "payments"

// ErrRecheckExhausted is returned once a notification used all its attempts.
var ErrRecheckExhausted = errors.New("payment: recheck attempts exhausted")

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RecheckPayload is the serialised task body.
type RecheckPayload struct {
	PaymentID         string `json:"payment_id,omitempty"`
	ExternalReference string `json:"external_reference,omitempty"`
	Topic             string `json:"topic,omitempty"`
	Attempt           int    `json:"attempt"`
}

// RecheckScheduler enqueues delayed verification tasks with exponential backoff.
type RecheckScheduler struct {
	enqueuer    Enqueuer
	base        time.Duration
	maxAttempts int
	logger      zerolog.Logger
}

// NewRecheckScheduler constructs a RecheckScheduler. base is the delay before the
// first re-check; later attempts double it.
func NewRecheckScheduler(enqueuer Enqueuer, base time.Duration, maxAttempts int, logger zerolog.Logger) *RecheckScheduler {
	if maxAttempts <= 0 {
		maxAttempts = 6
	}
	if base <= 0 {
		base = 2 * time.Minute
	}
	return &RecheckScheduler{
		enqueuer:    enqueuer,
		base:        base,
		maxAttempts: maxAttempts,
		logger:      logger.With().Str("component", "payment_recheck").Logger(),
	}
}

// Schedule enqueues the next verification attempt for n. Duplicate schedules
// for the same payment and attempt collapse into one task.
func (s *RecheckScheduler) Schedule(ctx context.Context, n Notification) error {
	if s == nil || s.enqueuer == nil {
		return nil
	}
	attempt := n.Attempt + 1
	if attempt > s.maxAttempts {
		s.logger.Warn().Str("payment_id", n.PaymentID).Str("external_reference", n.ExternalReference).Int("attempts", n.Attempt).Msg("payment_recheck_exhausted")
		return ErrRecheckExhausted
	}
	payload, err := json.Marshal(RecheckPayload{
		PaymentID:         n.PaymentID,
		ExternalReference: n.ExternalReference,
		Topic:             n.Topic,
		Attempt:           attempt,
	})
	if err != nil {
		return fmt.Errorf("encode recheck payload: %w", err)
	}
	delay := resilience.Backoff(s.base, attempt, 0.1)
	task := asynq.NewTask(TaskRecheck, payload)
	_, err = s.enqueuer.EnqueueContext(ctx, task,
		asynq.Queue(RecheckQueue),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(0),
		asynq.TaskID(recheckTaskID(n, attempt)),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue recheck: %w", err)
	}
	s.logger.Info().Str("payment_id", n.PaymentID).Str("external_reference", n.ExternalReference).Int("attempt", attempt).Dur("delay", delay).Msg("payment_recheck_scheduled")
	return nil
}

func recheckTaskID(n Notification, attempt int) string {
	key := n.PaymentID
	if key == "" {
		key = "ref-" + n.ExternalReference
	}
	return fmt.Sprintf("recheck:%s:%d", key, attempt)
}

// RecheckHandler runs recheck tasks in the worker.
type RecheckHandler struct {
	Reconciler *Reconciler
}

// ProcessTask implements asynq.Handler.
func (h *RecheckHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p RecheckPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode recheck payload: %v: %w", err, asynq.SkipRetry)
	}
	h.Reconciler.Reconcile(ctx, Notification{
		PaymentID:         p.PaymentID,
		ExternalReference: p.ExternalReference,
		Topic:             p.Topic,
		Source:            SourceRecheck,
		Attempt:           p.Attempt,
	})
	return nil
}
