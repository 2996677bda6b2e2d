package resilience

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsSubsystem = "outbound"

// Collectors for outbound calls, labelled by target ("mercadopago", "melhorenvio").
// They are usable before registration so tests can read them directly.
var (
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: metricsSubsystem,
		Name:      "breaker_state",
		Help:      "Breaker position per target: 0 closed, 1 open, 2 half open.",
	}, []string{"target"})

	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: metricsSubsystem,
		Name:      "breaker_transitions_total",
		Help:      "Breaker state changes per target.",
	}, []string{"target", "from", "to"})

	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: metricsSubsystem,
		Name:      "breaker_opened_total",
		Help:      "Times a target's breaker opened.",
	}, []string{"target"})

	OutboundAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: metricsSubsystem,
		Name:      "attempts_total",
		Help:      "Outbound HTTP attempts per target by result (ok, error, rejected).",
	}, []string{"target", "result"})

	registerOnce sync.Once
)

// MustRegisterMetrics registers the outbound collectors on reg, or on the
// default registerer when reg is nil. Later calls are no-ops.
func MustRegisterMetrics(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal, OutboundAttempts)
	})
}
