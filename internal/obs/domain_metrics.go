package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PaymentLinkTotal counts payment preference requests by result.
	PaymentLinkTotal *prometheus.CounterVec
	// PaymentNotificationTotal counts inbound payment notifications by source and result.
	PaymentNotificationTotal *prometheus.CounterVec
	// ReconcileTotal counts reconciliation outcomes.
	ReconcileTotal *prometheus.CounterVec
	ShippingQuoteTotal *prometheus.CounterVec
	SalesCreatedTotal  *prometheus.CounterVec
	// GatewayLatency records outbound gateway latency in milliseconds.
	GatewayLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics creates and registers the storefront collectors.
// Only the first call has any effect.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		counter := func(name, help string, labels ...string) *prometheus.CounterVec {
			return register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      name,
				Help:      help,
			}, labels))
		}
		PaymentLinkTotal = counter("payment_link_total", "Payment link issuance outcomes.", "result")
		PaymentNotificationTotal = counter("payment_notification_total", "Payment notifications by source and outcome.", "source", "result")
		ReconcileTotal = counter("payment_reconcile_total", "Reconciliation outcomes.", "outcome")
		ShippingQuoteTotal = counter("shipping_quote_total", "Shipping quote lookups by provider and outcome.", "provider", "result")
		SalesCreatedTotal = counter("sales_created_total", "Sales recorded by payment method.", "method")
		GatewayLatency = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_ms",
			Help:      "Latency of outbound gateway calls in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"operation", "result"}))
	})
}

// IncCounter increments vec when it has been registered. Packages call it
// unconditionally so metrics stay optional in tests.
func IncCounter(vec *prometheus.CounterVec, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Inc()
}
