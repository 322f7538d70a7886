package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records outbound delivery outcomes for the dispatcher.
type WebhookMetrics struct {
	deliveries *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   prometheus.Gauge
	disabled   prometheus.Counter
	dropped    prometheus.Counter
}

// NewWebhookMetrics registers the webhook delivery metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_deliveries_total",
		Help: "Webhook delivery attempts partitioned by outcome.",
	}, []string{"event_type", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_delivery_duration_seconds",
		Help:    "Duration of webhook HTTP delivery attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "webhook_deliveries_in_flight",
		Help: "Delivery tasks currently executing.",
	})
	disabled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_endpoints_auto_disabled_total",
		Help: "Endpoints disabled after crossing the failure threshold.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_dispatch_dropped_total",
		Help: "Delivery tasks dropped because the dispatch queue was full.",
	})
	reg.MustRegister(deliveries, duration, inFlight, disabled, dropped)
	return &WebhookMetrics{
		deliveries: deliveries,
		duration:   duration,
		inFlight:   inFlight,
		disabled:   disabled,
		dropped:    dropped,
	}
}

// ObserveDelivery records one attempt with its outcome and duration.
func (m *WebhookMetrics) ObserveDelivery(eventType string, success bool, duration time.Duration) {
	if m == nil || m.deliveries == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.deliveries.WithLabelValues(eventType, outcome).Inc()
	m.duration.WithLabelValues(eventType).Observe(duration.Seconds())
}

// IncInFlight marks a delivery task as started.
func (m *WebhookMetrics) IncInFlight() {
	if m == nil || m.inFlight == nil {
		return
	}
	m.inFlight.Inc()
}

// DecInFlight marks a delivery task as finished.
func (m *WebhookMetrics) DecInFlight() {
	if m == nil || m.inFlight == nil {
		return
	}
	m.inFlight.Dec()
}

// IncAutoDisabled counts an endpoint crossing the failure threshold.
func (m *WebhookMetrics) IncAutoDisabled() {
	if m == nil || m.disabled == nil {
		return
	}
	m.disabled.Inc()
}

// IncDropped counts a dispatch rejected by a saturated queue.
func (m *WebhookMetrics) IncDropped() {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.Inc()
}
