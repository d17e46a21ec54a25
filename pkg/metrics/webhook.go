package metrics

import "github.com/prometheus/client_golang/prometheus"

// Webhook outcomes.
const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "duplicate"
	WebhookInFlight  = "in_flight"
	WebhookRejected  = "rejected"
	WebhookFailed    = "failed"
)

// WebhookMetrics counts inbound provider events.
type WebhookMetrics struct {
	events    *prometheus.CounterVec
	synthetic *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook counters on reg.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhook",
		Name:      "events_total",
		Help:      "Inbound webhook events by provider and outcome.",
	}, []string{"provider", "outcome"})
	synthetic := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhook",
		Name:      "synthetic_ids_total",
		Help:      "Events that arrived without a provider event id.",
	}, []string{"provider"})
	reg.MustRegister(events, synthetic)
	return &WebhookMetrics{events: events, synthetic: synthetic}
}

// Observe counts one event outcome.
func (w *WebhookMetrics) Observe(provider, outcome string) {
	if w == nil || w.events == nil {
		return
	}
	w.events.WithLabelValues(normalizeLabel(provider), outcome).Inc()
}

// IncSynthetic counts an event keyed by a derived id.
func (w *WebhookMetrics) IncSynthetic(provider string) {
	if w == nil || w.synthetic == nil {
		return
	}
	w.synthetic.WithLabelValues(normalizeLabel(provider)).Inc()
}
