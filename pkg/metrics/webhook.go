package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics counts gateway webhook deliveries by outcome.
type WebhookMetrics struct {
	processed  *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	failures   *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook counters on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_processed",
		Help: "Webhook events processed successfully.",
	}, []string{"type"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_duplicate",
		Help: "Webhook events skipped as duplicates.",
	}, []string{"type"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed",
		Help: "Webhook events that failed processing.",
	}, []string{"type"})
	reg.MustRegister(processed, duplicates, failures)
	return &WebhookMetrics{
		processed:  processed,
		duplicates: duplicates,
		failures:   failures,
	}
}

// IncProcessed increments the processed counter for the event type.
func (w *WebhookMetrics) IncProcessed(eventType string) {
	if w == nil || w.processed == nil {
		return
	}
	w.processed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDuplicate increments the duplicate counter for the event type.
func (w *WebhookMetrics) IncDuplicate(eventType string) {
	if w == nil || w.duplicates == nil {
		return
	}
	w.duplicates.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailure increments the failure counter for the event type.
func (w *WebhookMetrics) IncFailure(eventType string) {
	if w == nil || w.failures == nil {
		return
	}
	w.failures.WithLabelValues(normalizeLabel(eventType)).Inc()
}
