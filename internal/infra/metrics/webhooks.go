package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookDeliveriesTotal,
		webhookRejectedTotal,
	)
}

var (
	webhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Webhook deliveries by provider and outcome (processed/duplicate/error).",
		},
		[]string{"provider", "outcome"},
	)

	webhookRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_rejected_total",
			Help: "Deliveries rejected before processing (bad signature, bad payload).",
		},
		[]string{"provider", "reason"},
	)
)

func IncWebhookDelivery(provider, outcome string) {
	webhookDeliveriesTotal.WithLabelValues(norm(provider), norm(outcome)).Inc()
}

func IncWebhookRejected(provider, reason string) {
	webhookRejectedTotal.WithLabelValues(norm(provider), norm(reason)).Inc()
}
