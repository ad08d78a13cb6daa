package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		emailsDispatchedTotal,
		emailJobsDueGauge,
	)
}

var (
	emailsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_dispatched_total",
			Help: "Email dispatch attempts by template and outcome (sent/failed).",
		},
		[]string{"template", "outcome"},
	)

	emailJobsDueGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "email_jobs_due",
			Help: "Queued email jobs picked up on the last worker tick.",
		},
	)
)

func IncEmailDispatched(template, outcome string) {
	emailsDispatchedTotal.WithLabelValues(norm(template), norm(outcome)).Inc()
}

func SetEmailJobsDue(n int) {
	emailJobsDueGauge.Set(float64(n))
}
