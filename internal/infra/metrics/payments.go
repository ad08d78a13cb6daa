package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		enrollmentsTotal,
		enrollmentRevenueTotal,
		subscriptionEventsTotal,
	)
}

var (
	enrollmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollments_total",
			Help: "Enrollment orders by terminal status (pending/completed/failed/cancelled).",
		},
		[]string{"status", "provider"},
	)

	enrollmentRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_revenue_inr_total",
			Help: "Settled enrollment revenue in INR, labeled by service.",
		},
		[]string{"service"},
	)

	subscriptionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_events_total",
			Help: "Subscription lifecycle transitions (activated/renewed/past_due/cancelled).",
		},
		[]string{"event"},
	)
)

func IncEnrollment(status, provider string) {
	enrollmentsTotal.WithLabelValues(norm(status), norm(provider)).Inc()
}

func AddEnrollmentRevenue(service string, amountINR int64) {
	enrollmentRevenueTotal.WithLabelValues(norm(service)).Add(float64(amountINR))
}

func IncSubscriptionEvent(event string) {
	subscriptionEventsTotal.WithLabelValues(norm(event)).Inc()
}
