package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		checkoutsTotal,
		resolutionsTotal,
		revenueTotal,
	)
}

var (
	checkoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_created_total",
			Help: "Checkout sessions created at the provider, by provider name.",
		},
		[]string{"provider"},
	)

	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_resolutions_total",
			Help: "Payment resolutions by outcome (committed/rejected/unknown_ref/unverified).",
		},
		[]string{"outcome"},
	)

	revenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of successful payments, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncCheckout(provider string) {
	checkoutsTotal.WithLabelValues(norm(provider)).Inc()
}

func IncResolution(outcome string) {
	resolutionsTotal.WithLabelValues(norm(outcome)).Inc()
}

func AddRevenue(currency string, amount int64) {
	revenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}
