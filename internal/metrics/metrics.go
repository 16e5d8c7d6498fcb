package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bayfront",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bayfront",
			Name:      "booking_submitted_total",
			Help:      "Count of booking submissions by outcome.",
		},
		[]string{"outcome"},
	)

	bookingDecision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bayfront",
			Name:      "booking_decision_total",
			Help:      "Count of admin decisions over booking requests.",
		},
		[]string{"decision"},
	)

	syncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bayfront",
			Name:      "sync_runs_total",
			Help:      "Count of reconciliation and change-detection runs by status.",
		},
		[]string{"type", "status"},
	)

	scrapeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bayfront",
			Name:      "scrape_failures_total",
			Help:      "Count of failed rental-site scrape attempts.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingSubmitted, bookingDecision, syncRuns, scrapeFailures)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingSubmitted(outcome string) {
	bookingSubmitted.WithLabelValues(outcome).Inc()
}

func IncBookingDecision(decision string) {
	bookingDecision.WithLabelValues(decision).Inc()
}

func IncSyncRun(syncType, status string) {
	syncRuns.WithLabelValues(syncType, status).Inc()
}

func IncScrapeFailure() {
	scrapeFailures.Inc()
}
