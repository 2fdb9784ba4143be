package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bookingdesk"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	fetches = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "availability_fetch_seconds",
			Help:      "Availability fetch latency by outcome (ok, error, stale).",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	submissions = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "booking_submit_seconds",
			Help:      "Booking submission latency by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	modalsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "modals_open",
			Help:      "Booking modals currently open (page scroll suspended).",
		},
	)

	modalsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modal_closed_total",
			Help:      "Count of closed booking modals by reason.",
		},
		[]string{"reason"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Count of booking notifications by channel and status.",
		},
		[]string{"channel", "status"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, fetches, submissions, modalsOpen, modalsClosed, notifications)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncNotification(channel, status string) {
	notifications.WithLabelValues(channel, status).Inc()
}

// Booking records controller and modal activity.
type Booking struct{}

func (Booking) FetchObserved(outcome string, d time.Duration) {
	fetches.WithLabelValues(outcome).Observe(d.Seconds())
}

func (Booking) SubmitObserved(outcome string, d time.Duration) {
	submissions.WithLabelValues(outcome).Observe(d.Seconds())
}

func (Booking) ModalOpened() {
	modalsOpen.Inc()
}

func (Booking) ModalClosed(reason string) {
	modalsOpen.Dec()
	modalsClosed.WithLabelValues(reason).Inc()
}
