package Metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	ReportsSubmitted   prometheus.Counter
	PaymentTransitions *prometheus.CounterVec
	BookingsCreated    prometheus.Counter

	InsightFetches       *prometheus.CounterVec
	InsightFetchDuration prometheus.Histogram
	AssistantRequests    *prometheus.CounterVec

	Subscribers       prometheus.Gauge
	SnapshotsSent     prometheus.Counter
	NotificationsSent *prometheus.CounterVec
	RemindersSent     *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewCollector registers every metric on a fresh registry so that tests can
// build as many collectors as they need.
func NewCollector(serviceName string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		ReportsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "outbreaks",
			Name:      "reports_submitted_total",
			Help:      "Total outbreak reports submitted by patients.",
		}),

		PaymentTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "prescriptions",
			Name:      "payment_transitions_total",
			Help:      "Payment gate actions by action and result.",
		}, []string{"action", "result"}),

		BookingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "bookings",
			Name:      "created_total",
			Help:      "Total consultations booked.",
		}),

		InsightFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "outbreaks",
			Name:      "insight_fetches_total",
			Help:      "Outbreak insight fetch attempts by result (success, retry, failed, unconfigured).",
		}, []string{"result"}),

		InsightFetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "outbreaks",
			Name:      "insight_fetch_duration_seconds",
			Help:      "Duration of a whole insight fetch including retries.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		AssistantRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "assistant",
			Name:      "requests_total",
			Help:      "Assistant requests by result.",
		}, []string{"result"}),

		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "subscriptions",
			Name:      "active",
			Help:      "Current number of open snapshot streams.",
		}),

		SnapshotsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "subscriptions",
			Name:      "snapshots_sent_total",
			Help:      "Total snapshots delivered to subscribers.",
		}),

		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Push and WhatsApp notifications by channel and result.",
		}, []string{"channel", "result"}),

		RemindersSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "bookings",
			Name:      "reminders_total",
			Help:      "Booking reminders by result.",
		}, []string{"result"}),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
