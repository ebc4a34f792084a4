package metrics

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

	AppointmentsTotal *prometheus.CounterVec

	NotificationsEnqueued  *prometheus.CounterVec
	NotificationsDelivered *prometheus.CounterVec
	NotificationRetries    prometheus.Counter
	NotificationsDropped   prometheus.Counter

	DBConnections prometheus.Gauge
}

// NewCollector registers all metrics on reg. Pass prometheus.DefaultRegisterer
// in main; tests use a private registry.
func NewCollector(serviceName string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
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

		AppointmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "appointments_total",
			Help:      "Lifecycle operations by resulting status.",
		}, []string{"status"}),

		NotificationsEnqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "notifier",
			Name:      "enqueued_total",
			Help:      "Notification events pushed onto the queue, by kind.",
		}, []string{"kind"}),

		NotificationsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "notifier",
			Name:      "delivered_total",
			Help:      "Notification events delivered, by kind.",
		}, []string{"kind"}),

		NotificationRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "notifier",
			Name:      "retries_total",
			Help:      "Delivery attempts that failed and were requeued.",
		}),

		NotificationsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "notifier",
			Name:      "dropped_total",
			Help:      "Notification events dropped after exhausting retries. Alert if non-zero.",
		}),

		DBConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "db",
			Name:      "open_connections",
			Help:      "Current number of open database connections.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
