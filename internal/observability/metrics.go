package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "koala",
			Subsystem: "collector",
			Name:      "frames_received_total",
			Help:      "Frames received, by routing tag.",
		},
		[]string{"tag"},
	)
	dispatchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "koala",
			Subsystem: "collector",
			Name:      "dispatch_errors_total",
			Help:      "Frames dropped or failed downstream, by reason.",
		},
		[]string{"reason"},
	)
	filesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "koala",
			Subsystem: "collector",
			Name:      "files_received_total",
			Help:      "File-transfer frames handed to the file sink.",
		},
	)
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "koala",
			Subsystem: "collector",
			Name:      "connections_active",
			Help:      "Client connections currently being handled.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "koala",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "koala",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesReceived,
			dispatchErrors,
			filesReceived,
			activeConnections,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordFrame(tag string) {
	RegisterMetrics()
	framesReceived.WithLabelValues(tag).Inc()
}

func RecordDispatchError(reason string) {
	RegisterMetrics()
	dispatchErrors.WithLabelValues(reason).Inc()
}

func RecordFileReceived() {
	RegisterMetrics()
	filesReceived.Inc()
}

func ConnOpened() {
	RegisterMetrics()
	activeConnections.Inc()
}

func ConnClosed() {
	RegisterMetrics()
	activeConnections.Dec()
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
