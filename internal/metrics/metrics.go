package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "filedrop"

var (
	registerOnce sync.Once

	sessionsOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "online",
			Help:      "Client identities currently registered.",
		},
	)
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "total",
			Help:      "Client sessions by result.",
		},
		[]string{"result"},
	)
	deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deliveries",
			Name:      "total",
			Help:      "Deliveries by outcome.",
		},
		[]string{"outcome"},
	)
	deliveredBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deliveries",
			Name:      "written_bytes_total",
			Help:      "Payload bytes written to client sockets.",
		},
	)
	protocolViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "violations_total",
			Help:      "Malformed or out-of-sequence frames.",
		},
		[]string{"side"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Session results.
const (
	SessionRegistered = "registered"
	SessionRejected   = "rejected"
	SessionClosed     = "closed"
)

// Violation sides.
const (
	SideHub      = "hub"
	SideReceiver = "receiver"
)

// Register registers all collectors with the default registry. Safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			sessionsOnline,
			sessionsTotal,
			deliveriesTotal,
			deliveredBytes,
			protocolViolations,
			httpRequests,
			httpDuration,
		)
	})
}

func SetSessionsOnline(n int) {
	Register()
	sessionsOnline.Set(float64(n))
}

func RecordSession(result string) {
	Register()
	sessionsTotal.WithLabelValues(result).Inc()
}

// RecordDelivery counts one delivery outcome; written deliveries also add their size.
func RecordDelivery(outcome string, size int) {
	Register()
	deliveriesTotal.WithLabelValues(outcome).Inc()
	if outcome == "written" && size > 0 {
		deliveredBytes.Add(float64(size))
	}
}

func RecordProtocolViolation(side string) {
	Register()
	protocolViolations.WithLabelValues(side).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	Register()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
