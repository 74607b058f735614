package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters/histograms for the lifecycle engine. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	transitions    *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	emailDispatch  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "State transitions applied, by machine and target status",
		}, []string{"machine", "from", "to"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "lifecycle",
			Name:      "rejected_total",
			Help:      "Operations rejected by a state machine, by reason",
		}, []string{"machine", "reason"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Notification rows written by the fan-out engine",
		}, []string{"type", "path"}),
		emailDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "email",
			Name:      "dispatch_total",
			Help:      "Outcome of best-effort email dispatch",
		}, []string{"status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions, m.rejected, m.notifications, m.emailDispatch, m.requestLatency)
	return m
}

func (m *Metrics) ObserveTransition(machine, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(machine, from, to).Inc()
}

func (m *Metrics) ObserveRejected(machine, reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(machine, reason).Inc()
}

func (m *Metrics) ObserveNotifications(notificationType, path string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.notifications.WithLabelValues(notificationType, path).Add(float64(n))
}

func (m *Metrics) ObserveEmail(status string) {
	if m == nil {
		return
	}
	m.emailDispatch.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.requestLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}
