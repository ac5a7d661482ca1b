package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the daemon's Prometheus metrics.
type Metrics struct {
	trackers           prometheus.Gauge
	setOps             *prometheus.CounterVec
	notifications      prometheus.Counter
	wsSessions         prometheus.Gauge
	subscriptionsTotal *prometheus.CounterVec
}

// NewMetrics registers the daemon metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		trackers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "trackd",
			Name:      "trackers",
			Help:      "Number of named trackers in the registry",
		}),

		setOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trackd",
			Name:      "set_operations_total",
			Help:      "Total value assignments by kind (notify or silent)",
		}, []string{"kind"}),

		notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trackd",
			Name:      "notifications_delivered_total",
			Help:      "Total update frames delivered to websocket subscribers",
		}),

		wsSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "trackd",
			Name:      "websocket_sessions",
			Help:      "Number of active websocket sessions",
		}),

		subscriptionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trackd",
			Name:      "subscriptions_total",
			Help:      "Total subscriptions by listener mode",
		}, []string{"mode"}),
	}
}

func (m *Metrics) recordTrackerCreated() {
	if m != nil {
		m.trackers.Inc()
	}
}

func (m *Metrics) recordSet(silent bool) {
	if m == nil {
		return
	}
	kind := "notify"
	if silent {
		kind = "silent"
	}
	m.setOps.WithLabelValues(kind).Inc()
}

func (m *Metrics) recordNotification() {
	if m != nil {
		m.notifications.Inc()
	}
}

func (m *Metrics) recordSessionOpen() {
	if m != nil {
		m.wsSessions.Inc()
	}
}

func (m *Metrics) recordSessionClose() {
	if m != nil {
		m.wsSessions.Dec()
	}
}

func (m *Metrics) recordSubscription(mode string) {
	if m != nil {
		m.subscriptionsTotal.WithLabelValues(mode).Inc()
	}
}
