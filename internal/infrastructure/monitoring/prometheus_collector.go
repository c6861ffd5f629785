package monitoring

import (
	"pairlink/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements ports.BrokerMetrics over promauto-registered
// collectors on the default registry.
type PrometheusCollector struct {
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter

	pairsFormedTotal *prometheus.CounterVec

	directCallFailures *prometheus.CounterVec

	signalsRelayed *prometheus.CounterVec
	signalsDropped *prometheus.CounterVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		connectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pairlink_connections_active",
			Help: "Number of live WebSocket connections",
		}),

		connectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pairlink_connections_total",
			Help: "Total connections accepted since start",
		}),

		pairsFormedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pairlink_pairs_formed_total",
			Help: "Total call pairs formed, by origin",
		}, []string{"origin"}),

		directCallFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pairlink_direct_call_failures_total",
			Help: "Direct call invites rejected, by reason",
		}, []string{"reason"}),

		signalsRelayed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pairlink_signals_relayed_total",
			Help: "Signaling messages forwarded to partners, by kind",
		}, []string{"kind"}),

		signalsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pairlink_signals_dropped_total",
			Help: "Signaling messages dropped for failing the partner check, by kind",
		}, []string{"kind"}),
	}
}

func (p *PrometheusCollector) ConnectionOpened() {
	p.connectionsActive.Inc()
	p.connectionsTotal.Inc()
}

func (p *PrometheusCollector) ConnectionClosed() {
	p.connectionsActive.Dec()
}

func (p *PrometheusCollector) PairFormed(direct bool) {
	origin := "random"
	if direct {
		origin = "direct"
	}
	p.pairsFormedTotal.WithLabelValues(origin).Inc()
}

func (p *PrometheusCollector) DirectCallFailed(reason domain.FailReason) {
	p.directCallFailures.WithLabelValues(string(reason)).Inc()
}

func (p *PrometheusCollector) SignalRelayed(kind domain.SignalKind) {
	p.signalsRelayed.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusCollector) SignalDropped(kind domain.SignalKind) {
	p.signalsDropped.WithLabelValues(string(kind)).Inc()
}
