package engine

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the engine's Prometheus instruments. Each engine carries
// its own registry so multiple instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal      prometheus.Counter
	CycleErrorsTotal prometheus.Counter
	TradesTotal      *prometheus.CounterVec
	OpenPositions    prometheus.Gauge
	DailyRealizedPnl prometheus.Gauge
	CycleDuration    prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "engine_cycles_total",
			Help: "Number of completed engine cycles.",
		}),
		CycleErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "engine_cycle_errors_total",
			Help: "Number of engine cycles that ended with an error.",
		}),
		TradesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_trades_total",
			Help: "Number of executed trades by action.",
		}, []string{"action"}),
		OpenPositions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "engine_open_positions",
			Help: "Currently open positions.",
		}),
		DailyRealizedPnl: factory.NewGauge(prometheus.GaugeOpts{
			Name: "engine_daily_realized_pnl",
			Help: "Realized profit and loss for the current market date.",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_cycle_duration_seconds",
			Help:    "Wall time of one engine cycle.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
