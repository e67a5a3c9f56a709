// Package metrics holds the Prometheus collectors of the trading pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Registry holds all Prometheus metrics for sigtrader. A nil *Registry records nothing.
type Registry struct {
	registry *prometheus.Registry

	Executions          *prometheus.CounterVec
	ExecutionDuration   *prometheus.HistogramVec
	Decisions           *prometheus.CounterVec
	NotificationsFailed prometheus.Counter
	Exposure            prometheus.Gauge
}

// NewRegistry creates and registers the collectors on a dedicated registry.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		Executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigtrader_executions_total",
				Help: "Total number of execution attempts by side and result",
			},
			[]string{"side", "result"},
		),

		ExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sigtrader_execution_duration_seconds",
				Help:    "Duration of execution attempts in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"side"},
		),

		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigtrader_decisions_total",
				Help: "Total number of signal decisions by action",
			},
			[]string{"action"},
		),

		NotificationsFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sigtrader_notifications_failed_total",
				Help: "Total number of notifications that could not be delivered",
			},
		),

		Exposure: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sigtrader_exposure_value",
				Help: "Cumulative buy notional counted against the exposure ceiling",
			},
		),
	}

	r.registry.MustRegister(
		r.Executions,
		r.ExecutionDuration,
		r.Decisions,
		r.NotificationsFailed,
		r.Exposure,
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Registry) ObserveExecution(side, result string, took time.Duration) {
	if r == nil {
		return
	}
	r.Executions.WithLabelValues(side, result).Inc()
	r.ExecutionDuration.WithLabelValues(side).Observe(took.Seconds())
}

func (r *Registry) ObserveDecision(action string) {
	if r == nil {
		return
	}
	r.Decisions.WithLabelValues(action).Inc()
}

func (r *Registry) NotificationFailed() {
	if r == nil {
		return
	}
	r.NotificationsFailed.Inc()
}

func (r *Registry) SetExposure(v float64) {
	if r == nil {
		return
	}
	r.Exposure.Set(v)
}
