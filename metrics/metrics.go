// Package metrics exposes prometheus counters for gate decisions, sizing
// outcomes, and monitor adjustments.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgate_decisions_total",
			Help: "Gate decisions by pipeline stage and block reason",
		},
		[]string{"stage", "reason"},
	)

	sizingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgate_sizings_total",
			Help: "Position sizings by method",
		},
		[]string{"method"},
	)

	plannedRisk = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "riskgate_planned_risk",
			Help: "Planned account-currency risk of the latest sizing",
		},
		[]string{"symbol"},
	)

	adjustmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgate_adjustments_total",
			Help: "Monitor adjustments by type",
		},
		[]string{"type"},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgate_errors_total",
			Help: "Engine errors by type",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(decisionsTotal)
	prometheus.MustRegister(sizingsTotal)
	prometheus.MustRegister(plannedRisk)
	prometheus.MustRegister(adjustmentsTotal)
	prometheus.MustRegister(errorsTotal)
}

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDecision records one gate decision. Allowed decisions use the
// empty reason.
func RecordDecision(stage, reason string) {
	decisionsTotal.WithLabelValues(stage, reason).Inc()
}

// RecordSizing records a completed sizing and its planned risk.
func RecordSizing(symbol, method string, planned float64) {
	sizingsTotal.WithLabelValues(method).Inc()
	plannedRisk.WithLabelValues(symbol).Set(planned)
}

// RecordAdjustment records one monitor adjustment.
func RecordAdjustment(kind string) {
	adjustmentsTotal.WithLabelValues(kind).Inc()
}

// RecordError records an engine error by category.
func RecordError(kind string) {
	errorsTotal.WithLabelValues(kind).Inc()
}
