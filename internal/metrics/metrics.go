// Package metrics exposes prometheus instrumentation for long-running
// optimizations, served by the monitor endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IterationsTotal counts completed optimization steps.
	IterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "romis_iterations_total",
		Help: "Number of completed optimization steps.",
	})

	// CalculatorDuration observes the wall time of evaluator calls, which
	// dominates the runtime of a DFT-backed optimization.
	CalculatorDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "romis_calculator_duration_seconds",
		Help:    "Wall time per force/energy evaluation.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 12),
	})

	// CalculatorFailures counts fatal evaluator failures.
	CalculatorFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "romis_calculator_failures_total",
		Help: "Number of fatal evaluator failures.",
	})

	// CurrentEnergy tracks the most recent total energy (eV).
	CurrentEnergy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "romis_current_energy_ev",
		Help: "Total energy of the most recent step.",
	})
)
