// Package prometheus implements the metrics collector with Prometheus
// counters, histograms and gauges.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements ports.MetricsCollector using Prometheus.
type Collector struct {
	runsSubmitted *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	iterations    *prometheus.CounterVec
	stepsExecuted *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	modelCalls    *prometheus.CounterVec
	modelLatency  *prometheus.HistogramVec
	activeRuns    prometheus.Gauge
}

// NewCollector registers and returns the collector.
func NewCollector() *Collector {
	return &Collector{
		runsSubmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agor_runs_submitted_total",
				Help: "Total number of runs submitted",
			},
			[]string{"status"},
		),
		runsCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agor_runs_completed_total",
				Help: "Total number of runs completed",
			},
			[]string{"status"},
		),
		runDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agor_run_duration_seconds",
				Help:    "End-to-end run duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		iterations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agor_iterations_total",
				Help: "Total number of plan-execute-verify iterations by verdict",
			},
			[]string{"verdict"},
		),
		stepsExecuted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agor_steps_executed_total",
				Help: "Total number of plan steps executed",
			},
			[]string{"action", "status"},
		),
		stepDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agor_step_duration_seconds",
				Help:    "Step execution duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"action"},
		),
		modelCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agor_model_calls_total",
				Help: "Total number of model backend calls",
			},
			[]string{"provider", "status"},
		),
		modelLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agor_model_call_duration_seconds",
				Help:    "Model backend call duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		),
		activeRuns: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "agor_active_runs",
				Help: "Number of runs currently in flight",
			},
		),
	}
}

func (c *Collector) RecordRunSubmitted(status string) {
	c.runsSubmitted.WithLabelValues(status).Inc()
}

func (c *Collector) RecordRunCompleted(status string, duration time.Duration) {
	c.runsCompleted.WithLabelValues(status).Inc()
	c.runDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (c *Collector) RecordIteration(verdict string) {
	c.iterations.WithLabelValues(verdict).Inc()
}

func (c *Collector) RecordStepExecuted(action, status string, duration time.Duration) {
	c.stepsExecuted.WithLabelValues(action, status).Inc()
	c.stepDuration.WithLabelValues(action).Observe(duration.Seconds())
}

func (c *Collector) RecordModelCall(provider, status string, duration time.Duration) {
	c.modelCalls.WithLabelValues(provider, status).Inc()
	c.modelLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

func (c *Collector) SetActiveRuns(n int) {
	c.activeRuns.Set(float64(n))
}
