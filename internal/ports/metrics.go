package ports

import "time"

// MetricsCollector records orchestration metrics.
type MetricsCollector interface {
	RecordRunSubmitted(status string)
	RecordRunCompleted(status string, duration time.Duration)
	RecordIteration(verdict string)
	RecordStepExecuted(action, status string, duration time.Duration)
	RecordModelCall(provider, status string, duration time.Duration)
	SetActiveRuns(count int)
}

// NopMetrics discards all measurements. Used in tests and the one-shot CLI.
type NopMetrics struct{}

func (NopMetrics) RecordRunSubmitted(string)                        {}
func (NopMetrics) RecordRunCompleted(string, time.Duration)         {}
func (NopMetrics) RecordIteration(string)                           {}
func (NopMetrics) RecordStepExecuted(string, string, time.Duration) {}
func (NopMetrics) RecordModelCall(string, string, time.Duration)    {}
func (NopMetrics) SetActiveRuns(int)                                {}
