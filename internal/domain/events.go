package domain

import "time"

// Phase tags the progress events emitted by the orchestrator.
type Phase string

const (
	PhasePlanning     Phase = "planning"
	PhaseExecuting    Phase = "executing"
	PhaseStepComplete Phase = "step_complete"
	PhaseVerifying    Phase = "verifying"
	PhaseImproving    Phase = "improving"
	PhaseReplanning   Phase = "replanning"
	PhaseComplete     Phase = "complete"
	PhaseFailed       Phase = "failed"
)

// ProgressEvent is an advisory notification of loop progress. Events are
// fire-and-forget: sinks must never block the core loop and may drop
// under pressure.
type ProgressEvent struct {
	RunID     string         `json:"run_id"`
	Phase     Phase          `json:"phase"`
	Iteration int            `json:"iteration"`
	StepID    string         `json:"step_id,omitempty"`
	Score     float64        `json:"score,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}
