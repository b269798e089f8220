package orchestrator

import "errors"

// Plan graph validation failures. All of them are treated as planning
// errors by the agent: the plan is rejected before any side effect.
var (
	ErrDuplicateID       = errors.New("duplicate step id")
	ErrUnknownDependency = errors.New("unknown dependency")
	ErrDependencyCycle   = errors.New("dependency cycle")
	ErrOutputOverlap     = errors.New("overlapping output keys")
)

// ErrPlanning is the planner adapter failure: the model output did not
// conform to the plan structure. Retried once with a correction
// instruction; a second failure is fatal for the run.
var ErrPlanning = errors.New("planning failed")
