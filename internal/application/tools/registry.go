package tools

import (
	"context"

	"github.com/aescanero/agor/internal/domain"
)

// Output is what a runner produces for a successfully dispatched step.
type Output struct {
	// Payload is the structured result stored as the step's artifact.
	Payload any
	// Log is captured human-readable output (stdout, summaries).
	Log string
	// Artifacts lists references to files produced downstream.
	Artifacts []string
}

// Runner executes one step of its action kind against the accumulated
// context. Returned errors are converted into error results by the
// dispatcher, never propagated as run failures.
type Runner interface {
	Action() domain.ActionType
	Run(ctx context.Context, step domain.PlanStep, ec *domain.Context) (*Output, error)
}

// Registry resolves action kinds to runners.
type Registry struct {
	runners map[domain.ActionType]Runner
}

// NewRegistry creates an empty runner registry.
func NewRegistry() *Registry {
	return &Registry{runners: make(map[domain.ActionType]Runner)}
}

// Register adds a runner, replacing any previous one for the same kind.
func (r *Registry) Register(runner Runner) {
	r.runners[runner.Action()] = runner
}

// Get resolves a runner by action kind.
func (r *Registry) Get(action domain.ActionType) (Runner, bool) {
	runner, ok := r.runners[action]
	return runner, ok
}
