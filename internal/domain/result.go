package domain

import "time"

// ExecStatus is the outcome classification of a single step execution.
type ExecStatus string

const (
	ExecSuccess ExecStatus = "success"
	ExecError   ExecStatus = "error"
	ExecPartial ExecStatus = "partial"
)

// ExecutionResult is the outcome of running one plan step. Tool failures
// are represented here as data, never as a fatal error of the run.
type ExecutionResult struct {
	StepID    string        `json:"step_id"`
	Action    ActionType    `json:"action"`
	Status    ExecStatus    `json:"status"`
	Payload   any           `json:"payload,omitempty"`
	Output    string        `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	Artifacts []string      `json:"artifacts,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// Context accumulates execution results and merged artifacts for a run.
// It is written only by the step dispatcher after a pass settles; the
// planner and verifier read it.
type Context struct {
	Task      string
	Results   map[string]*ExecutionResult
	Artifacts map[string]any
}

// NewContext creates an empty execution context for a task.
func NewContext(task string) *Context {
	return &Context{
		Task:      task,
		Results:   make(map[string]*ExecutionResult),
		Artifacts: make(map[string]any),
	}
}

// Succeeded reports whether the step already has a success result.
func (c *Context) Succeeded(stepID string) bool {
	r, ok := c.Results[stepID]
	return ok && r.Status == ExecSuccess
}

// Merge records a settled pass into the context. Only success results
// contribute artifacts; failed steps stay retryable.
func (c *Context) Merge(plan *Plan, results []ExecutionResult) {
	for i := range results {
		r := results[i]
		c.Results[r.StepID] = &r
		if r.Status != ExecSuccess {
			continue
		}
		if step, ok := plan.Step(r.StepID); ok {
			c.Artifacts[step.Artifact()] = r.Payload
		}
	}
}

// Reset discards all results and artifacts. Used on the restart path
// after a rejected verdict.
func (c *Context) Reset() {
	c.Results = make(map[string]*ExecutionResult)
	c.Artifacts = make(map[string]any)
}
