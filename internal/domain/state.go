package domain

import "time"

// RunStatus is the lifecycle state of a whole run.
type RunStatus string

const (
	RunPlanning  RunStatus = "planning"
	RunExecuting RunStatus = "executing"
	RunVerifying RunStatus = "verifying"
	RunComplete  RunStatus = "complete"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether the status ends the run.
func (s RunStatus) Terminal() bool {
	return s == RunComplete || s == RunFailed
}

// AgentState is the whole-run state, owned exclusively by the
// orchestrator and never shared.
type AgentState struct {
	Task          string
	Plan          *Plan
	Context       *Context
	History       []ExecutionResult
	Verifications []VerificationResult
	Iteration     int
	Status        RunStatus
	Final         *FinalOutput
}

// NewAgentState initializes run state for a task.
func NewAgentState(task string) *AgentState {
	return &AgentState{
		Task:    task,
		Context: NewContext(task),
		Status:  RunPlanning,
	}
}

// ClearHistory wipes execution history and context. Restart path after
// a rejected verdict.
func (s *AgentState) ClearHistory() {
	s.History = nil
	s.Context.Reset()
}

// LastVerification returns the most recent verdict, or nil.
func (s *AgentState) LastVerification() *VerificationResult {
	if len(s.Verifications) == 0 {
		return nil
	}
	return &s.Verifications[len(s.Verifications)-1]
}

// FinalOutput is what the caller always receives: the synthesized text,
// a completeness flag, and the final aggregate score.
type FinalOutput struct {
	Text       string   `json:"text"`
	Partial    bool     `json:"partial"`
	Score      float64  `json:"score"`
	Iterations int      `json:"iterations"`
	Issues     []string `json:"issues,omitempty"`
}

// RunRecord is the stored view of a run exposed over the API.
type RunRecord struct {
	ID          string       `json:"id"`
	Task        string       `json:"task"`
	Status      RunStatus    `json:"status"`
	Output      *FinalOutput `json:"output,omitempty"`
	SubmittedAt time.Time    `json:"submitted_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
