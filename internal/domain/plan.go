package domain

import "fmt"

// ActionType identifies the tool adapter a plan step is dispatched through.
type ActionType string

const (
	ActionCompute          ActionType = "compute"
	ActionRetrieve         ActionType = "retrieve"
	ActionFetchData        ActionType = "fetch-data"
	ActionDeriveIndicators ActionType = "derive-indicators"
	ActionSynthesize       ActionType = "synthesize"
)

// ParseActionType validates a raw action tag against the closed set.
func ParseActionType(s string) (ActionType, error) {
	switch ActionType(s) {
	case ActionCompute, ActionRetrieve, ActionFetchData, ActionDeriveIndicators, ActionSynthesize:
		return ActionType(s), nil
	}
	return "", fmt.Errorf("unknown action type: %q", s)
}

// ComplexityTier classifies how involved a plan is.
type ComplexityTier string

const (
	ComplexitySimple   ComplexityTier = "simple"
	ComplexityModerate ComplexityTier = "moderate"
	ComplexityComplex  ComplexityTier = "complex"
)

// ParseComplexityTier validates a raw complexity tag against the closed set.
func ParseComplexityTier(s string) (ComplexityTier, error) {
	switch ComplexityTier(s) {
	case ComplexitySimple, ComplexityModerate, ComplexityComplex:
		return ComplexityTier(s), nil
	}
	return "", fmt.Errorf("unknown complexity tier: %q", s)
}

// PlanStep is one unit of planned work. Immutable once the plan is accepted.
type PlanStep struct {
	ID             string         `json:"id"`
	Action         ActionType     `json:"action"`
	Description    string         `json:"description"`
	DependsOn      []string       `json:"depends_on,omitempty"`
	Params         map[string]any `json:"params,omitempty"`
	ExpectedOutput string         `json:"expected_output,omitempty"`
	// OutputKey names the artifact this step writes into the shared
	// context. Defaults to the step ID.
	OutputKey string `json:"output_key,omitempty"`
}

// Artifact returns the context key this step's payload is stored under.
func (s PlanStep) Artifact() string {
	if s.OutputKey != "" {
		return s.OutputKey
	}
	return s.ID
}

// Plan is the ordered DAG of steps produced for one iteration. It is
// replaced wholesale each time the orchestrator re-enters planning.
type Plan struct {
	TaskUnderstanding string         `json:"task_understanding"`
	Complexity        ComplexityTier `json:"complexity"`
	Steps             []PlanStep     `json:"steps"`
}

// SynthesisStep returns the plan's terminal synthesis step, or nil when
// the plan is malformed and has none.
func (p *Plan) SynthesisStep() *PlanStep {
	for i := range p.Steps {
		if p.Steps[i].Action == ActionSynthesize {
			return &p.Steps[i]
		}
	}
	return nil
}

// Step looks up a step by ID.
func (p *Plan) Step(id string) (PlanStep, bool) {
	for _, s := range p.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return PlanStep{}, false
}
