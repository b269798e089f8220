package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aescanero/agor/internal/domain"
	"github.com/aescanero/agor/internal/ports"
	"go.uber.org/zap"
)

// Planner turns (task, prior executions, feedback) into a validated plan
// by delegating plan generation to the model service.
type Planner struct {
	model    ports.ModelService
	maxSteps int
	logger   *zap.Logger
}

// NewPlanner creates a planner adapter. maxSteps caps the number of
// steps a plan may carry.
func NewPlanner(model ports.ModelService, maxSteps int, logger *zap.Logger) *Planner {
	return &Planner{
		model:    model,
		maxSteps: maxSteps,
		logger:   logger,
	}
}

// PlanRequest carries the planning input for one attempt.
type PlanRequest struct {
	Task            string
	PriorExecutions []domain.ExecutionResult
	Feedback        *domain.VerificationResult
	// Correction is set on the retry attempt, describing what was wrong
	// with the previous model output.
	Correction string
}

// wire types for decoding the model's plan response
type planWire struct {
	TaskUnderstanding string         `json:"task_understanding"`
	Complexity        string         `json:"complexity"`
	Steps             []planStepWire `json:"steps"`
}

type planStepWire struct {
	ID             string         `json:"id"`
	Action         string         `json:"action"`
	Description    string         `json:"description"`
	DependsOn      []string       `json:"depends_on"`
	Params         map[string]any `json:"params"`
	ExpectedOutput string         `json:"expected_output"`
	OutputKey      string         `json:"output_key"`
}

// CreatePlan asks the model service for a plan and validates its
// structure. A nonconforming response yields ErrPlanning; the agent
// retries once with a correction instruction before giving up.
func (p *Planner) CreatePlan(ctx context.Context, req PlanRequest) (*domain.Plan, error) {
	prompt := p.buildPrompt(req)

	raw, err := p.model.Complete(ctx, prompt, ports.SchemaPlan)
	if err != nil {
		return nil, fmt.Errorf("%w: model call: %w", ErrPlanning, err)
	}

	var wire planWire
	text := stripFences(raw)
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrPlanning, err)
	}

	plan, err := p.construct(wire)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("plan created",
		zap.Int("steps", len(plan.Steps)),
		zap.String("complexity", string(plan.Complexity)))

	return plan, nil
}

// construct validates the wire plan and builds the domain plan.
// Validate-then-construct: nothing outside the known tag sets passes.
func (p *Planner) construct(wire planWire) (*domain.Plan, error) {
	if len(wire.Steps) == 0 {
		return nil, fmt.Errorf("%w: plan has no steps", ErrPlanning)
	}
	if len(wire.Steps) > p.maxSteps {
		return nil, fmt.Errorf("%w: %d steps exceeds cap of %d", ErrPlanning, len(wire.Steps), p.maxSteps)
	}

	complexity := wire.Complexity
	if complexity == "" {
		complexity = string(domain.ComplexityModerate)
	}
	tier, err := domain.ParseComplexityTier(complexity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlanning, err)
	}

	steps := make([]domain.PlanStep, 0, len(wire.Steps))
	for i, sw := range wire.Steps {
		if sw.ID == "" {
			return nil, fmt.Errorf("%w: step %d has no id", ErrPlanning, i)
		}
		action, err := domain.ParseActionType(sw.Action)
		if err != nil {
			return nil, fmt.Errorf("%w: step %s: %w", ErrPlanning, sw.ID, err)
		}
		steps = append(steps, domain.PlanStep{
			ID:             sw.ID,
			Action:         action,
			Description:    sw.Description,
			DependsOn:      sw.DependsOn,
			Params:         sw.Params,
			ExpectedOutput: sw.ExpectedOutput,
			OutputKey:      sw.OutputKey,
		})
	}

	// The synthesis step must come last and depend on every other step,
	// guaranteeing a single consolidation point.
	last := steps[len(steps)-1]
	if last.Action != domain.ActionSynthesize {
		return nil, fmt.Errorf("%w: last step %s is %s, want synthesize", ErrPlanning, last.ID, last.Action)
	}
	for _, step := range steps[:len(steps)-1] {
		if step.Action == domain.ActionSynthesize {
			return nil, fmt.Errorf("%w: synthesis step %s is not last", ErrPlanning, step.ID)
		}
		if !contains(last.DependsOn, step.ID) {
			return nil, fmt.Errorf("%w: synthesis step %s does not depend on %s", ErrPlanning, last.ID, step.ID)
		}
	}

	return &domain.Plan{
		TaskUnderstanding: wire.TaskUnderstanding,
		Complexity:        tier,
		Steps:             steps,
	}, nil
}

func (p *Planner) buildPrompt(req PlanRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are the planning component of a financial analysis agent.
Output ONLY a JSON object, no prose, no code fences, matching:
{"task_understanding": "...", "complexity": "simple"|"moderate"|"complex", "steps": [...]}

Each step: {"id": "stepN", "action": "compute"|"retrieve"|"fetch-data"|"derive-indicators"|"synthesize",
"description": "...", "depends_on": ["stepK"], "params": {...}, "expected_output": "..."}

Rules:
- At most %d steps.
- The last step MUST have action "synthesize" and depend on every other step.
- "fetch-data" params: {"symbol": "...", "period": "..."}.
- "derive-indicators" must depend on a fetch-data step.
- "retrieve" params: {"query": "..."}.
- "compute" params: {"code": "..."} with analysis code only.
- Dependencies may only reference earlier steps.

Task: %s
`, p.maxSteps, req.Task)

	if len(req.PriorExecutions) > 0 {
		b.WriteString("\nResults already available (do not plan steps that redo successful work):\n")
		for _, r := range req.PriorExecutions {
			fmt.Fprintf(&b, "- %s (%s): %s\n", r.StepID, r.Status, truncate(r.Output, 200))
		}
	}

	if req.Feedback != nil {
		fmt.Fprintf(&b, "\nPrevious attempt scored %.2f (%s).\n", req.Feedback.Aggregate, req.Feedback.Verdict)
		if len(req.Feedback.Issues) > 0 {
			b.WriteString("Issues to address:\n")
			for _, issue := range req.Feedback.Issues {
				fmt.Fprintf(&b, "- %s\n", issue)
			}
		}
		if len(req.Feedback.Suggestions) > 0 {
			b.WriteString("Suggestions:\n")
			for _, s := range req.Feedback.Suggestions {
				fmt.Fprintf(&b, "- %s\n", s)
			}
		}
	}

	if req.Correction != "" {
		fmt.Fprintf(&b, "\nYour previous response was invalid: %s\nReturn a corrected JSON plan.\n", req.Correction)
	}

	return b.String()
}

// stripFences removes markdown code fences the model sometimes wraps
// JSON in, and falls back to the first top-level JSON object.
func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```")
		if idx := strings.IndexByte(t, '\n'); idx != -1 {
			t = t[idx+1:]
		}
		if j := strings.LastIndex(t, "```"); j != -1 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}
	if !strings.HasPrefix(t, "{") {
		if obj := extractJSONObject(t); obj != "" {
			return obj
		}
	}
	return t
}

func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
