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

// Verifier scores accumulated execution results against the original
// task by delegating judgment to the model service. A malformed model
// response fails closed: NEEDS_IMPROVEMENT with aggregate 0.0.
type Verifier struct {
	model  ports.ModelService
	logger *zap.Logger
}

// NewVerifier creates a verifier adapter.
func NewVerifier(model ports.ModelService, logger *zap.Logger) *Verifier {
	return &Verifier{model: model, logger: logger}
}

type verdictWire struct {
	Scores      map[string]float64 `json:"scores"`
	Issues      []string           `json:"issues"`
	Suggestions []string           `json:"suggestions"`
}

// Verify scores the executions over the fixed dimension set and maps
// the arithmetic mean onto a verdict.
func (v *Verifier) Verify(ctx context.Context, task string, plan *domain.Plan, executions []domain.ExecutionResult) *domain.VerificationResult {
	prompt := v.buildPrompt(task, plan, executions)

	raw, err := v.model.Complete(ctx, prompt, ports.SchemaVerdict)
	if err != nil {
		v.logger.Warn("verifier model call failed, failing closed", zap.Error(err))
		return domain.FailClosed(fmt.Sprintf("verification unavailable: %v", err))
	}

	var wire verdictWire
	if err := json.Unmarshal([]byte(stripFences(raw)), &wire); err != nil {
		v.logger.Warn("verifier response unparsable, failing closed", zap.Error(err))
		return domain.FailClosed("verifier response unparsable")
	}

	result, err := domain.NewVerificationResult(wire.Scores, wire.Issues, wire.Suggestions)
	if err != nil {
		v.logger.Warn("verifier scores malformed, failing closed", zap.Error(err))
		return domain.FailClosed(fmt.Sprintf("verifier scores malformed: %v", err))
	}

	v.logger.Info("verification complete",
		zap.Float64("aggregate", result.Aggregate),
		zap.String("verdict", string(result.Verdict)))

	return result
}

func (v *Verifier) buildPrompt(task string, plan *domain.Plan, executions []domain.ExecutionResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a strict quality verifier for a financial analysis agent.
Score the execution results against the task on each dimension, 0.0 to 1.0.
Output ONLY JSON: {"scores": {"correctness": x, "completeness": x, "clarity": x,
"compliance": x, "usefulness": x}, "issues": ["..."], "suggestions": ["..."]}.
Compliance means no investment advice or buy/sell recommendations.

Task: %s
Plan understanding: %s
`, task, plan.TaskUnderstanding)

	b.WriteString("\nExecution results:\n")
	for _, r := range executions {
		fmt.Fprintf(&b, "- step %s [%s] status=%s", r.StepID, r.Action, r.Status)
		if r.Error != "" {
			fmt.Fprintf(&b, " error=%s", truncate(r.Error, 200))
		}
		if r.Output != "" {
			fmt.Fprintf(&b, " output=%s", truncate(r.Output, 400))
		}
		if r.Payload != nil {
			if body, err := json.Marshal(r.Payload); err == nil {
				fmt.Fprintf(&b, " payload=%s", truncate(string(body), 400))
			}
		}
		b.WriteByte('\n')
	}

	return b.String()
}
