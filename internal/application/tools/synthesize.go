package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aescanero/agor/internal/domain"
	"github.com/aescanero/agor/internal/ports"
)

// SynthesizeRunner consolidates all prior artifacts into the candidate
// answer through the model service. It backs the mandatory terminal step
// of every plan.
type SynthesizeRunner struct {
	Model ports.ModelService
}

func (r *SynthesizeRunner) Action() domain.ActionType { return domain.ActionSynthesize }

func (r *SynthesizeRunner) Run(ctx context.Context, step domain.PlanStep, ec *domain.Context) (*Output, error) {
	prompt := r.buildPrompt(step, ec)

	text, err := r.Model.Complete(ctx, prompt, ports.SchemaText)
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("synthesis produced empty output")
	}

	return &Output{
		Payload: text,
		Log:     fmt.Sprintf("synthesized %d chars from %d artifacts", len(text), len(ec.Artifacts)),
	}, nil
}

func (r *SynthesizeRunner) buildPrompt(step domain.PlanStep, ec *domain.Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are the synthesis component of a financial analysis agent.
Consolidate the collected results into a clear answer to the task.
Cite concrete numbers from the data. Never give investment advice or
buy/sell recommendations.

Task: %s
Step goal: %s

Collected results:
`, ec.Task, step.Description)

	keys := make([]string, 0, len(ec.Artifacts))
	for key := range ec.Artifacts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := ec.Artifacts[key]
		switch v := value.(type) {
		case string:
			fmt.Fprintf(&b, "## %s\n%s\n", key, truncateText(v, 2000))
		default:
			if body, err := json.Marshal(v); err == nil {
				fmt.Fprintf(&b, "## %s\n%s\n", key, truncateText(string(body), 2000))
			}
		}
	}

	return b.String()
}
