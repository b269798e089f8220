package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aescanero/agor/internal/domain"
	"github.com/aescanero/agor/internal/ports"
)

// ComputeRunner executes analysis code in the sandboxed execution
// service. When the planner did not inline code in the step params, the
// model service writes it from the step description first.
type ComputeRunner struct {
	Exec    ports.ExecutionService
	Model   ports.ModelService
	Timeout time.Duration
}

func (r *ComputeRunner) Action() domain.ActionType { return domain.ActionCompute }

func (r *ComputeRunner) Run(ctx context.Context, step domain.PlanStep, ec *domain.Context) (*Output, error) {
	code, _ := step.Params["code"].(string)
	if code == "" {
		generated, err := r.generateCode(ctx, step, ec)
		if err != nil {
			return nil, fmt.Errorf("generate analysis code: %w", err)
		}
		code = generated
	}

	out, err := r.Exec.Run(ctx, code, ec.Artifacts, r.Timeout)
	if err != nil {
		return nil, err
	}
	if out.ExitCode != 0 {
		return nil, fmt.Errorf("analysis code exited %d: %s", out.ExitCode, truncateText(out.Stderr, 300))
	}

	return &Output{
		Payload:   out.Stdout,
		Log:       out.Stdout,
		Artifacts: out.Artifacts,
	}, nil
}

func (r *ComputeRunner) generateCode(ctx context.Context, step domain.PlanStep, ec *domain.Context) (string, error) {
	var keys []string
	for key := range ec.Artifacts {
		keys = append(keys, key)
	}
	prompt := fmt.Sprintf(`Write Python analysis code for this step. Output ONLY code, no prose, no fences.
Allowed imports: pandas, numpy, json, math, statistics. Print the final result as JSON.
Variables already available in the namespace: %s

Step: %s
Expected output: %s`, strings.Join(keys, ", "), step.Description, step.ExpectedOutput)

	raw, err := r.Model.Complete(ctx, prompt, ports.SchemaText)
	if err != nil {
		return "", err
	}
	return stripCodeFence(raw), nil
}

func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if idx := strings.IndexByte(t, '\n'); idx != -1 {
		t = t[idx+1:]
	}
	if j := strings.LastIndex(t, "```"); j != -1 {
		t = t[:j]
	}
	return strings.TrimSpace(t)
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
