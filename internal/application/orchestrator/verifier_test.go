package orchestrator

import (
	"context"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/aescanero/agor/internal/domain"
)

func scoresJSON(correctness, completeness, clarity, compliance, usefulness float64) string {
	return `{"scores": {
		"correctness": ` + f(correctness) + `,
		"completeness": ` + f(completeness) + `,
		"clarity": ` + f(clarity) + `,
		"compliance": ` + f(compliance) + `,
		"usefulness": ` + f(usefulness) + `},
		"issues": [], "suggestions": []}`
}

func f(v float64) string {
	switch v {
	case 1:
		return "1.0"
	case 0:
		return "0.0"
	default:
		return "0.5"
	}
}

func TestVerifyMapsScoresToVerdicts(t *testing.T) {
	cases := []struct {
		name     string
		response string
		verdict  domain.Verdict
	}{
		{"all perfect", scoresJSON(1, 1, 1, 1, 1), domain.VerdictApproved},
		{"all middling", scoresJSON(0.5, 0.5, 0.5, 0.5, 0.5), domain.VerdictNeedsImprovement},
		{"all zero", scoresJSON(0, 0, 0, 0, 0), domain.VerdictRejected},
		// exactly at the approve boundary
		{"boundary approve", `{"scores": {"correctness": 0.8, "completeness": 0.8,
			"clarity": 0.8, "compliance": 0.8, "usefulness": 0.8}}`, domain.VerdictApproved},
		// exactly at the reject boundary stays improvable
		{"boundary improve", `{"scores": {"correctness": 0.5, "completeness": 0.5,
			"clarity": 0.5, "compliance": 0.5, "usefulness": 0.5}}`, domain.VerdictNeedsImprovement},
	}

	plan := &domain.Plan{TaskUnderstanding: "analyze"}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := &scriptedModel{responses: []string{tc.response}}
			v := NewVerifier(model, zap.NewNop())

			result := v.Verify(context.Background(), "analyze", plan, nil)
			if result.Verdict != tc.verdict {
				t.Errorf("expected %s, got %s (aggregate %.2f)", tc.verdict, result.Verdict, result.Aggregate)
			}
			if result.Deliverable != (tc.verdict == domain.VerdictApproved) {
				t.Errorf("deliverable flag mismatch for %s", tc.verdict)
			}
		})
	}
}

func TestVerifyAggregateIsMean(t *testing.T) {
	response := `{"scores": {"correctness": 1.0, "completeness": 0.9,
		"clarity": 0.8, "compliance": 1.0, "usefulness": 0.8}}`
	model := &scriptedModel{responses: []string{response}}
	v := NewVerifier(model, zap.NewNop())

	result := v.Verify(context.Background(), "analyze", &domain.Plan{}, nil)
	if math.Abs(result.Aggregate-0.9) > 1e-9 {
		t.Errorf("expected aggregate 0.9, got %f", result.Aggregate)
	}
	if result.Verdict != domain.VerdictApproved {
		t.Errorf("expected approval at 0.9, got %s", result.Verdict)
	}
}

func TestVerifyFailsClosed(t *testing.T) {
	cases := []struct {
		name     string
		response string
		err      error
	}{
		{"model error", "", context.DeadlineExceeded},
		{"prose response", "Looks good to me!", nil},
		{"missing dimension", `{"scores": {"correctness": 1.0}}`, nil},
		{"score out of range", `{"scores": {"correctness": 1.5, "completeness": 1.0,
			"clarity": 1.0, "compliance": 1.0, "usefulness": 1.0}}`, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := &scriptedModel{responses: []string{tc.response}, errs: []error{tc.err}}
			v := NewVerifier(model, zap.NewNop())

			result := v.Verify(context.Background(), "analyze", &domain.Plan{}, nil)
			if result.Verdict != domain.VerdictNeedsImprovement {
				t.Errorf("expected fail-closed NEEDS_IMPROVEMENT, got %s", result.Verdict)
			}
			if result.Aggregate != 0 {
				t.Errorf("expected aggregate 0.0, got %f", result.Aggregate)
			}
			if result.Deliverable {
				t.Error("fail-closed result must not be deliverable")
			}
			if len(result.Issues) == 0 {
				t.Error("fail-closed result must carry a reason")
			}
		})
	}
}
