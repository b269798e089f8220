package orchestrator

import (
	"errors"
	"testing"

	"github.com/aescanero/agor/internal/domain"
)

func step(id string, action domain.ActionType, deps ...string) domain.PlanStep {
	return domain.PlanStep{ID: id, Action: action, DependsOn: deps}
}

func TestValidateAcceptsDiamond(t *testing.T) {
	v := NewValidator()

	plan := &domain.Plan{Steps: []domain.PlanStep{
		step("fetch", domain.ActionFetchData),
		step("indicators", domain.ActionDeriveIndicators, "fetch"),
		step("docs", domain.ActionRetrieve),
		step("answer", domain.ActionSynthesize, "indicators", "docs"),
	}}
	if err := v.Validate(plan); err != nil {
		t.Fatalf("expected valid plan, got: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	v := NewValidator()

	cases := []struct {
		name string
		plan *domain.Plan
		want error
	}{
		{
			name: "nil plan",
			plan: nil,
			want: ErrPlanning,
		},
		{
			name: "empty plan",
			plan: &domain.Plan{},
			want: ErrPlanning,
		},
		{
			name: "duplicate id",
			plan: &domain.Plan{Steps: []domain.PlanStep{
				step("a", domain.ActionCompute),
				step("a", domain.ActionCompute),
			}},
			want: ErrDuplicateID,
		},
		{
			name: "unknown dependency",
			plan: &domain.Plan{Steps: []domain.PlanStep{
				step("a", domain.ActionCompute, "ghost"),
			}},
			want: ErrUnknownDependency,
		},
		{
			name: "self dependency",
			plan: &domain.Plan{Steps: []domain.PlanStep{
				step("a", domain.ActionCompute, "a"),
			}},
			want: ErrDependencyCycle,
		},
		{
			name: "forward reference",
			plan: &domain.Plan{Steps: []domain.PlanStep{
				step("a", domain.ActionCompute, "b"),
				step("b", domain.ActionCompute),
			}},
			want: ErrUnknownDependency,
		},
		{
			name: "output key overlap",
			plan: &domain.Plan{Steps: []domain.PlanStep{
				{ID: "a", Action: domain.ActionCompute, OutputKey: "shared"},
				{ID: "b", Action: domain.ActionCompute, OutputKey: "shared"},
			}},
			want: ErrOutputOverlap,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.plan)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateOutputKeyDefaultsToStepID(t *testing.T) {
	v := NewValidator()

	// An explicit key colliding with another step's implicit key (its ID)
	// is still an overlap.
	plan := &domain.Plan{Steps: []domain.PlanStep{
		step("metrics", domain.ActionCompute),
		{ID: "other", Action: domain.ActionCompute, OutputKey: "metrics"},
	}}
	if err := v.Validate(plan); !errors.Is(err, ErrOutputOverlap) {
		t.Errorf("expected ErrOutputOverlap, got %v", err)
	}
}
