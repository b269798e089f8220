package orchestrator

import (
	"fmt"

	"github.com/aescanero/agor/internal/domain"
)

// Validator checks that a proposed plan is a valid DAG. It is a pure
// function over the plan: no I/O, no side effects.
type Validator struct{}

// NewValidator creates a new plan graph validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate rejects plans with duplicate step ids, dependencies outside
// the plan or ahead of the referencing step, dependency cycles, or
// steps writing the same output key.
func (v *Validator) Validate(plan *domain.Plan) error {
	if plan == nil {
		return fmt.Errorf("%w: plan is nil", ErrPlanning)
	}
	if len(plan.Steps) == 0 {
		return fmt.Errorf("%w: plan has no steps", ErrPlanning)
	}

	index := make(map[string]int, len(plan.Steps))
	for i, step := range plan.Steps {
		if step.ID == "" {
			return fmt.Errorf("%w: step %d has empty id", ErrPlanning, i)
		}
		if _, exists := index[step.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateID, step.ID)
		}
		index[step.ID] = i
	}

	for i, step := range plan.Steps {
		for _, dep := range step.DependsOn {
			j, exists := index[dep]
			if !exists {
				return fmt.Errorf("%w: step %s depends on %s", ErrUnknownDependency, step.ID, dep)
			}
			if dep == step.ID {
				return fmt.Errorf("%w: step %s depends on itself", ErrDependencyCycle, step.ID)
			}
			if j > i {
				return fmt.Errorf("%w: step %s forward-references %s", ErrUnknownDependency, step.ID, dep)
			}
		}
	}

	if err := v.checkAcyclic(plan); err != nil {
		return err
	}

	keys := make(map[string]string, len(plan.Steps))
	for _, step := range plan.Steps {
		key := step.Artifact()
		if prev, exists := keys[key]; exists {
			return fmt.Errorf("%w: steps %s and %s both write %q", ErrOutputOverlap, prev, step.ID, key)
		}
		keys[key] = step.ID
	}

	return nil
}

// checkAcyclic runs Kahn's algorithm over the dependency relation.
// Forward references are already excluded, but the topological check is
// kept as the authoritative cycle detector.
func (v *Validator) checkAcyclic(plan *domain.Plan) error {
	inDeg := make(map[string]int, len(plan.Steps))
	dependents := make(map[string][]string, len(plan.Steps))
	for _, step := range plan.Steps {
		inDeg[step.ID] = len(step.DependsOn)
		for _, dep := range step.DependsOn {
			dependents[dep] = append(dependents[dep], step.ID)
		}
	}

	var queue []string
	for id, deg := range inDeg {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++
		for _, next := range dependents[id] {
			inDeg[next]--
			if inDeg[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if processed != len(plan.Steps) {
		return fmt.Errorf("%w: processed %d of %d steps", ErrDependencyCycle, processed, len(plan.Steps))
	}
	return nil
}
