package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/agor/internal/application/tools"
	"github.com/aescanero/agor/internal/domain"
	"github.com/aescanero/agor/internal/ports"
	"go.uber.org/zap"
)

// ErrDependencyDeadlock signals that no step is ready, none has failed,
// and steps remain pending. A plan that passed validation should never
// reach this; the check is defensive.
var ErrDependencyDeadlock = errors.New("dependency deadlock")

// Dispatcher runs ready plan steps through their tool adapters.
type Dispatcher struct {
	registry    *tools.Registry
	limit       int
	stepTimeout time.Duration
	metrics     ports.MetricsCollector
	logger      *zap.Logger
}

// NewDispatcher creates a dispatcher with a concurrency limit and a
// per-step timeout.
func NewDispatcher(registry *tools.Registry, limit int, stepTimeout time.Duration, metrics ports.MetricsCollector, logger *zap.Logger) *Dispatcher {
	if limit < 1 {
		limit = 1
	}
	return &Dispatcher{
		registry:    registry,
		limit:       limit,
		stepTimeout: stepTimeout,
		metrics:     metrics,
		logger:      logger,
	}
}

// Execute drives dispatch passes until the synthesis step succeeds, no
// further progress is possible, or the context expires. Settled results
// are merged into ec after each pass; onStep is invoked per settled
// step for progress reporting and may be nil.
func (d *Dispatcher) Execute(ctx context.Context, plan *domain.Plan, ec *domain.Context, onStep func(domain.ExecutionResult)) ([]domain.ExecutionResult, error) {
	attempted := make(map[string]bool)
	var all []domain.ExecutionResult

	for {
		results, err := d.RunReady(ctx, plan, ec, attempted)
		if err != nil {
			return all, err
		}
		if len(results) == 0 {
			return all, nil
		}

		all = append(all, results...)
		if onStep != nil {
			for _, r := range results {
				onStep(r)
			}
		}

		if synth := plan.SynthesisStep(); synth != nil && ec.Succeeded(synth.ID) {
			return all, nil
		}
		if ctx.Err() != nil {
			return all, nil
		}
	}
}

// RunReady executes one dispatch pass: every step whose dependencies all
// succeeded and which has not itself succeeded or been attempted this
// phase. The frontier advances only after the whole pass has settled.
func (d *Dispatcher) RunReady(ctx context.Context, plan *domain.Plan, ec *domain.Context, attempted map[string]bool) ([]domain.ExecutionResult, error) {
	ready := d.readySteps(plan, ec, attempted)
	if len(ready) == 0 {
		pending := d.pendingSteps(plan, ec, attempted)
		if len(pending) == 0 {
			return nil, nil
		}
		if d.anyFailure(ec) {
			// Blocked behind a failed dependency: steps stay pending and
			// are retried only when the orchestrator resumes this plan.
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %d steps pending, none ready", ErrDependencyDeadlock, len(pending))
	}

	results := make([]domain.ExecutionResult, len(ready))
	sem := make(chan struct{}, d.limit)
	var wg sync.WaitGroup

	for i, step := range ready {
		wg.Add(1)
		go func(i int, step domain.PlanStep) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = d.runStep(ctx, step, ec)
		}(i, step)
	}
	wg.Wait()

	for _, step := range ready {
		attempted[step.ID] = true
	}
	ec.Merge(plan, results)

	return results, nil
}

// runStep dispatches one step through its tool adapter, converting every
// failure mode (missing adapter, timeout, error, panic) into an error
// result rather than a run failure.
func (d *Dispatcher) runStep(ctx context.Context, step domain.PlanStep, ec *domain.Context) (result domain.ExecutionResult) {
	start := time.Now()
	result = domain.ExecutionResult{StepID: step.ID, Action: step.Action}

	defer func() {
		if r := recover(); r != nil {
			result.Status = domain.ExecError
			result.Error = fmt.Sprintf("adapter panic: %v", r)
		}
		result.Duration = time.Since(start)
		d.metrics.RecordStepExecuted(string(step.Action), string(result.Status), result.Duration)
		d.logger.Info("step settled",
			zap.String("step_id", step.ID),
			zap.String("action", string(step.Action)),
			zap.String("status", string(result.Status)),
			zap.Duration("duration", result.Duration))
	}()

	runner, ok := d.registry.Get(step.Action)
	if !ok {
		result.Status = domain.ExecError
		result.Error = fmt.Sprintf("no adapter for action %s", step.Action)
		return result
	}

	stepCtx, cancel := context.WithTimeout(ctx, d.stepTimeout)
	defer cancel()

	out, err := runner.Run(stepCtx, step, ec)
	if err != nil {
		result.Status = domain.ExecError
		result.Error = err.Error()
		return result
	}

	result.Status = domain.ExecSuccess
	result.Payload = out.Payload
	result.Output = out.Log
	result.Artifacts = out.Artifacts
	return result
}

func (d *Dispatcher) readySteps(plan *domain.Plan, ec *domain.Context, attempted map[string]bool) []domain.PlanStep {
	var ready []domain.PlanStep
	for _, step := range plan.Steps {
		if ec.Succeeded(step.ID) || attempted[step.ID] {
			continue
		}
		if d.depsSatisfied(step, ec) {
			ready = append(ready, step)
		}
	}
	return ready
}

func (d *Dispatcher) pendingSteps(plan *domain.Plan, ec *domain.Context, attempted map[string]bool) []string {
	var pending []string
	for _, step := range plan.Steps {
		if !ec.Succeeded(step.ID) && !attempted[step.ID] {
			pending = append(pending, step.ID)
		}
	}
	return pending
}

func (d *Dispatcher) depsSatisfied(step domain.PlanStep, ec *domain.Context) bool {
	for _, dep := range step.DependsOn {
		if !ec.Succeeded(dep) {
			return false
		}
	}
	return true
}

func (d *Dispatcher) anyFailure(ec *domain.Context) bool {
	for _, r := range ec.Results {
		if r.Status != domain.ExecSuccess {
			return true
		}
	}
	return false
}
