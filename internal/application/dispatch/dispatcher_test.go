package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/agor/internal/application/tools"
	"github.com/aescanero/agor/internal/domain"
	"github.com/aescanero/agor/internal/ports"
)

// orderRunner records the order steps settle in and can fail or block
// selected steps.
type orderRunner struct {
	action domain.ActionType
	mu     sync.Mutex
	order  []string
	fail   map[string]bool
	block  map[string]time.Duration

	running    int
	maxRunning int
}

func newOrderRunner(action domain.ActionType) *orderRunner {
	return &orderRunner{
		action: action,
		fail:   make(map[string]bool),
		block:  make(map[string]time.Duration),
	}
}

func (r *orderRunner) Action() domain.ActionType { return r.action }

func (r *orderRunner) Run(ctx context.Context, step domain.PlanStep, _ *domain.Context) (*tools.Output, error) {
	r.mu.Lock()
	r.running++
	if r.running > r.maxRunning {
		r.maxRunning = r.running
	}
	delay := r.block[step.ID]
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}

	r.mu.Lock()
	r.running--
	r.order = append(r.order, step.ID)
	fail := r.fail[step.ID]
	r.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("step %s failed", step.ID)
	}
	return &tools.Output{Payload: "done:" + step.ID}, nil
}

func (r *orderRunner) position(stepID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, id := range r.order {
		if id == stepID {
			return i
		}
	}
	return -1
}

func testDispatcher(limit int, runners ...tools.Runner) *Dispatcher {
	registry := tools.NewRegistry()
	for _, r := range runners {
		registry.Register(r)
	}
	return NewDispatcher(registry, limit, time.Second, ports.NopMetrics{}, zap.NewNop())
}

func plan(steps ...domain.PlanStep) *domain.Plan {
	return &domain.Plan{Steps: steps}
}

func step(id string, action domain.ActionType, deps ...string) domain.PlanStep {
	return domain.PlanStep{ID: id, Action: action, DependsOn: deps}
}

func TestExecuteHonorsDependencyOrder(t *testing.T) {
	runner := newOrderRunner(domain.ActionCompute)
	synth := newOrderRunner(domain.ActionSynthesize)
	d := testDispatcher(4, runner, synth)

	// Diamond: b and c fan out from a, answer joins them.
	p := plan(
		step("a", domain.ActionCompute),
		step("b", domain.ActionCompute, "a"),
		step("c", domain.ActionCompute, "a"),
		step("answer", domain.ActionSynthesize, "a", "b", "c"),
	)
	ec := domain.NewContext("task")

	results, err := d.Execute(context.Background(), p, ec, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Status != domain.ExecSuccess {
			t.Errorf("step %s: %s %s", r.StepID, r.Status, r.Error)
		}
	}

	if runner.position("a") > runner.position("b") || runner.position("a") > runner.position("c") {
		t.Error("dependency ran after dependent")
	}
	if pos := synth.position("answer"); pos != 0 {
		// synth has its own order slice; it only ever ran answer
		t.Errorf("synthesis order slot: %d", pos)
	}
	if !ec.Succeeded("answer") {
		t.Error("synthesis result not merged")
	}
}

func TestExecuteRunsIndependentStepsConcurrently(t *testing.T) {
	runner := newOrderRunner(domain.ActionCompute)
	synth := newOrderRunner(domain.ActionSynthesize)
	for _, id := range []string{"a", "b", "c"} {
		runner.block[id] = 50 * time.Millisecond
	}
	d := testDispatcher(3, runner, synth)

	p := plan(
		step("a", domain.ActionCompute),
		step("b", domain.ActionCompute),
		step("c", domain.ActionCompute),
		step("answer", domain.ActionSynthesize, "a", "b", "c"),
	)

	start := time.Now()
	_, err := d.Execute(context.Background(), p, domain.NewContext("task"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 120*time.Millisecond {
		t.Errorf("independent steps appear serialized: %v", elapsed)
	}
	if runner.maxRunning < 2 {
		t.Errorf("expected parallel execution, max concurrent was %d", runner.maxRunning)
	}
}

func TestExecuteBoundsConcurrency(t *testing.T) {
	runner := newOrderRunner(domain.ActionCompute)
	synth := newOrderRunner(domain.ActionSynthesize)
	for _, id := range []string{"a", "b", "c", "d"} {
		runner.block[id] = 30 * time.Millisecond
	}
	d := testDispatcher(2, runner, synth)

	p := plan(
		step("a", domain.ActionCompute),
		step("b", domain.ActionCompute),
		step("c", domain.ActionCompute),
		step("d", domain.ActionCompute),
		step("answer", domain.ActionSynthesize, "a", "b", "c", "d"),
	)

	if _, err := d.Execute(context.Background(), p, domain.NewContext("task"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.maxRunning > 2 {
		t.Errorf("concurrency limit exceeded: %d", runner.maxRunning)
	}
}

func TestExecuteFailedDependencyLeavesStepsPending(t *testing.T) {
	runner := newOrderRunner(domain.ActionCompute)
	synth := newOrderRunner(domain.ActionSynthesize)
	runner.fail["a"] = true
	d := testDispatcher(4, runner, synth)

	p := plan(
		step("a", domain.ActionCompute),
		step("b", domain.ActionCompute, "a"),
		step("answer", domain.ActionSynthesize, "a", "b"),
	)
	ec := domain.NewContext("task")

	results, err := d.Execute(context.Background(), p, ec, nil)
	if err != nil {
		t.Fatalf("a failed dependency is not a dispatch error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("only the failed step should have settled, got %d results", len(results))
	}
	if results[0].Status != domain.ExecError {
		t.Errorf("status: %s", results[0].Status)
	}
	// The error result is recorded but yields no artifact, and the
	// blocked steps remain retryable.
	if _, ok := ec.Artifacts["a"]; ok {
		t.Error("failed step must not contribute an artifact")
	}
	if ec.Succeeded("b") || ec.Succeeded("answer") {
		t.Error("blocked steps must stay pending")
	}
}

func TestExecuteResumeSkipsSucceededSteps(t *testing.T) {
	runner := newOrderRunner(domain.ActionCompute)
	synth := newOrderRunner(domain.ActionSynthesize)
	runner.fail["b"] = true
	d := testDispatcher(4, runner, synth)

	p := plan(
		step("a", domain.ActionCompute),
		step("b", domain.ActionCompute),
		step("answer", domain.ActionSynthesize, "a", "b"),
	)
	ec := domain.NewContext("task")

	if _, err := d.Execute(context.Background(), p, ec, nil); err != nil {
		t.Fatalf("first attempt: %v", err)
	}

	// Second attempt with the failure cleared: only b and answer run.
	runner.mu.Lock()
	runner.fail["b"] = false
	before := len(runner.order)
	runner.mu.Unlock()

	results, err := d.Execute(context.Background(), p, ec, nil)
	if err != nil {
		t.Fatalf("resume attempt: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results on resume, got %d", len(results))
	}

	runner.mu.Lock()
	reran := runner.order[before:]
	runner.mu.Unlock()
	for _, id := range reran {
		if id == "a" {
			t.Error("succeeded step was re-executed on resume")
		}
	}
	if !ec.Succeeded("answer") {
		t.Error("resume did not complete the plan")
	}
}

func TestRunReadyDeadlockDetection(t *testing.T) {
	runner := newOrderRunner(domain.ActionCompute)
	d := testDispatcher(4, runner)

	// Unvalidated cycle: a <-> b. Nothing is ready, nothing failed.
	p := plan(
		step("a", domain.ActionCompute, "b"),
		step("b", domain.ActionCompute, "a"),
	)

	_, err := d.RunReady(context.Background(), p, domain.NewContext("task"), map[string]bool{})
	if !errors.Is(err, ErrDependencyDeadlock) {
		t.Fatalf("expected ErrDependencyDeadlock, got %v", err)
	}
}

func TestRunStepConvertsPanicAndMissingAdapter(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(panicRunner{})
	d := NewDispatcher(registry, 1, time.Second, ports.NopMetrics{}, zap.NewNop())

	ec := domain.NewContext("task")

	r := d.runStep(context.Background(), step("boom", domain.ActionCompute), ec)
	if r.Status != domain.ExecError {
		t.Errorf("panic status: %s", r.Status)
	}

	r = d.runStep(context.Background(), step("x", domain.ActionRetrieve), ec)
	if r.Status != domain.ExecError {
		t.Errorf("missing adapter status: %s", r.Status)
	}
}

type panicRunner struct{}

func (panicRunner) Action() domain.ActionType { return domain.ActionCompute }

func (panicRunner) Run(context.Context, domain.PlanStep, *domain.Context) (*tools.Output, error) {
	panic("adapter bug")
}
