package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aescanero/agor/internal/application/dispatch"
	"github.com/aescanero/agor/internal/domain"
	"github.com/aescanero/agor/internal/ports"
	"go.uber.org/zap"
)

// Agent is the orchestration state machine. It owns the whole-run state
// exclusively; collaborators only ever see read-only views of it.
type Agent struct {
	planner    *Planner
	validator  *Validator
	dispatcher *dispatch.Dispatcher
	verifier   *Verifier
	metrics    ports.MetricsCollector
	logger     *zap.Logger

	maxIterations      int
	runBudget          time.Duration
	reexecuteOnImprove bool
}

// NewAgent creates the orchestrator state machine.
func NewAgent(
	planner *Planner,
	validator *Validator,
	dispatcher *dispatch.Dispatcher,
	verifier *Verifier,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	maxIterations int,
	runBudget time.Duration,
	reexecuteOnImprove bool,
) *Agent {
	return &Agent{
		planner:            planner,
		validator:          validator,
		dispatcher:         dispatcher,
		verifier:           verifier,
		metrics:            metrics,
		logger:             logger,
		maxIterations:      maxIterations,
		runBudget:          runBudget,
		reexecuteOnImprove: reexecuteOnImprove,
	}
}

// Run iterates plan -> execute -> verify until a verdict approves the
// result or the iteration budget is exhausted. The caller always
// receives a FinalOutput: complete runs carry the synthesized answer,
// failed runs a best-effort partial output with the unresolved issues.
func (a *Agent) Run(ctx context.Context, runID, task string, sink ports.EventSink) *domain.FinalOutput {
	state := domain.NewAgentState(task)

	runCtx, cancel := context.WithTimeout(ctx, a.runBudget)
	defer cancel()

	var feedback *domain.VerificationResult

	for state.Iteration = 1; state.Iteration <= a.maxIterations; state.Iteration++ {
		logger := a.logger.With(zap.String("run_id", runID), zap.Int("iteration", state.Iteration))

		// planning
		state.Status = domain.RunPlanning
		a.emit(sink, runID, state, domain.PhasePlanning, "", 0)

		plan, err := a.planWithRetry(runCtx, state, feedback)
		if err != nil {
			logger.Error("planning failed after retry", zap.Error(err))
			return a.fail(sink, runID, state, fmt.Sprintf("planning failed: %v", err))
		}
		state.Plan = plan

		if a.reexecuteOnImprove && feedback != nil && feedback.Verdict == domain.VerdictNeedsImprovement {
			// Policy: re-run everything on improvement instead of only
			// the not-yet-successful steps. History stays intact.
			state.Context = domain.NewContext(task)
		}

		// executing
		state.Status = domain.RunExecuting
		a.emit(sink, runID, state, domain.PhaseExecuting, "", 0)

		results, execErr := a.dispatcher.Execute(runCtx, plan, state.Context, func(r domain.ExecutionResult) {
			a.emit(sink, runID, state, domain.PhaseStepComplete, r.StepID, 0)
		})
		state.History = append(state.History, results...)

		if execErr != nil {
			if errors.Is(execErr, dispatch.ErrDependencyDeadlock) {
				logger.Error("dependency deadlock", zap.Error(execErr))
				return a.fail(sink, runID, state, execErr.Error())
			}
			logger.Error("execution failed", zap.Error(execErr))
			return a.fail(sink, runID, state, execErr.Error())
		}

		if runCtx.Err() != nil {
			// Wall-clock budget expired: in-flight steps were cancelled
			// cooperatively; deliver whatever exists.
			logger.Warn("run budget exhausted during execution")
			return a.fail(sink, runID, state, "run budget exhausted")
		}

		// verifying
		state.Status = domain.RunVerifying
		a.emit(sink, runID, state, domain.PhaseVerifying, "", 0)

		verification := a.verifier.Verify(runCtx, task, plan, state.History)
		state.Verifications = append(state.Verifications, *verification)
		a.metrics.RecordIteration(string(verification.Verdict))

		logger.Info("iteration verdict",
			zap.String("verdict", string(verification.Verdict)),
			zap.Float64("aggregate", verification.Aggregate))

		switch verification.Verdict {
		case domain.VerdictApproved:
			state.Status = domain.RunComplete
			state.Final = &domain.FinalOutput{
				Text:       a.synthesizedText(state),
				Partial:    false,
				Score:      verification.Aggregate,
				Iterations: state.Iteration,
			}
			a.emit(sink, runID, state, domain.PhaseComplete, "", verification.Aggregate)
			return state.Final

		case domain.VerdictRejected:
			// Restart: discard and replan from scratch.
			state.ClearHistory()
			feedback = verification
			a.emit(sink, runID, state, domain.PhaseReplanning, "", verification.Aggregate)

		case domain.VerdictNeedsImprovement:
			// Resume: keep execution history, plan with feedback.
			feedback = verification
			a.emit(sink, runID, state, domain.PhaseImproving, "", verification.Aggregate)
		}
	}

	state.Iteration = a.maxIterations
	return a.fail(sink, runID, state, "iteration budget exhausted without approval")
}

// planWithRetry obtains a validated plan, retrying the model call once
// with an explicit correction instruction before giving up.
func (a *Agent) planWithRetry(ctx context.Context, state *domain.AgentState, feedback *domain.VerificationResult) (*domain.Plan, error) {
	req := PlanRequest{
		Task:            state.Task,
		PriorExecutions: state.History,
		Feedback:        feedback,
	}

	plan, err := a.createValidated(ctx, req)
	if err == nil {
		return plan, nil
	}

	a.logger.Warn("plan rejected, retrying with correction", zap.Error(err))
	req.Correction = err.Error()

	plan, retryErr := a.createValidated(ctx, req)
	if retryErr != nil {
		return nil, fmt.Errorf("%w (after retry: %w)", err, retryErr)
	}
	return plan, nil
}

func (a *Agent) createValidated(ctx context.Context, req PlanRequest) (*domain.Plan, error) {
	plan, err := a.planner.CreatePlan(ctx, req)
	if err != nil {
		return nil, err
	}
	// Graph validation failures are planning errors: the plan came from
	// an external generator and must not be trusted.
	if err := a.validator.Validate(plan); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlanning, err)
	}
	return plan, nil
}

// fail terminates the run with a best-effort partial output. The run
// never ends with a bare error when any execution data exists.
func (a *Agent) fail(sink ports.EventSink, runID string, state *domain.AgentState, reason string) *domain.FinalOutput {
	state.Status = domain.RunFailed

	issues := []string{reason}
	var score float64
	if last := state.LastVerification(); last != nil {
		score = last.Aggregate
		issues = append(issues, last.Issues...)
	}

	state.Final = &domain.FinalOutput{
		Text:       a.partialText(state, reason),
		Partial:    true,
		Score:      score,
		Iterations: state.Iteration,
		Issues:     issues,
	}
	a.emit(sink, runID, state, domain.PhaseFailed, "", score)
	return state.Final
}

// synthesizedText returns the payload of the plan's synthesis step.
func (a *Agent) synthesizedText(state *domain.AgentState) string {
	if state.Plan != nil {
		if synth := state.Plan.SynthesisStep(); synth != nil {
			if r, ok := state.Context.Results[synth.ID]; ok && r.Status == domain.ExecSuccess {
				if text, ok := r.Payload.(string); ok {
					return text
				}
			}
		}
	}
	return a.partialText(state, "synthesis output missing")
}

// partialText assembles an explicitly incomplete answer from whatever
// artifacts were collected.
func (a *Agent) partialText(state *domain.AgentState, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[incomplete] The task could not be fully completed: %s\n", reason)

	if len(state.Context.Artifacts) == 0 {
		b.WriteString("No intermediate results were produced.\n")
		return b.String()
	}

	b.WriteString("\nCollected intermediate results:\n")
	keys := make([]string, 0, len(state.Context.Artifacts))
	for key := range state.Context.Artifacts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := state.Context.Artifacts[key]
		switch v := value.(type) {
		case string:
			fmt.Fprintf(&b, "## %s\n%s\n", key, truncate(v, 1000))
		default:
			if body, err := json.Marshal(v); err == nil {
				fmt.Fprintf(&b, "## %s\n%s\n", key, truncate(string(body), 1000))
			}
		}
	}
	return b.String()
}

func (a *Agent) emit(sink ports.EventSink, runID string, state *domain.AgentState, phase domain.Phase, stepID string, score float64) {
	if sink == nil {
		return
	}
	sink.Emit(domain.ProgressEvent{
		RunID:     runID,
		Phase:     phase,
		Iteration: state.Iteration,
		StepID:    stepID,
		Score:     score,
		Timestamp: time.Now(),
	})
}
