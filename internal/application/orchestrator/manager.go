package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/agor/internal/domain"
	"github.com/aescanero/agor/internal/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager coordinates run submissions for the API surface: it assigns
// run IDs, executes the agent loop in the background and persists run
// records to the store.
type Manager struct {
	agent   *Agent
	store   ports.RunStore
	sink    ports.EventSink
	metrics ports.MetricsCollector
	logger  *zap.Logger

	// Track active runs
	runs sync.Map // map[string]*runContext

	active sync.WaitGroup
}

// runContext holds cancellation state for a single active run.
type runContext struct {
	cancel    context.CancelFunc
	startedAt time.Time
}

// NewManager creates a run manager.
func NewManager(agent *Agent, store ports.RunStore, sink ports.EventSink, metrics ports.MetricsCollector, logger *zap.Logger) *Manager {
	return &Manager{
		agent:   agent,
		store:   store,
		sink:    sink,
		metrics: metrics,
		logger:  logger,
	}
}

// SubmitRun starts the agent loop for a task in the background and
// returns the run ID.
func (m *Manager) SubmitRun(ctx context.Context, task string) (string, error) {
	if task == "" {
		return "", fmt.Errorf("task is required")
	}

	runID := uuid.New().String()
	record := &domain.RunRecord{
		ID:          runID,
		Task:        task,
		Status:      domain.RunPlanning,
		SubmittedAt: time.Now(),
	}
	if err := m.store.SaveRun(ctx, record); err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.runs.Store(runID, &runContext{cancel: cancel, startedAt: time.Now()})
	m.metrics.RecordRunSubmitted(string(domain.RunPlanning))
	m.updateActive()

	m.logger.Info("run submitted",
		zap.String("run_id", runID),
		zap.String("task", truncate(task, 120)))

	m.active.Add(1)
	go m.execute(runCtx, runID, record)

	return runID, nil
}

// execute runs the agent loop to completion and records the outcome.
func (m *Manager) execute(ctx context.Context, runID string, record *domain.RunRecord) {
	defer m.active.Done()
	defer m.runs.Delete(runID)
	defer m.updateActive()

	start := time.Now()
	output := m.agent.Run(ctx, runID, record.Task, m.sink)

	now := time.Now()
	record.Output = output
	record.CompletedAt = &now
	if output.Partial {
		record.Status = domain.RunFailed
	} else {
		record.Status = domain.RunComplete
	}

	if err := m.store.SaveRun(context.Background(), record); err != nil {
		m.logger.Error("failed to save run result",
			zap.String("run_id", runID),
			zap.Error(err))
	}

	m.metrics.RecordRunCompleted(string(record.Status), time.Since(start))
	m.logger.Info("run finished",
		zap.String("run_id", runID),
		zap.String("status", string(record.Status)),
		zap.Float64("score", output.Score),
		zap.Int("iterations", output.Iterations),
		zap.Duration("duration", time.Since(start)))
}

// GetRun retrieves the stored record of a run.
func (m *Manager) GetRun(ctx context.Context, runID string) (*domain.RunRecord, error) {
	return m.store.GetRun(ctx, runID)
}

// ListRuns returns all stored run records.
func (m *Manager) ListRuns(ctx context.Context) ([]*domain.RunRecord, error) {
	return m.store.ListRuns(ctx)
}

// CancelRun cancels an active run. The agent loop observes the
// cancellation cooperatively and still produces a partial output.
func (m *Manager) CancelRun(ctx context.Context, runID string) error {
	val, ok := m.runs.Load(runID)
	if !ok {
		return fmt.Errorf("%w: run not active: %s", ports.ErrRunNotFound, runID)
	}
	val.(*runContext).cancel()

	m.logger.Info("run cancelled", zap.String("run_id", runID))
	return nil
}

// Shutdown cancels all active runs and waits for them to settle.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down run manager")

	m.runs.Range(func(key, value any) bool {
		value.(*runContext).cancel()
		return true
	})

	done := make(chan struct{})
	go func() {
		m.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("run manager shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

func (m *Manager) updateActive() {
	count := 0
	m.runs.Range(func(any, any) bool {
		count++
		return true
	})
	m.metrics.SetActiveRuns(count)
}
