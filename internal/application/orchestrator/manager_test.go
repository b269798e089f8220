package orchestrator

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/agor/internal/application/tools"
	"github.com/aescanero/agor/internal/domain"
	"github.com/aescanero/agor/internal/ports"
	storemem "github.com/aescanero/agor/pkg/adapters/store/memory"
)

func waitForTerminal(t *testing.T, m *Manager, runID string) *domain.RunRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		record, err := m.GetRun(context.Background(), runID)
		if err != nil {
			t.Fatalf("get run: %v", err)
		}
		if record.Status.Terminal() {
			return record
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run did not reach a terminal status")
	return nil
}

func TestSubmitRunCompletesAndPersists(t *testing.T) {
	model := &schemaModel{
		plans:    []string{twoStepPlan},
		verdicts: []string{approveJSON},
	}
	agent := buildTestAgent(model, []tools.Runner{
		newCountingRunner(domain.ActionCompute),
		synthRunner("the answer"),
	}, 3, false)
	store := storemem.NewRunStore()
	m := NewManager(agent, store, ports.NopSink{}, ports.NopMetrics{}, zap.NewNop())

	runID, err := m.SubmitRun(context.Background(), "analyze the trend")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	record := waitForTerminal(t, m, runID)
	if record.Status != domain.RunComplete {
		t.Fatalf("status: %s", record.Status)
	}
	if record.Output == nil || record.Output.Text != "the answer" {
		t.Errorf("output: %+v", record.Output)
	}
	if record.CompletedAt == nil {
		t.Error("completed_at not set")
	}
}

func TestSubmitRunFailureRecordsPartial(t *testing.T) {
	model := &schemaModel{plans: []string{"garbage", "garbage"}}
	agent := buildTestAgent(model, []tools.Runner{synthRunner("x")}, 3, false)
	m := NewManager(agent, storemem.NewRunStore(), ports.NopSink{}, ports.NopMetrics{}, zap.NewNop())

	runID, err := m.SubmitRun(context.Background(), "analyze")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	record := waitForTerminal(t, m, runID)
	if record.Status != domain.RunFailed {
		t.Fatalf("status: %s", record.Status)
	}
	if record.Output == nil || !record.Output.Partial {
		t.Errorf("expected partial output, got %+v", record.Output)
	}
}

func TestSubmitRunRejectsEmptyTask(t *testing.T) {
	agent := buildTestAgent(&schemaModel{}, nil, 1, false)
	m := NewManager(agent, storemem.NewRunStore(), ports.NopSink{}, ports.NopMetrics{}, zap.NewNop())

	if _, err := m.SubmitRun(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty task")
	}
}
