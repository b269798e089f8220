package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aescanero/agor/internal/domain"
	"github.com/aescanero/agor/internal/ports"
)

func TestSaveAndGetRun(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	record := &domain.RunRecord{
		ID:          "run-1",
		Task:        "analyze the exchange rate",
		Status:      domain.RunPlanning,
		SubmittedAt: time.Now(),
	}
	if err := store.SaveRun(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Task != record.Task {
		t.Errorf("task mismatch: %q", got.Task)
	}

	// Mutating the returned record must not affect the stored copy.
	got.Status = domain.RunFailed
	again, _ := store.GetRun(ctx, "run-1")
	if again.Status != domain.RunPlanning {
		t.Error("store returned a shared reference")
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := NewRunStore()

	_, err := store.GetRun(context.Background(), "missing")
	if !errors.Is(err, ports.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		record := &domain.RunRecord{
			ID:          id,
			Status:      domain.RunComplete,
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveRun(ctx, record); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	records, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].ID != "new" || records[2].ID != "old" {
		t.Errorf("unexpected order: %s, %s, %s", records[0].ID, records[1].ID, records[2].ID)
	}
}
