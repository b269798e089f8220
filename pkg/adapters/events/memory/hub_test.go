package memory

import (
	"testing"
	"time"

	"github.com/aescanero/agor/internal/domain"
)

func event(runID, phase string, iter int) domain.ProgressEvent {
	return domain.ProgressEvent{
		RunID:     runID,
		Phase:     domain.Phase(phase),
		Iteration: iter,
		Timestamp: time.Now(),
	}
}

func TestEmitReachesSubscriber(t *testing.T) {
	hub := NewHub(8)
	defer hub.Close()

	ch, cancel := hub.Subscribe("run-1")
	defer cancel()

	hub.Emit(event("run-1", "planning", 1))
	hub.Emit(event("run-2", "planning", 1))

	select {
	case e := <-ch:
		if e.RunID != "run-1" {
			t.Errorf("wrong run: %s", e.RunID)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	select {
	case e := <-ch:
		t.Fatalf("received event for another run: %s", e.RunID)
	default:
	}
}

func TestFullQueueDropsOldest(t *testing.T) {
	hub := NewHub(2)
	defer hub.Close()

	ch, cancel := hub.Subscribe("run-1")
	defer cancel()

	for i := 1; i <= 5; i++ {
		hub.Emit(event("run-1", "executing", i))
	}

	// Queue holds 2, so only the two newest iterations remain.
	first := <-ch
	second := <-ch
	if first.Iteration != 4 || second.Iteration != 5 {
		t.Errorf("expected iterations 4 and 5, got %d and %d", first.Iteration, second.Iteration)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	hub := NewHub(4)
	defer hub.Close()

	ch, cancel := hub.Subscribe("run-1")
	cancel()

	// Emitting after cancel must not panic and the channel is closed.
	hub.Emit(event("run-1", "complete", 1))
	if _, ok := <-ch; ok {
		t.Error("expected closed channel after cancel")
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	hub := NewHub(4)
	ch, cancel := hub.Subscribe("run-1")
	defer cancel()

	if err := hub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("expected closed channel after hub close")
	}

	// Emit after close is a no-op.
	hub.Emit(event("run-1", "complete", 1))
}
