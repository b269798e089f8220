package ports

import "github.com/aescanero/agor/internal/domain"

// EventSink receives progress events from the orchestrator. Emit must
// never block: implementations buffer with a bounded queue and drop the
// oldest event when full. Progress is advisory, not part of the
// correctness contract.
type EventSink interface {
	Emit(event domain.ProgressEvent)
	Close() error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(domain.ProgressEvent) {}
func (NopSink) Close() error              { return nil }
