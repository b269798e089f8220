// Package memory provides an in-process progress event hub with
// bounded per-subscriber queues.
package memory

import (
	"sync"

	"github.com/aescanero/agor/internal/domain"
)

// Hub implements ports.EventSink and fans progress events out to
// per-run subscribers. Emit never blocks: when a subscriber queue is
// full the oldest queued event is dropped to make room.
type Hub struct {
	mu        sync.RWMutex
	queueSize int
	closed    bool
	subs      map[string][]*subscriber
}

type subscriber struct {
	ch chan domain.ProgressEvent
}

// NewHub creates a hub with the given per-subscriber queue size.
func NewHub(queueSize int) *Hub {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Hub{
		queueSize: queueSize,
		subs:      make(map[string][]*subscriber),
	}
}

// Emit delivers the event to every subscriber of its run. The read
// lock is held through delivery so channels cannot be closed under a
// concurrent send.
func (h *Hub) Emit(event domain.ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for _, sub := range h.subs[event.RunID] {
		sub.push(event)
	}
}

func (s *subscriber) push(event domain.ProgressEvent) {
	for {
		select {
		case s.ch <- event:
			return
		default:
		}
		// Queue full: drop the oldest event and retry.
		select {
		case <-s.ch:
		default:
		}
	}
}

// Subscribe registers a listener for a run's events. The returned
// cancel function must be called when the listener is done.
func (h *Hub) Subscribe(runID string) (<-chan domain.ProgressEvent, func()) {
	sub := &subscriber{ch: make(chan domain.ProgressEvent, h.queueSize)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	h.subs[runID] = append(h.subs[runID], sub)
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			subs := h.subs[runID]
			for i, s := range subs {
				if s == sub {
					h.subs[runID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(h.subs[runID]) == 0 {
				delete(h.subs, runID)
			}
			if !h.closed {
				close(sub.ch)
			}
		})
	}
	return sub.ch, cancel
}

// Close drops all subscribers and closes their channels.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for _, subs := range h.subs {
		for _, sub := range subs {
			close(sub.ch)
		}
	}
	h.subs = make(map[string][]*subscriber)
	return nil
}
