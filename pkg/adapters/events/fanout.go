package events

import "github.com/aescanero/agor/internal/domain"

// Fanout delivers every event to multiple sinks.
type Fanout struct {
	sinks []sink
}

type sink interface {
	Emit(domain.ProgressEvent)
	Close() error
}

// NewFanout builds a fanout over the given sinks.
func NewFanout(sinks ...sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Emit forwards the event to every sink.
func (f *Fanout) Emit(event domain.ProgressEvent) {
	for _, s := range f.sinks {
		s.Emit(event)
	}
}

// Close closes every sink, returning the first error.
func (f *Fanout) Close() error {
	var firstErr error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
