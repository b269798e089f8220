package model

import (
	"sync"
	"time"
)

type breakerState string

const (
	breakerClosed   breakerState = "closed"
	breakerOpen     breakerState = "open"
	breakerHalfOpen breakerState = "half-open"
)

// circuitBreaker guards one backend. It opens after a number of
// consecutive failures and half-opens once the recovery timeout passes,
// letting a single probe through.
type circuitBreaker struct {
	threshold int
	recovery  time.Duration

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	state       breakerState
}

func newCircuitBreaker(threshold int, recovery time.Duration) *circuitBreaker {
	return &circuitBreaker{
		threshold: threshold,
		recovery:  recovery,
		state:     breakerClosed,
	}
}

func (b *circuitBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()
	if b.failures >= b.threshold {
		b.state = breakerOpen
	}
}

func (b *circuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.state = breakerClosed
}

func (b *circuitBreaker) available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerClosed {
		return true
	}
	if time.Since(b.lastFailure) > b.recovery {
		b.state = breakerHalfOpen
		return true
	}
	return false
}
