package model

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/agor/internal/ports"
	"go.uber.org/zap"
)

// Backend is one model provider in the fallback chain.
type Backend interface {
	Name() string
	Complete(ctx context.Context, prompt string, schema ports.Schema) (string, error)
}

// Router implements ports.ModelService over an ordered chain of
// backends. Each backend carries its own circuit breaker; open circuits
// are skipped until their recovery timeout elapses.
type Router struct {
	backends []routedBackend
	timeout  time.Duration
	metrics  ports.MetricsCollector
	logger   *zap.Logger
}

type routedBackend struct {
	backend Backend
	breaker *circuitBreaker
}

// RouterConfig configures the fallback chain.
type RouterConfig struct {
	RequestTimeout   time.Duration
	BreakerThreshold int
	BreakerRecovery  time.Duration
	Metrics          ports.MetricsCollector
	Logger           *zap.Logger
}

// NewRouter builds a router over the given backends, in fallback order.
func NewRouter(cfg RouterConfig, backends ...Backend) (*Router, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("at least one model backend is required")
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}

	routed := make([]routedBackend, len(backends))
	for i, b := range backends {
		routed[i] = routedBackend{
			backend: b,
			breaker: newCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerRecovery),
		}
	}

	return &Router{
		backends: routed,
		timeout:  cfg.RequestTimeout,
		metrics:  metrics,
		logger:   cfg.Logger,
	}, nil
}

// Complete tries each available backend in order, returning the first
// success. Every backend failing or being skipped yields
// ports.ErrModelUnavailable.
func (r *Router) Complete(ctx context.Context, prompt string, schema ports.Schema) (string, error) {
	var lastErr error

	for _, rb := range r.backends {
		if !rb.breaker.available() {
			r.logger.Debug("skipping backend, circuit open",
				zap.String("backend", rb.backend.Name()))
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		start := time.Now()
		text, err := rb.backend.Complete(callCtx, prompt, schema)
		cancel()

		if err != nil {
			rb.breaker.recordFailure()
			r.metrics.RecordModelCall(rb.backend.Name(), "error", time.Since(start))
			r.logger.Warn("model backend failed",
				zap.String("backend", rb.backend.Name()),
				zap.String("schema", string(schema)),
				zap.Error(err))
			lastErr = err

			if ctx.Err() != nil {
				break
			}
			continue
		}

		rb.breaker.recordSuccess()
		r.metrics.RecordModelCall(rb.backend.Name(), "ok", time.Since(start))
		return text, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("%w: %w", ports.ErrModelUnavailable, lastErr)
	}
	return "", ports.ErrModelUnavailable
}
