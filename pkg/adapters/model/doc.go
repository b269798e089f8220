// Package model implements the model service port over real LLM
// backends. The router walks a fallback chain of backends, each guarded
// by a circuit breaker, and reports the service unavailable only when
// every configured backend is exhausted.
package model
