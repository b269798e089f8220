// Package ports declares the contracts the orchestration core consumes:
// the model, execution, retrieval and data services, plus progress sinks,
// run storage and metrics. Adapters under pkg/adapters implement them;
// tests substitute fakes.
package ports
