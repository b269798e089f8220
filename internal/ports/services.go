package ports

import (
	"context"
	"errors"
	"time"
)

// Schema tags the structured response expected from the model service.
type Schema string

const (
	SchemaPlan    Schema = "plan"
	SchemaVerdict Schema = "verdict"
	SchemaText    Schema = "text"
)

// ErrModelUnavailable is returned when all configured model backends
// are exhausted.
var ErrModelUnavailable = errors.New("model service unavailable")

// ModelService generates structured or free-text completions.
type ModelService interface {
	Complete(ctx context.Context, prompt string, schema Schema) (string, error)
}

// Execution service failure modes.
var (
	ErrRejected    = errors.New("operation rejected by sandbox")
	ErrExecTimeout = errors.New("sandbox execution timed out")
)

// ExecutionOutput is the result of a sandboxed code run.
type ExecutionOutput struct {
	Stdout    string   `json:"stdout"`
	Stderr    string   `json:"stderr"`
	ExitCode  int      `json:"exit_code"`
	Artifacts []string `json:"artifacts,omitempty"`
}

// ExecutionService runs code in an isolated sandbox with injected data.
type ExecutionService interface {
	Run(ctx context.Context, code string, contextData map[string]any, timeout time.Duration) (*ExecutionOutput, error)
}

// Document is one ranked retrieval hit.
type Document struct {
	Source     string  `json:"source"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// RetrievalService searches the document store. No match yields an
// empty slice, never an error.
type RetrievalService interface {
	Search(ctx context.Context, query string, topK int) ([]Document, error)
}

// ErrDataUnavailable is returned when no time series exists for a symbol.
var ErrDataUnavailable = errors.New("market data unavailable")

// Point is one OHLCV observation.
type Point struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is a fetched time-series table.
type Series struct {
	Symbol string  `json:"symbol"`
	Period string  `json:"period"`
	Points []Point `json:"points"`
}

// DataService fetches market time series.
type DataService interface {
	Fetch(ctx context.Context, symbol, period string) (*Series, error)
}
