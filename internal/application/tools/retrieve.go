package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/aescanero/agor/internal/domain"
	"github.com/aescanero/agor/internal/ports"
)

// RetrieveRunner searches the document store for step-relevant context.
// No match is a valid, empty result, never an error.
type RetrieveRunner struct {
	Retrieval ports.RetrievalService
	TopK      int
}

func (r *RetrieveRunner) Action() domain.ActionType { return domain.ActionRetrieve }

func (r *RetrieveRunner) Run(ctx context.Context, step domain.PlanStep, ec *domain.Context) (*Output, error) {
	query, _ := step.Params["query"].(string)
	if query == "" {
		query = step.Description
	}

	topK := r.TopK
	if raw, ok := step.Params["top_k"].(float64); ok && raw > 0 {
		topK = int(raw)
	}

	docs, err := r.Retrieval.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval search: %w", err)
	}

	var b strings.Builder
	sources := make([]string, 0, len(docs))
	for _, d := range docs {
		fmt.Fprintf(&b, "- %s\n", d.Content)
		if !containsStr(sources, d.Source) {
			sources = append(sources, d.Source)
		}
	}

	return &Output{
		Payload: map[string]any{
			"documents": docs,
			"sources":   sources,
			"text":      b.String(),
		},
		Log: fmt.Sprintf("retrieved %d documents for %q", len(docs), query),
	}, nil
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
