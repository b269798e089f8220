package sqlite

import (
	"context"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:", 0.3)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSearchRanksByTermOverlap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docs := map[string]string{
		"glossary.md":   "The exchange rate measures the value of one currency against another.",
		"indicators.md": "The relative strength index and moving averages describe momentum in the exchange rate.",
		"cooking.md":    "Slice the onions thinly and cook until golden.",
	}
	for source, content := range docs {
		if err := s.Add(ctx, source, content); err != nil {
			t.Fatalf("adding %s: %v", source, err)
		}
	}

	results, err := s.Search(ctx, "exchange rate momentum indicators", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one match")
	}
	if results[0].Source != "indicators.md" {
		t.Errorf("expected indicators.md ranked first, got %s", results[0].Source)
	}
	for _, r := range results {
		if r.Source == "cooking.md" {
			t.Error("unrelated document should fall below the similarity floor")
		}
		if r.Similarity < 0.3 {
			t.Errorf("result %s below floor: %f", r.Source, r.Similarity)
		}
	}
}

func TestSearchRespectsTopK(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, source := range []string{"a.md", "b.md", "c.md", "d.md"} {
		if err := s.Add(ctx, source, "currency exchange rate analysis"); err != nil {
			t.Fatalf("adding %s: %v", source, err)
		}
	}

	results, err := s.Search(ctx, "currency exchange analysis", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestSearchNoMatchReturnsEmptySlice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Add(ctx, "doc.md", "completely unrelated text"); err != nil {
		t.Fatalf("adding document: %v", err)
	}

	results, err := s.Search(ctx, "quantum chromodynamics lattice", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if results == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
