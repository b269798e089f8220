// Package sqlite implements document retrieval over an embedded SQLite
// knowledge base with term-overlap similarity scoring.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/aescanero/agor/internal/ports"
)

// Store implements ports.RetrievalService over a local SQLite database.
type Store struct {
	db            *sql.DB
	minSimilarity float64
}

// New opens (or creates) the database at dbPath and runs migrations.
func New(dbPath string, minSimilarity float64) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, minSimilarity: minSimilarity}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Add inserts a document into the knowledge base.
func (s *Store) Add(ctx context.Context, source, content string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO documents (source, content) VALUES (?, ?)", source, content)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

// Search scores every document by query term overlap and returns the
// topK documents above the similarity floor. An empty slice means no
// match, not an error.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]ports.Document, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return []ports.Document{}, nil
	}

	rows, err := s.db.QueryContext(ctx, "SELECT source, content FROM documents")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var matches []ports.Document
	for rows.Next() {
		var doc ports.Document
		if err := rows.Scan(&doc.Source, &doc.Content); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Similarity = similarity(terms, doc.Content)
		if doc.Similarity >= s.minSimilarity {
			matches = append(matches, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	if matches == nil {
		matches = []ports.Document{}
	}
	return matches, nil
}

// similarity is the fraction of query terms present in the document.
func similarity(terms []string, content string) float64 {
	lower := strings.ToLower(content)
	hits := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()")
		if len(f) > 2 {
			terms = append(terms, f)
		}
	}
	return terms
}
