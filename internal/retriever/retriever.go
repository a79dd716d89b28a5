// Package retriever answers top-K similarity queries over the vault
// index with display-ready metadata.
package retriever

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/aadityaincode/Deep-Notes/internal/store"
)

// Result is a read-only projection of a matched record, constructed
// per query and never persisted.
type Result struct {
	Text      string  `json:"text"`
	FilePath  string  `json:"file_path"`
	NoteTitle string  `json:"note_title"`
	Heading   string  `json:"heading"`
	Score     float64 `json:"score"`
}

// Retriever is a thin denormalizing wrapper over the store's query
// path. It never mutates the store.
type Retriever struct {
	store store.Store
}

// New creates a Retriever over the given store.
func New(st store.Store) *Retriever {
	return &Retriever{store: st}
}

// Search returns up to topK results ranked by descending similarity to
// queryVector. When excludePath is non-empty, no result comes from
// that document.
func (r *Retriever) Search(ctx context.Context, queryVector []float32, topK int, excludePath string) ([]Result, error) {
	matches, err := r.store.Query(ctx, queryVector, topK, excludePath)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			Text:      m.Record.Text,
			FilePath:  m.Record.Path,
			NoteTitle: NoteTitle(m.Record.Path),
			Heading:   m.Record.Heading,
			Score:     m.Score,
		})
	}

	log.Debug("Search complete", "results", len(results))
	return results, nil
}

// NoteTitle derives a display title from a document path: the trailing
// path segment with its extension stripped.
func NoteTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
