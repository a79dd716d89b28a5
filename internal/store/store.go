// Package store provides the persistent vault index: embedding records
// with freshness metadata, backed by SQLite and sqlite-vec.
package store

import (
	"context"
	"errors"

	"github.com/aadityaincode/Deep-Notes/internal/vault"
)

// ErrDimensionMismatch is returned when a vector's length differs from
// the dimensions recorded for the index. Mixing vector semantics
// silently corrupts ranking, so inserts are rejected outright.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// EmbedFunc is the injected embedding capability used during upsert.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Record is the persisted unit: one chunk plus its freshness marker.
// Records are created during indexing, deleted en masse when their
// document is re-indexed or removed, and never mutated in place.
type Record struct {
	ID         int64  `json:"id"`
	Path       string `json:"path"`
	ChunkIndex int    `json:"chunk_index"`
	Heading    string `json:"heading"`
	Text       string `json:"text"`
	Mtime      int64  `json:"mtime"` // Unix milliseconds of the source document version
}

// Match is a record returned from a similarity query.
type Match struct {
	Record   Record  `json:"record"`
	Distance float64 `json:"distance"` // Cosine distance from sqlite-vec
	Score    float64 `json:"score"`    // 1 - distance (similarity)
}

// Stats describes the index contents.
type Stats struct {
	TotalRecords int `json:"total_records"`
	Documents    int `json:"documents"`
}

// Store is the vault index store.
type Store interface {
	// EnsureMeta records the embedding provider identity and creates
	// the vector table on first use. A changed provider fingerprint is
	// logged with clear-and-reindex guidance.
	EnsureMeta(provider, model string, dimensions int) error

	// UpsertDocument replaces every record for path with records built
	// from chunks: delete-then-insert, never merge. Each chunk is
	// embedded via embed; a chunk yielding an empty vector is skipped
	// with a warning, an embedding error aborts the remaining chunks
	// and propagates. Partial inserts remain for that document but
	// never carry the mtime marker, so the document reads stale until
	// a later upsert completes. Returns the number of records inserted.
	UpsertDocument(ctx context.Context, path string, chunks []vault.Chunk, mtime int64, embed EmbedFunc) (int, error)

	// RemoveDocument deletes all records for path. No-op if none exist.
	RemoveDocument(path string) error

	// Clear drops and recreates the empty index.
	Clear() error

	// Query returns up to topK records ranked by descending similarity
	// to vector, excluding records whose path equals excludePath
	// (when non-empty).
	Query(ctx context.Context, vector []float32, topK int, excludePath string) ([]Match, error)

	// IsFresh reports whether at least one record exists for path with
	// a stored mtime exactly equal to mtime.
	IsFresh(path string, mtime int64) (bool, error)

	// ListRecords returns the records for one document in chunk order.
	ListRecords(path string) ([]Record, error)

	// Stats returns index statistics.
	Stats() (*Stats, error)

	Close() error
}
