package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/aadityaincode/Deep-Notes/internal/vault"
)

func init() {
	// Register sqlite-vec extension
	sqlite_vec.Auto()
}

// SQLiteStore implements the Store interface using SQLite and sqlite-vec.
type SQLiteStore struct {
	db         *sql.DB
	dimensions int
	mu         sync.RWMutex
}

// NewSQLiteStore opens the index at dbPath, creating an empty one if
// missing. Idempotent.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &SQLiteStore{db: db}

	// Pick up dimensions recorded by a previous run, if any.
	var dims int
	err = db.QueryRow("SELECT dimensions FROM index_meta WHERE id = 1").Scan(&dims)
	if err == nil {
		s.dimensions = dims
	} else if err != sql.ErrNoRows {
		db.Close()
		return nil, fmt.Errorf("failed to read index meta: %w", err)
	}

	log.Debug("Opened index store", "path", dbPath, "dimensions", s.dimensions)

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// providerFingerprint identifies a provider/model combination.
func providerFingerprint(provider, model string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(provider+"/"+model))
}

// EnsureMeta records the embedding provider identity on first use and
// creates the vector table. A mismatched fingerprint on a later run is
// logged: mixed vector semantics corrupt ranking, and the remedy is an
// explicit clear plus full re-index.
func (s *SQLiteStore) EnsureMeta(provider, model string, dimensions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fingerprint := providerFingerprint(provider, model)

	var storedFingerprint string
	var storedDims int
	err := s.db.QueryRow("SELECT fingerprint, dimensions FROM index_meta WHERE id = 1").
		Scan(&storedFingerprint, &storedDims)
	if err == sql.ErrNoRows {
		if err := createVectorTable(s.db, dimensions); err != nil {
			return fmt.Errorf("failed to create vector table: %w", err)
		}
		_, err = s.db.Exec(`
			INSERT INTO index_meta (id, provider, model, dimensions, fingerprint)
			VALUES (1, ?, ?, ?, ?)
		`, provider, model, dimensions, fingerprint)
		if err != nil {
			return fmt.Errorf("failed to write index meta: %w", err)
		}
		s.dimensions = dimensions
		log.Debug("Recorded index meta", "provider", provider, "model", model, "dimensions", dimensions)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index meta: %w", err)
	}

	if storedFingerprint != fingerprint {
		log.Warn("Embedding provider changed since the index was built; run 'clear' and re-index",
			"configured", provider+"/"+model)
	}
	s.dimensions = storedDims
	return nil
}

// UpsertDocument replaces all records for path with new records built
// from chunks. Replacement, not merge: stale chunks from a shrunken
// document never survive. The mtime marker is written only after the
// last chunk lands, so a document interrupted mid-embed keeps reading
// stale and is retried on the next pass.
func (s *SQLiteStore) UpsertDocument(ctx context.Context, path string, chunks []vault.Chunk, mtime int64, embed EmbedFunc) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deleteRecords(path); err != nil {
		return 0, err
	}

	inserted := 0
	for _, chunk := range chunks {
		vector, err := embed(ctx, chunk.Text)
		if err != nil {
			// Partial inserts for this document are acceptable; the
			// mtime marker for the remaining chunks was never written,
			// so the next freshness check reports stale.
			return inserted, fmt.Errorf("failed to embed chunk %d: %w", chunk.ChunkIndex, err)
		}
		if len(vector) == 0 {
			log.Warn("Empty embedding, skipping chunk", "path", path, "chunk", chunk.ChunkIndex)
			continue
		}
		if s.dimensions > 0 && len(vector) != s.dimensions {
			return inserted, fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(vector), s.dimensions)
		}

		// Inserted with a zero mtime; finalized below.
		result, err := s.db.Exec(`
			INSERT INTO records (path, chunk_index, heading, text, mtime)
			VALUES (?, ?, ?, ?, 0)
		`, path, chunk.ChunkIndex, chunk.Heading, chunk.Text)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert record for chunk %d: %w", chunk.ChunkIndex, err)
		}

		recordID, _ := result.LastInsertId()

		_, err = s.db.Exec(`
			INSERT INTO record_vectors (record_id, embedding)
			VALUES (?, ?)
		`, recordID, serializeEmbedding(vector))
		if err != nil {
			return inserted, fmt.Errorf("failed to insert vector for chunk %d: %w", chunk.ChunkIndex, err)
		}

		inserted++
	}

	if _, err := s.db.Exec("UPDATE records SET mtime = ? WHERE path = ?", mtime, path); err != nil {
		return inserted, fmt.Errorf("failed to write mtime marker: %w", err)
	}

	log.Debug("Upserted document", "path", path, "records", inserted)
	return inserted, nil
}

// RemoveDocument deletes all records for path. No-op if none exist.
func (s *SQLiteStore) RemoveDocument(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteRecords(path)
}

// deleteRecords removes all records and vectors for path. Caller holds
// the lock.
func (s *SQLiteStore) deleteRecords(path string) error {
	// The vector table only exists after EnsureMeta; skip it otherwise.
	if s.dimensions > 0 {
		_, err := s.db.Exec(`
			DELETE FROM record_vectors WHERE record_id IN (
				SELECT id FROM records WHERE path = ?
			)
		`, path)
		if err != nil {
			return fmt.Errorf("failed to delete vectors: %w", err)
		}
	}

	if _, err := s.db.Exec("DELETE FROM records WHERE path = ?", path); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}

	return nil
}

// Clear drops and recreates the empty index, meta included. Used when
// the embedding provider or model changes.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drops := []string{
		"DROP TABLE IF EXISTS record_vectors",
		"DROP TABLE IF EXISTS records",
		"DROP TABLE IF EXISTS index_meta",
	}
	for _, stmt := range drops {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}

	if _, err := s.db.Exec(indexMetaTable); err != nil {
		return fmt.Errorf("failed to recreate index_meta table: %w", err)
	}
	if _, err := s.db.Exec(recordsTable); err != nil {
		return fmt.Errorf("failed to recreate records table: %w", err)
	}

	s.dimensions = 0
	log.Debug("Cleared index")
	return nil
}

// Query performs a vector similarity search with optional document
// exclusion.
func (s *SQLiteStore) Query(ctx context.Context, vector []float32, topK int, excludePath string) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 {
		return nil, nil
	}
	if s.dimensions == 0 {
		return nil, nil // Empty index, nothing recorded yet
	}
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(vector), s.dimensions)
	}

	queryBlob := serializeEmbedding(vector)

	// sqlite-vec applies filters after k results are selected from the
	// vector index, so over-fetch beyond topK and let the SQL LIMIT
	// enforce the final count. Without the margin an excluded document
	// contributing many near matches would under-fill the results.
	kForVec := topK * 10
	if kForVec > 1000 {
		kForVec = 1000
	}

	query := `
		SELECT r.id, r.path, r.chunk_index, r.heading, r.text, r.mtime, rv.distance
		FROM record_vectors rv
		JOIN records r ON r.id = rv.record_id
		WHERE rv.embedding MATCH ?
			AND k = ?
	`
	args := []any{queryBlob, kForVec}
	if excludePath != "" {
		query += "			AND r.path != ?\n"
		args = append(args, excludePath)
	}
	query += `
		ORDER BY rv.distance ASC
		LIMIT ?
	`
	args = append(args, topK)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(
			&m.Record.ID, &m.Record.Path, &m.Record.ChunkIndex,
			&m.Record.Heading, &m.Record.Text, &m.Record.Mtime,
			&m.Distance,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Score = 1 - m.Distance
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// IsFresh reports whether path has records derived from exactly the
// given mtime. Any drift, backward included, is stale. Records left by
// an interrupted upsert hold a zero mtime and never read fresh.
func (s *SQLiteStore) IsFresh(path string, mtime int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stored int64
	err := s.db.QueryRow("SELECT mtime FROM records WHERE path = ? LIMIT 1", path).Scan(&stored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check freshness: %w", err)
	}

	return stored == mtime, nil
}

// ListRecords returns the records for one document in chunk order.
func (s *SQLiteStore) ListRecords(path string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, path, chunk_index, heading, text, mtime
		FROM records WHERE path = ? ORDER BY chunk_index
	`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Path, &r.ChunkIndex, &r.Heading, &r.Text, &r.Mtime); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Stats returns index statistics.
func (s *SQLiteStore) Stats() (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	err := s.db.QueryRow("SELECT COUNT(*), COUNT(DISTINCT path) FROM records").
		Scan(&stats.TotalRecords, &stats.Documents)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return &stats, nil
}

// serializeEmbedding converts a float32 slice to bytes for sqlite-vec.
func serializeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
