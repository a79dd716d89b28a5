// Package indexer drives freshness-aware indexing of the vault into
// the vector store.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/aadityaincode/Deep-Notes/internal/embeddings"
	"github.com/aadityaincode/Deep-Notes/internal/store"
	"github.com/aadityaincode/Deep-Notes/internal/vault"
)

// ErrIndexingInProgress is returned when IndexAll is invoked while a
// previous full-vault pass is still running. The second call is a
// no-op; it neither queues nor interrupts the first.
var ErrIndexingInProgress = errors.New("indexing already in progress")

// Orchestrator states. Transitions happen under compare-and-swap so
// concurrent entry points cannot both start a pass.
const (
	stateIdle int32 = iota
	stateIndexing
)

// progressInterval is how many processed documents between progress
// notifications.
const progressInterval = 10

// Summary aggregates the outcome of a full-vault pass.
type Summary struct {
	Indexed int
	Skipped int
	Failed  int
}

// ProgressFunc is called periodically during a full-vault pass.
type ProgressFunc func(processed, total int, current string)

// Options configures a full-vault pass.
type Options struct {
	// Force bypasses the freshness check and re-indexes everything.
	Force bool

	// OnProgress is called after every tenth processed document and at
	// completion.
	OnProgress ProgressFunc
}

// Indexer orchestrates indexing. It holds no persistent state of its
// own beyond the in-progress flag; the store owns all records.
type Indexer struct {
	store    store.Store
	embedder embeddings.Service
	source   vault.Source
	state    atomic.Int32
}

// New creates a new Indexer over the given store, embedder, and
// document source.
func New(st store.Store, emb embeddings.Service, src vault.Source) *Indexer {
	return &Indexer{
		store:    st,
		embedder: emb,
		source:   src,
	}
}

// IndexAll runs a full-vault indexing pass. Fresh documents are
// skipped, failed documents are counted and logged without aborting the
// pass. Store-level failures are fatal for the pass and propagate.
func (ix *Indexer) IndexAll(ctx context.Context, opts Options) (Summary, error) {
	if !ix.state.CompareAndSwap(stateIdle, stateIndexing) {
		log.Info("Indexing already in progress, ignoring request")
		return Summary{}, ErrIndexingInProgress
	}
	defer ix.state.Store(stateIdle)

	if err := ix.ensureMeta(); err != nil {
		return Summary{}, err
	}

	docs, err := ix.source.Documents()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to enumerate documents: %w", err)
	}

	log.Info("Found documents to index", "count", len(docs))

	var sum Summary
	start := time.Now()
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		fresh := false
		if !opts.Force {
			fresh, err = ix.store.IsFresh(doc.Path, doc.Mtime)
			if err != nil {
				return sum, fmt.Errorf("failed to check freshness: %w", err)
			}
		}

		switch {
		case fresh:
			sum.Skipped++
		default:
			if err := ix.indexDocument(ctx, doc); err != nil {
				log.Warn("Failed to index document", "path", doc.RelPath, "error", err)
				sum.Failed++
			} else {
				sum.Indexed++
			}
		}

		processed := i + 1
		if opts.OnProgress != nil && (processed%progressInterval == 0 || processed == len(docs)) {
			opts.OnProgress(processed, len(docs), doc.RelPath)
		}
	}

	log.Info("Indexing complete",
		"indexed", sum.Indexed,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return sum, nil
}

// IndexOne indexes a single document, used opportunistically right
// before a document serves as a query source or when a change
// notification arrives. Fresh documents cost zero embedding calls.
// Errors propagate to the caller; there are no counters to update.
func (ix *Indexer) IndexOne(ctx context.Context, doc vault.Document) error {
	if err := ix.ensureMeta(); err != nil {
		return err
	}

	fresh, err := ix.store.IsFresh(doc.Path, doc.Mtime)
	if err != nil {
		return fmt.Errorf("failed to check freshness: %w", err)
	}
	if fresh {
		log.Debug("Document unchanged, skipping", "path", doc.RelPath)
		return nil
	}

	return ix.indexDocument(ctx, doc)
}

// indexDocument runs the chunk -> embed -> upsert sequence for one
// document.
func (ix *Indexer) indexDocument(ctx context.Context, doc vault.Document) error {
	content, err := ix.source.Read(doc.Path)
	if err != nil {
		return err
	}

	chunks := vault.ChunkDocument(content, doc.Path)

	// An empty chunk set still goes through the upsert so stale
	// records vanish when a document shrinks to nothing.
	inserted, err := ix.store.UpsertDocument(ctx, doc.Path, chunks, doc.Mtime, ix.embedder.Embed)
	if err != nil {
		return err
	}

	log.Debug("Indexed document", "path", doc.RelPath, "records", inserted)
	return nil
}

// ensureMeta records the active provider identity in the store.
func (ix *Indexer) ensureMeta() error {
	return ix.store.EnsureMeta(
		string(ix.embedder.Provider()),
		ix.embedder.ModelName(),
		ix.embedder.Dimensions(),
	)
}

// Follow subscribes the indexer to a change notifier: writes re-index
// the document, removals drop its records. stat resolves a changed
// path to document metadata; a path that vanished before indexing is
// skipped quietly, the removal event for it arrives on its own.
func (ix *Indexer) Follow(ctx context.Context, n vault.Notifier, stat func(path string) (vault.Document, error)) {
	n.Subscribe(func(change vault.Change) {
		switch change.Kind {
		case vault.ChangeRemove:
			if err := ix.store.RemoveDocument(change.Path); err != nil {
				log.Error("Failed to remove document from index", "path", change.Path, "error", err)
				return
			}
			log.Info("Removed from index", "path", change.Path)
		case vault.ChangeWrite:
			doc, err := stat(change.Path)
			if err != nil {
				log.Debug("Changed document vanished before indexing", "path", change.Path)
				return
			}
			if err := ix.IndexOne(ctx, doc); err != nil {
				log.Error("Failed to index changed document", "path", change.Path, "error", err)
				return
			}
			log.Info("Indexed", "path", doc.RelPath)
		}
	})
}

// Remove deletes all records for path.
func (ix *Indexer) Remove(path string) error {
	return ix.store.RemoveDocument(path)
}

// Clear drops and recreates the empty index.
func (ix *Indexer) Clear() error {
	return ix.store.Clear()
}

// Stats returns index statistics.
func (ix *Indexer) Stats() (*store.Stats, error) {
	return ix.store.Stats()
}
