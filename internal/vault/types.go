// Package vault provides access to the note vault: document
// enumeration and the heading-aware chunking used for embedding.
package vault

// Document is a note in the vault as seen by the indexer.
type Document struct {
	Path    string // Absolute path to the note file
	RelPath string // Path relative to the vault root
	Mtime   int64  // Last modification time, Unix milliseconds
}

// Chunk is a heading-scoped slice of a document, the unit of embedding.
// Chunks are transient; they are only persisted as store records.
type Chunk struct {
	Text       string // Chunk text, trimmed
	Path       string // Path of the originating document
	ChunkIndex int    // Zero-based, dense, per-document position
	Heading    string // Section heading the chunk falls under
}

// Source is the document source the indexer consumes. Vault implements
// it; tests substitute in-memory sources.
type Source interface {
	// Documents enumerates every indexable document in the vault.
	Documents() ([]Document, error)

	// Read returns the current content of the document at path.
	Read(path string) (string, error)
}

// ChangeKind classifies a document change event.
type ChangeKind int

const (
	// ChangeWrite means the document was created or its content changed.
	ChangeWrite ChangeKind = iota
	// ChangeRemove means the document was deleted or renamed away.
	ChangeRemove
)

// Change is a document change event delivered by a Notifier.
type Change struct {
	Path string
	Kind ChangeKind
}

// Notifier delivers document change events to a subscriber. The
// fsnotify-backed watcher implements it; the core never depends on a
// specific host file-watching mechanism.
type Notifier interface {
	// Subscribe registers fn to be called for each document change.
	Subscribe(fn func(Change))
}
