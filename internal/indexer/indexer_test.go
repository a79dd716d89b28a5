package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aadityaincode/Deep-Notes/internal/embeddings"
	"github.com/aadityaincode/Deep-Notes/internal/store"
	"github.com/aadityaincode/Deep-Notes/internal/vault"
)

// mockEmbedder counts embedding calls and returns deterministic
// fixed-dimension vectors.
type mockEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  map[string]error // substring -> error to return
	block chan struct{}    // when set, Embed waits until closed
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	fail := m.fail
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	for substr, err := range fail {
		if substr != "" && strings.Contains(text, substr) {
			return nil, err
		}
	}
	return []float32{1, 0, 0, 0}, nil
}

func (m *mockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return m.Embed(ctx, text)
}

func (m *mockEmbedder) Dimensions() int               { return 4 }
func (m *mockEmbedder) Provider() embeddings.Provider { return embeddings.ProviderOllama }
func (m *mockEmbedder) ModelName() string             { return "mock-model" }

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// setupIndexer builds an Indexer over a temp vault and a real store.
func setupIndexer(t *testing.T, notes map[string]string) (*Indexer, *mockEmbedder, *vault.Vault) {
	t.Helper()

	root := t.TempDir()
	for rel, content := range notes {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	v, err := vault.Open(vault.Options{Root: root})
	require.NoError(t, err)

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	emb := &mockEmbedder{}
	return New(st, emb, v), emb, v
}

const noteBody = `# Heading

This paragraph carries enough words to clear the minimum chunk length
after whitespace collapsing, so the document indexes as one record.
`

func TestIndexAll(t *testing.T) {
	ix, emb, _ := setupIndexer(t, map[string]string{
		"alpha.md": noteBody,
		"beta.md":  noteBody,
		"gamma.md": noteBody,
	})

	sum, err := ix.IndexAll(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Indexed)
	assert.Equal(t, 0, sum.Skipped)
	assert.Equal(t, 0, sum.Failed)
	assert.Equal(t, 3, emb.callCount())

	stats, err := ix.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Documents)
}

func TestIndexAllSkipsFreshDocuments(t *testing.T) {
	ix, emb, _ := setupIndexer(t, map[string]string{
		"alpha.md": noteBody,
		"beta.md":  noteBody,
	})
	ctx := context.Background()

	_, err := ix.IndexAll(ctx, Options{})
	require.NoError(t, err)
	firstCalls := emb.callCount()

	// Nothing changed on disk: the second pass skips every document
	// without a single embedding call.
	sum, err := ix.IndexAll(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Indexed)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, firstCalls, emb.callCount())
}

func TestIndexAllForce(t *testing.T) {
	ix, emb, _ := setupIndexer(t, map[string]string{"alpha.md": noteBody})
	ctx := context.Background()

	_, err := ix.IndexAll(ctx, Options{})
	require.NoError(t, err)

	sum, err := ix.IndexAll(ctx, Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Indexed)
	assert.Equal(t, 0, sum.Skipped)
	assert.Equal(t, 2, emb.callCount())
}

func TestIndexAllReindexesModified(t *testing.T) {
	ix, _, v := setupIndexer(t, map[string]string{
		"alpha.md": noteBody,
		"beta.md":  noteBody,
	})
	ctx := context.Background()

	_, err := ix.IndexAll(ctx, Options{})
	require.NoError(t, err)

	// Touch one document with a distinct mtime.
	path := filepath.Join(v.Root(), "alpha.md")
	future := time.Now().Add(5 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	sum, err := ix.IndexAll(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Indexed)
	assert.Equal(t, 1, sum.Skipped)
}

func TestIndexAllContinuesOnDocumentFailure(t *testing.T) {
	ix, emb, _ := setupIndexer(t, map[string]string{
		"good.md":   noteBody,
		"broken.md": "# Broken\n\nThis note mentions POISON and its embedding request fails hard.\n",
		"other.md":  noteBody,
	})
	emb.fail = map[string]error{"POISON": errors.New("provider exploded")}

	sum, err := ix.IndexAll(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Indexed)
	assert.Equal(t, 1, sum.Failed)
}

func TestIndexAllRetriesFailedDocuments(t *testing.T) {
	// Two paragraphs too long to pack together, so the document chunks
	// in two and the second embed call can fail on its own.
	filler := strings.Repeat("notes about the long weekend trip ", 16)
	content := "# Flaky\n\n" + filler + "\n\n" + "POISON " + filler + "\n"

	ix, emb, _ := setupIndexer(t, map[string]string{"flaky.md": content})
	ctx := context.Background()

	boom := errors.New("provider down")
	emb.fail = map[string]error{"POISON": boom}

	sum, err := ix.IndexAll(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)

	stats, err := ix.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalRecords)

	// The provider recovers. The half-written document must not read
	// fresh; the next pass re-indexes it in full.
	emb.mu.Lock()
	emb.fail = nil
	emb.mu.Unlock()

	sum, err = ix.IndexAll(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Indexed)
	assert.Equal(t, 0, sum.Skipped)

	stats, err = ix.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalRecords)
}

func TestIndexAllProgress(t *testing.T) {
	notes := make(map[string]string, 25)
	for i := 0; i < 25; i++ {
		notes[fmt.Sprintf("note-%02d.md", i)] = noteBody
	}
	ix, _, _ := setupIndexer(t, notes)

	var reports []int
	_, err := ix.IndexAll(context.Background(), Options{
		OnProgress: func(processed, total int, current string) {
			assert.Equal(t, 25, total)
			reports = append(reports, processed)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 25}, reports)
}

func TestIndexAllRejectsConcurrentPass(t *testing.T) {
	ix, emb, _ := setupIndexer(t, map[string]string{"alpha.md": noteBody})

	block := make(chan struct{})
	emb.block = block

	started := make(chan struct{})
	var firstErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		close(started)
		_, firstErr = ix.IndexAll(context.Background(), Options{})
	}()

	<-started
	// Wait until the first pass is inside the embedding call.
	require.Eventually(t, func() bool {
		return emb.callCount() > 0
	}, 2*time.Second, 10*time.Millisecond)

	_, err := ix.IndexAll(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrIndexingInProgress)

	close(block)
	wg.Wait()
	require.NoError(t, firstErr)

	// Once the first pass finishes, a new pass is accepted.
	emb.mu.Lock()
	emb.block = nil
	emb.mu.Unlock()
	_, err = ix.IndexAll(context.Background(), Options{})
	assert.NoError(t, err)
}

func TestIndexAllContextCancellation(t *testing.T) {
	ix, _, _ := setupIndexer(t, map[string]string{
		"alpha.md": noteBody,
		"beta.md":  noteBody,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ix.IndexAll(ctx, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexOne(t *testing.T) {
	ix, emb, v := setupIndexer(t, map[string]string{"alpha.md": noteBody})
	ctx := context.Background()

	docs, err := v.Documents()
	require.NoError(t, err)
	require.Len(t, docs, 1)

	require.NoError(t, ix.IndexOne(ctx, docs[0]))
	assert.Equal(t, 1, emb.callCount())

	// A fresh document costs zero embedding calls.
	require.NoError(t, ix.IndexOne(ctx, docs[0]))
	assert.Equal(t, 1, emb.callCount())
}

func TestIndexOnePropagatesErrors(t *testing.T) {
	ix, emb, v := setupIndexer(t, map[string]string{
		"broken.md": "# Broken\n\nThis note mentions POISON and its embedding request fails hard.\n",
	})
	boom := errors.New("provider exploded")
	emb.fail = map[string]error{"POISON": boom}

	docs, err := v.Documents()
	require.NoError(t, err)
	require.Len(t, docs, 1)

	err = ix.IndexOne(context.Background(), docs[0])
	assert.ErrorIs(t, err, boom)
}

// fakeNotifier hands change events straight to its subscribers.
type fakeNotifier struct {
	subscribers []func(vault.Change)
}

func (n *fakeNotifier) Subscribe(fn func(vault.Change)) {
	n.subscribers = append(n.subscribers, fn)
}

func (n *fakeNotifier) emit(c vault.Change) {
	for _, fn := range n.subscribers {
		fn(c)
	}
}

func TestFollow(t *testing.T) {
	ix, emb, v := setupIndexer(t, map[string]string{"alpha.md": noteBody})
	ctx := context.Background()

	n := &fakeNotifier{}
	ix.Follow(ctx, n, v.Stat)

	path := filepath.Join(v.Root(), "alpha.md")
	n.emit(vault.Change{Path: path, Kind: vault.ChangeWrite})

	stats, err := ix.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 1, emb.callCount())

	// A repeated write for an unchanged document is free.
	n.emit(vault.Change{Path: path, Kind: vault.ChangeWrite})
	assert.Equal(t, 1, emb.callCount())

	n.emit(vault.Change{Path: path, Kind: vault.ChangeRemove})
	stats, err = ix.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalRecords)

	// A write for a path that already vanished is ignored.
	n.emit(vault.Change{Path: filepath.Join(v.Root(), "gone.md"), Kind: vault.ChangeWrite})
	stats, err = ix.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalRecords)
}

func TestRemove(t *testing.T) {
	ix, _, v := setupIndexer(t, map[string]string{"alpha.md": noteBody})
	ctx := context.Background()

	_, err := ix.IndexAll(ctx, Options{})
	require.NoError(t, err)

	path := filepath.Join(v.Root(), "alpha.md")
	require.NoError(t, ix.Remove(path))

	stats, err := ix.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalRecords)
}
