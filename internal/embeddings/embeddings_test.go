package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aadityaincode/Deep-Notes/internal/config"
)

func TestGetModelDimensions(t *testing.T) {
	assert.Equal(t, 768, GetModelDimensions("nomic-embed-text"))
	assert.Equal(t, 1024, GetModelDimensions("mxbai-embed-large"))
	assert.Equal(t, 1536, GetModelDimensions("text-embedding-3-small"))
	assert.Equal(t, 3072, GetModelDimensions("text-embedding-3-large"))
	assert.Equal(t, 0, GetModelDimensions("some-unknown-model"))
}

func TestNewService(t *testing.T) {
	cfg := config.DefaultConfig()
	svc, err := NewService(cfg)
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, svc.Provider())
	assert.Equal(t, "nomic-embed-text", svc.ModelName())
	assert.Equal(t, 768, svc.Dimensions())
}

func TestNewServiceUnsupportedProvider(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Embeddings.Provider = "anthropic"
	_, err := NewService(cfg)
	assert.ErrorContains(t, err, "unsupported embedding provider")
}

func TestNewOpenAIServiceRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIService("", "text-embedding-3-small", "", 0)
	assert.Error(t, err)
}

func TestNewOpenAIServiceDimensions(t *testing.T) {
	svc, err := NewOpenAIService("sk-test", "text-embedding-3-large", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 3072, svc.Dimensions())

	// Explicit dimensions win over the model table.
	svc, err = NewOpenAIService("sk-test", "text-embedding-3-large", "", 256)
	require.NoError(t, err)
	assert.Equal(t, 256, svc.Dimensions())
}

// newOllamaTestServer fakes the /api/embed endpoint and captures the
// last request body.
func newOllamaTestServer(t *testing.T, embedding []float32) (*httptest.Server, *ollamaEmbedRequest) {
	t.Helper()
	var lastReq ollamaEmbedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastReq))
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{embedding}})
	}))
	t.Cleanup(srv.Close)

	return srv, &lastReq
}

func TestOllamaEmbed(t *testing.T) {
	srv, lastReq := newOllamaTestServer(t, []float32{0.1, 0.2, 0.3, 0.4})

	svc, err := NewOllamaService(srv.URL, "nomic-embed-text")
	require.NoError(t, err)

	vec, err := svc.Embed(context.Background(), "morning pages about gardening")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, vec)

	require.Len(t, lastReq.Input, 1)
	assert.Equal(t, "search_document: morning pages about gardening", lastReq.Input[0])
	assert.Equal(t, "nomic-embed-text", lastReq.Model)

	// Dimensions correct themselves from the actual response.
	assert.Equal(t, 4, svc.Dimensions())
}

func TestOllamaEmbedQueryPrefix(t *testing.T) {
	srv, lastReq := newOllamaTestServer(t, []float32{1, 0})

	svc, err := NewOllamaService(srv.URL, "nomic-embed-text")
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "soil drainage")
	require.NoError(t, err)
	assert.Equal(t, "search_query: soil drainage", lastReq.Input[0])
}

func TestOllamaPrefixesPerModel(t *testing.T) {
	srv, lastReq := newOllamaTestServer(t, []float32{1, 0})

	// mxbai prefixes queries only.
	svc, err := NewOllamaService(srv.URL, "mxbai-embed-large")
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "raised beds")
	require.NoError(t, err)
	assert.Equal(t, "raised beds", lastReq.Input[0])

	_, err = svc.EmbedQuery(context.Background(), "raised beds")
	require.NoError(t, err)
	assert.Equal(t, "Represent this sentence for searching relevant passages: raised beds", lastReq.Input[0])

	// Unknown models get no prefix at all.
	svc, err = NewOllamaService(srv.URL, "some-unknown-model")
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "raised beds")
	require.NoError(t, err)
	assert.Equal(t, "raised beds", lastReq.Input[0])
}

func TestOllamaEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	svc, err := NewOllamaService(srv.URL, "nomic-embed-text")
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "anything")
	assert.ErrorContains(t, err, "status 404")
}

func TestOllamaEmbedEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{})
	}))
	defer srv.Close()

	svc, err := NewOllamaService(srv.URL, "nomic-embed-text")
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "anything")
	assert.ErrorContains(t, err, "no embedding returned")
}
