package cli

import (
	"fmt"

	"github.com/aadityaincode/Deep-Notes/internal/config"
	"github.com/aadityaincode/Deep-Notes/internal/embeddings"
	"github.com/aadityaincode/Deep-Notes/internal/store"
	"github.com/aadityaincode/Deep-Notes/internal/vault"
)

// openStore opens the index store at the configured location.
func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}
	return st, nil
}

// openVault opens the vault at pathArg, falling back to the configured
// vault path.
func openVault(cfg *config.Config, pathArg string) (*vault.Vault, error) {
	path := pathArg
	if path == "" {
		path = cfg.Vault.Path
	}
	if path == "" {
		path = "."
	}

	v, err := vault.Open(vault.Options{
		Root:           path,
		Extensions:     cfg.Vault.Extensions,
		IgnorePatterns: cfg.Vault.Ignore,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	return v, nil
}

// newEmbedder creates the configured embedding service.
func newEmbedder(cfg *config.Config) (embeddings.Service, error) {
	emb, err := embeddings.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding service: %w", err)
	}
	return emb, nil
}
