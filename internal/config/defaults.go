package config

import (
	"os"
	"path/filepath"
)

// Default configuration values
const (
	// Embedding defaults
	DefaultEmbeddingProvider = "ollama"
	DefaultOllamaURL         = "http://localhost:11434"
	DefaultOllamaEmbedModel  = "nomic-embed-text"
	DefaultOpenAIEmbedModel  = "text-embedding-3-small"

	// Search defaults
	DefaultTopK = 5

	// Database
	DefaultDBFileName = "index.db"
)

// DefaultVaultExtensions returns the note formats indexed by default.
func DefaultVaultExtensions() []string {
	return []string{".md", ".txt"}
}

// DefaultIgnorePatterns returns the default vault exclude patterns.
func DefaultIgnorePatterns() []string {
	return []string{
		".obsidian/",
		".trash/",
		"templates/",
		"*.excalidraw.md",
	}
}

// DefaultConfigDir returns the default configuration directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/deep-notes"
	}
	return filepath.Join(home, ".config", "deep-notes")
}

// DefaultDataDir returns the default data directory path.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".local/share/deep-notes"
	}
	return filepath.Join(home, ".local", "share", "deep-notes")
}

// DefaultDatabasePath returns the default index database file path.
func DefaultDatabasePath() string {
	return filepath.Join(DefaultDataDir(), DefaultDBFileName)
}
