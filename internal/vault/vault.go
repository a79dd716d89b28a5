package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	gitignore "github.com/sabhiram/go-gitignore"
)

// Vault is a directory of note documents. It implements Source.
type Vault struct {
	root    string
	ignorer *gitignore.GitIgnore
	extSet  map[string]bool
}

// Options configures a Vault.
type Options struct {
	// Root is the vault directory.
	Root string

	// Extensions limits enumeration to these file extensions.
	// Empty means the defaults (.md, .txt).
	Extensions []string

	// IgnorePatterns are gitignore-style patterns to exclude.
	IgnorePatterns []string
}

// defaultExtensions are the note formats a vault contains.
var defaultExtensions = []string{".md", ".txt"}

// Open opens the vault rooted at opts.Root.
func Open(opts Options) (*Vault, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("vault root does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root is not a directory: %s", root)
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = defaultExtensions
	}
	extSet := make(map[string]bool, len(exts))
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extSet[strings.ToLower(ext)] = true
	}

	return &Vault{
		root:    root,
		ignorer: gitignore.CompileIgnoreLines(opts.IgnorePatterns...),
		extSet:  extSet,
	}, nil
}

// Root returns the absolute vault root directory.
func (v *Vault) Root() string {
	return v.root
}

// Documents enumerates every indexable document in the vault.
func (v *Vault) Documents() ([]Document, error) {
	var docs []Document

	err := filepath.WalkDir(v.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Debug("Error accessing path", "path", path, "error", err)
			return nil
		}

		relPath, err := filepath.Rel(v.root, path)
		if err != nil {
			relPath = path
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && relPath != "." {
				return filepath.SkipDir
			}
			if v.ignorer.MatchesPath(relPath + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !v.extSet[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || v.ignorer.MatchesPath(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			log.Debug("Failed to stat document", "path", path, "error", err)
			return nil
		}

		docs = append(docs, Document{
			Path:    path,
			RelPath: relPath,
			Mtime:   info.ModTime().UnixMilli(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk vault: %w", err)
	}

	return docs, nil
}

// Read returns the current content of the document at path.
func (v *Vault) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return string(data), nil
}

// Stat returns the document metadata for a single path, used when a
// change notification arrives for a file not seen by enumeration yet.
func (v *Vault) Stat(path string) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to stat document: %w", err)
	}
	relPath, err := filepath.Rel(v.root, path)
	if err != nil {
		relPath = path
	}
	return Document{
		Path:    path,
		RelPath: relPath,
		Mtime:   info.ModTime().UnixMilli(),
	}, nil
}

// Contains reports whether path is an indexable note inside the vault.
func (v *Vault) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if !strings.HasPrefix(abs, v.root+string(filepath.Separator)) {
		return false
	}
	if !v.extSet[strings.ToLower(filepath.Ext(abs))] {
		return false
	}
	relPath, err := filepath.Rel(v.root, abs)
	if err != nil {
		return false
	}
	return !v.ignorer.MatchesPath(relPath)
}

// Source is implemented by *Vault.
var _ Source = (*Vault)(nil)
