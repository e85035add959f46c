package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/snapcheck/store"
)

// backend is an opened snapshot store.
type backend struct {
	store.Catalog

	// sqlite is set when the store is a database; it keeps the journal.
	sqlite *store.SQLiteStore
}

func (b *backend) Close() error {
	if b.sqlite != nil {
		return b.sqlite.Close()
	}
	return nil
}

// isDatabase reports whether path names a SQLite database rather than a
// snapshot directory.
func isDatabase(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// openBackend opens an existing store. With create set, a missing store is
// created instead.
func openBackend(path string, create bool) (*backend, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if !create {
			return nil, fmt.Errorf("store %s: %w", path, fs.ErrNotExist)
		}
	case err != nil:
		return nil, fmt.Errorf("store %s: %w", path, err)
	case isDatabase(path) && info.IsDir():
		return nil, fmt.Errorf("store %s: is a directory", path)
	case !isDatabase(path) && !info.IsDir():
		return nil, fmt.Errorf("store %s: not a directory (use a .db extension for SQLite)", path)
	}

	if isDatabase(path) {
		if create {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("store %s: %w", path, err)
			}
		}
		db, err := store.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return &backend{Catalog: db, sqlite: db}, nil
	}
	return &backend{Catalog: store.NewFileStore(path)}, nil
}

// open opens a store for a command, reporting failures through f.
func (o *RootOptions) open(f *OutputFormatter, path string, create bool) (*backend, error) {
	b, err := openBackend(path, create)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, "store not found", err)
	}
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStoreOpen, "failed to open store", err)
	}
	return b, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// failures returns the actual keys under prefix with their reference keys.
func failures(ctx context.Context, c store.Catalog, prefix string) ([]failure, error) {
	entries, err := c.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var out []failure
	for _, e := range entries {
		ref, ok := store.ReferenceKey(e.Key)
		if !ok {
			continue
		}
		out = append(out, failure{Actual: e.Key, Reference: ref})
	}
	return out, nil
}

type failure struct {
	Actual    string
	Reference string
}

// artifacts returns the artifact keys that belong with an actual key.
func artifacts(ctx context.Context, c store.Catalog, actual string) ([]string, error) {
	entries, err := c.List(ctx, store.ArtifactPrefix(actual))
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys, nil
}
