package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/snapcheck/snaperr"
)

// DefaultDir is the snapshot directory, relative to the test file's package.
const DefaultDir = "testdata/__snapshots__"

// tempPrefix marks in-progress writes; List skips them.
const tempPrefix = ".snapcheck-tmp-"

// FileStore stores each snapshot as a file under a root directory.
//
// Writes go to a temporary file in the target directory and are renamed
// into place, so readers see either the old or the new bytes. Writes to the
// same path are serialized.
type FileStore struct {
	root  string
	locks *pathLocks
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir, locks: newPathLocks()}
}

// Root returns the store directory.
func (s *FileStore) Root() string {
	return s.root
}

// Path returns the file path for a key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Exists implements Store.
func (s *FileStore) Exists(ctx context.Context, id Identity) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path := s.Path(id.Key())
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, snaperr.StoreIO("exists", path, err)
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context, id Identity) ([]byte, error) {
	return s.Read(ctx, id.Key())
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, id Identity, data []byte) error {
	return s.Write(ctx, id.Key(), data)
}

// Read implements Catalog.
func (s *FileStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, snaperr.StoreIO("load", path, err)
	}
	return data, nil
}

// Write implements Catalog.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(key)
	unlock := s.locks.lock(path)
	defer unlock()

	if err := writeFileAtomic(path, data); err != nil {
		return snaperr.StoreIO("save", path, err)
	}
	return nil
}

// Remove implements Catalog.
func (s *FileStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(key)
	unlock := s.locks.lock(path)
	defer unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return snaperr.StoreIO("remove", path, err)
	}
	return nil
}

// List implements Catalog. A missing root directory lists as empty.
func (s *FileStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == s.root {
				return filepath.SkipDir
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Key: key, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, snaperr.StoreIO("list", s.root, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
