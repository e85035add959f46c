// Package store persists snapshot bytes.
//
// Two backends share one contract:
//   - FileStore keeps one file per snapshot under a directory next to the
//     tests, so references are reviewed and versioned like source.
//   - SQLiteStore keeps every snapshot in a single database file and also
//     records a journal of verification runs.
//
// Both address snapshots by Identity.Key, so a key listed by one backend
// means the same snapshot in the other.
package store

import (
	"context"
	"time"
)

// Store is the contract the verifier needs.
type Store interface {
	// Exists reports whether a snapshot is stored for id.
	Exists(ctx context.Context, id Identity) (bool, error)

	// Load returns the stored bytes for id. A missing snapshot is a
	// STORE_IO_FAILURE wrapping fs.ErrNotExist.
	Load(ctx context.Context, id Identity) ([]byte, error)

	// Save stores data for id, replacing any previous bytes. Concurrent
	// saves to the same id never leave a partial file behind.
	Save(ctx context.Context, id Identity, data []byte) error
}

// Catalog is a Store that can also be browsed by key, as the CLI does.
type Catalog interface {
	Store

	// List returns entries whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Entry, error)

	// Read returns the bytes stored under key.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores data under key.
	Write(ctx context.Context, key string, data []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Entry describes one stored snapshot.
type Entry struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Failed reports whether the entry holds failing bytes or a diff artifact.
func (e Entry) Failed() bool {
	return IsFailureKey(e.Key)
}
