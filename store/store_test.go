package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snapcheck/snaperr"
)

func testIdentity(seq int) Identity {
	return Identity{
		TestFile: "/src/project/user_test.go",
		TestName: "TestUser",
		Sequence: seq,
		Format:   "txt",
	}
}

// createTestSQLite opens a fresh database in a temp directory.
func createTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshots.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// backends runs fn against both store implementations.
func backends(t *testing.T, fn func(t *testing.T, s Catalog)) {
	t.Run("file", func(t *testing.T) {
		fn(t, NewFileStore(t.TempDir()))
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, createTestSQLite(t))
	})
}

// =============================================================================
// Identity keys
// =============================================================================

func TestIdentity_Key(t *testing.T) {
	tests := []struct {
		name     string
		id       Identity
		expected string
	}{
		{"unnamed first", testIdentity(1), "user_test/TestUser.1.txt"},
		{"unnamed second", testIdentity(2), "user_test/TestUser.2.txt"},
		{"named first", Identity{TestFile: "user_test.go", TestName: "TestUser", SnapshotName: "json", Sequence: 1, Format: "json"}, "user_test/TestUser.json.json"},
		{"named second", Identity{TestFile: "user_test.go", TestName: "TestUser", SnapshotName: "json", Sequence: 2, Format: "json"}, "user_test/TestUser.json.2.json"},
		{"subtest", Identity{TestFile: "a_test.go", TestName: "TestA/with space", Sequence: 1, Format: "txt"}, "a_test/TestA-with-space.1.txt"},
		{"actual", testIdentity(1).Actual(), "user_test/TestUser.1.actual.txt"},
		{"artifact", testIdentity(1).Artifact("difference", "patch"), "user_test/TestUser.1.actual-difference.patch"},
		{"unnamed artifact", testIdentity(3).Artifact("", "png"), "user_test/TestUser.3.actual-artifact.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.id.Key())
		})
	}
}

func TestIdentity_Validate(t *testing.T) {
	assert.NoError(t, testIdentity(1).Validate())
	assert.Error(t, testIdentity(0).Validate())

	id := testIdentity(1)
	id.TestName = "//"
	assert.Error(t, id.Validate())

	id = testIdentity(1)
	id.Format = "../x"
	assert.Error(t, id.Validate())

	for _, name := range []string{"1", " 2 ", "!!"} {
		id = testIdentity(1)
		id.SnapshotName = name
		assert.Error(t, id.Validate(), "name %q", name)
	}
	id = testIdentity(1)
	id.SnapshotName = "v2"
	assert.NoError(t, id.Validate())
}

func TestStoredName(t *testing.T) {
	assert.Equal(t, "a-b", StoredName("a b"))
	assert.Equal(t, StoredName("a b"), StoredName("a-b"))
	assert.Equal(t, "json", StoredName("json"))
}

func TestReferenceKey(t *testing.T) {
	ref, ok := ReferenceKey("user_test/TestUser.1.actual.txt")
	require.True(t, ok)
	assert.Equal(t, "user_test/TestUser.1.txt", ref)

	ref, ok = ReferenceKey("user_test/TestUser.json.2.actual.json")
	require.True(t, ok)
	assert.Equal(t, "user_test/TestUser.json.2.json", ref)

	_, ok = ReferenceKey("user_test/TestUser.1.txt")
	assert.False(t, ok)
	_, ok = ReferenceKey("user_test/TestUser.1.actual-difference.patch")
	assert.False(t, ok)
}

func TestFailureKeys(t *testing.T) {
	assert.True(t, IsFailureKey("d/TestUser.1.actual.txt"))
	assert.True(t, IsFailureKey("d/TestUser.1.actual-difference.patch"))
	assert.False(t, IsFailureKey("d/TestUser.1.txt"))
	assert.False(t, IsFailureKey("d/TestUser.actual.txt"), "a snapshot named actual is a reference")

	assert.Equal(t, "d/TestUser.1.actual-", ArtifactPrefix("d/TestUser.1.actual.txt"))
	assert.True(t, IsActualKey("d/TestUser.1.actual.txt"))
}

// =============================================================================
// Store contract
// =============================================================================

func TestStore_SaveLoadExists(t *testing.T) {
	backends(t, func(t *testing.T, s Catalog) {
		ctx := context.Background()
		id := testIdentity(1)

		ok, err := s.Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Save(ctx, id, []byte("hello")))

		ok, err = s.Exists(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok)

		data, err := s.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))

		require.NoError(t, s.Save(ctx, id, []byte("replaced")))
		data, err = s.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "replaced", string(data))
	})
}

func TestStore_LoadMissing(t *testing.T) {
	backends(t, func(t *testing.T, s Catalog) {
		_, err := s.Load(context.Background(), testIdentity(9))
		require.Error(t, err)
		assert.True(t, snaperr.IsStoreIO(err))
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})
}

func TestStore_EmptyData(t *testing.T) {
	backends(t, func(t *testing.T, s Catalog) {
		ctx := context.Background()
		require.NoError(t, s.Save(ctx, testIdentity(1), nil))
		data, err := s.Load(ctx, testIdentity(1))
		require.NoError(t, err)
		assert.Empty(t, data)
	})
}

func TestStore_ListAndRemove(t *testing.T) {
	backends(t, func(t *testing.T, s Catalog) {
		ctx := context.Background()
		require.NoError(t, s.Save(ctx, testIdentity(2), []byte("b")))
		require.NoError(t, s.Save(ctx, testIdentity(1), []byte("a")))
		require.NoError(t, s.Save(ctx, testIdentity(1).Actual(), []byte("a2")))
		require.NoError(t, s.Write(ctx, "other_test/TestOther.1.txt", []byte("o")))

		entries, err := s.List(ctx, "user_test/")
		require.NoError(t, err)
		keys := make([]string, len(entries))
		for i, e := range entries {
			keys[i] = e.Key
		}
		assert.Equal(t, []string{
			"user_test/TestUser.1.actual.txt",
			"user_test/TestUser.1.txt",
			"user_test/TestUser.2.txt",
		}, keys)
		assert.True(t, entries[0].Failed())
		assert.Equal(t, int64(2), entries[0].Size)

		all, err := s.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 4)

		require.NoError(t, s.Remove(ctx, "user_test/TestUser.2.txt"))
		require.NoError(t, s.Remove(ctx, "user_test/TestUser.2.txt"), "removing twice is fine")

		ok, err := s.Exists(ctx, testIdentity(2))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStore_ConcurrentSavesSamePath(t *testing.T) {
	backends(t, func(t *testing.T, s Catalog) {
		ctx := context.Background()
		id := testIdentity(1)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Save(ctx, id, []byte(fmt.Sprintf("writer-%02d", i))))
			}()
		}
		wg.Wait()

		data, err := s.Load(ctx, id)
		require.NoError(t, err)
		assert.Regexp(t, `^writer-\d\d$`, string(data))
	})
}

// =============================================================================
// FileStore specifics
// =============================================================================

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	require.NoError(t, s.Save(context.Background(), testIdentity(1), []byte("x")))

	_, err := os.Stat(filepath.Join(dir, "user_test", "TestUser.1.txt"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "user_test"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStore_ListMissingRoot(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent"))
	entries, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewFileStore(t.TempDir())
	assert.ErrorIs(t, s.Save(ctx, testIdentity(1), []byte("x")), context.Canceled)
}

func TestPathLocks_Released(t *testing.T) {
	p := newPathLocks()
	unlock := p.lock("a")
	assert.Equal(t, 1, p.size())
	unlock()
	assert.Equal(t, 0, p.size())
}

// =============================================================================
// Digest
// =============================================================================

func TestDigest(t *testing.T) {
	a := Digest([]byte("hello"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Digest([]byte("hello")))
	assert.NotEqual(t, a, Digest([]byte("hello!")))
	assert.Equal(t, a[:12], ShortDigest([]byte("hello")))
}

// =============================================================================
// SQLite specifics
// =============================================================================

func TestOpenSQLite_Pragmas(t *testing.T) {
	s := createTestSQLite(t)
	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("user_version", fmt.Sprint(currentSchemaVersion)); err != nil {
		t.Error(err)
	}
}

func TestOpenSQLite_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	for i := 0; i < 3; i++ {
		s, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("OpenSQLite() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestSQLite_Journal(t *testing.T) {
	s := createTestSQLite(t)
	ctx := context.Background()
	run := NewRunID()
	key := testIdentity(1).Key()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, JournalEntry{RunID: run, Key: key, Outcome: "recorded", RecordedAt: base}))
	require.NoError(t, s.Append(ctx, JournalEntry{RunID: run, Key: key, Outcome: "passed", RecordedAt: base.Add(time.Second)}))
	require.NoError(t, s.Append(ctx, JournalEntry{RunID: run, Key: "other", Outcome: "failed", Message: "diff"}))

	history, err := s.History(ctx, key, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "passed", history[0].Outcome)
	assert.Equal(t, "recorded", history[1].Outcome)
	assert.Equal(t, base, history[1].RecordedAt)
	assert.Greater(t, history[0].Seq, history[1].Seq)

	limited, err := s.History(ctx, key, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run, runs[0].RunID)
	assert.Equal(t, map[string]int{"recorded": 1, "passed": 1, "failed": 1}, runs[0].Outcomes)
}

func TestSQLite_JournalRejectsBadRunID(t *testing.T) {
	s := createTestSQLite(t)
	assert.Error(t, s.Append(context.Background(), JournalEntry{Key: "k", Outcome: "passed"}))
	assert.Error(t, s.Append(context.Background(), JournalEntry{RunID: "not-a-uuid", Key: "k", Outcome: "passed"}))
}
