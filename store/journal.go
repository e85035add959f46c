package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/snapcheck/snaperr"
)

// Journal records the outcome of each verification. Stores that implement
// it receive one entry per assertion.
type Journal interface {
	Append(ctx context.Context, e JournalEntry) error
}

// JournalEntry is one recorded verdict.
type JournalEntry struct {
	// Seq orders entries; assigned by the store.
	Seq int64 `json:"seq"`

	// RunID groups the entries of one test process.
	RunID string `json:"run_id"`

	Key     string `json:"key"`
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`

	// Digest of the bytes that were compared or recorded.
	Digest string `json:"digest,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Append implements Journal. The run is created on its first entry.
func (s *SQLiteStore) Append(ctx context.Context, e JournalEntry) error {
	if e.RunID == "" {
		return fmt.Errorf("append journal entry: empty run id")
	}
	if _, err := uuid.Parse(e.RunID); err != nil {
		return fmt.Errorf("append journal entry: invalid run id %q: %w", e.RunID, err)
	}
	now := s.now().UnixNano()
	if !e.RecordedAt.IsZero() {
		now = e.RecordedAt.UnixNano()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return snaperr.StoreIO("journal", s.path, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, e.RunID, now); err != nil {
		return snaperr.StoreIO("journal", s.path, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO verdicts (run_id, key, outcome, message, digest, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.RunID, e.Key, e.Outcome, e.Message, e.Digest, now); err != nil {
		return snaperr.StoreIO("journal", s.path, err)
	}

	if err := tx.Commit(); err != nil {
		return snaperr.StoreIO("journal", s.path, err)
	}
	return nil
}

// History returns the most recent verdicts for key, newest first. A limit
// of zero or less returns all of them.
func (s *SQLiteStore) History(ctx context.Context, key string, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, run_id, key, outcome, message, digest, recorded_at
		FROM verdicts
		WHERE key = ?
		ORDER BY seq DESC
		LIMIT ?
	`, key, limit)
	if err != nil {
		return nil, snaperr.StoreIO("history", s.path, err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var recorded int64
		if err := rows.Scan(&e.Seq, &e.RunID, &e.Key, &e.Outcome, &e.Message, &e.Digest, &recorded); err != nil {
			return nil, snaperr.StoreIO("history", s.path, err)
		}
		e.RecordedAt = time.Unix(0, recorded).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, snaperr.StoreIO("history", s.path, err)
	}
	return out, nil
}

// RunSummary counts the verdicts of one run by outcome.
type RunSummary struct {
	RunID     string         `json:"run_id"`
	StartedAt time.Time      `json:"started_at"`
	Outcomes  map[string]int `json:"outcomes"`
}

// Runs returns a summary of every recorded run, newest first.
func (s *SQLiteStore) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, v.outcome, COUNT(v.seq)
		FROM runs r
		LEFT JOIN verdicts v ON v.run_id = r.id
		GROUP BY r.id, v.outcome
		ORDER BY r.started_at DESC, r.id ASC, v.outcome ASC
	`)
	if err != nil {
		return nil, snaperr.StoreIO("runs", s.path, err)
	}
	defer rows.Close()

	var out []RunSummary
	index := make(map[string]int)
	for rows.Next() {
		var id string
		var started int64
		var outcome *string
		var count int
		if err := rows.Scan(&id, &started, &outcome, &count); err != nil {
			return nil, snaperr.StoreIO("runs", s.path, err)
		}
		i, ok := index[id]
		if !ok {
			i = len(out)
			index[id] = i
			out = append(out, RunSummary{
				RunID:     id,
				StartedAt: time.Unix(0, started).UTC(),
				Outcomes:  make(map[string]int),
			})
		}
		if outcome != nil {
			out[i].Outcomes[*outcome] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, snaperr.StoreIO("runs", s.path, err)
	}
	return out, nil
}
