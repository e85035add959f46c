package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/snapcheck/diffing"
	"github.com/roach88/snapcheck/snaperr"
	"github.com/roach88/snapcheck/store"
	"github.com/roach88/snapcheck/strategy"
)

// Assert verifies value against its reference and reports the verdict to
// the session's test: failures through Errorf, recordings through Logf (or
// Errorf when FailOnRecord is set).
func Assert[V, F any](s *Session, value V, strat strategy.Strategy[V, F], opts ...AssertOption) Verdict {
	s.t.Helper()
	v := Verify(s, value, strat, opts...)
	s.report(v)
	return v
}

// AssertMany asserts value under every named strategy, in name order.
func AssertMany[V, F any](s *Session, value V, strategies map[string]strategy.Strategy[V, F], opts ...AssertOption) []Verdict {
	s.t.Helper()
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	verdicts := make([]Verdict, 0, len(names))
	for _, name := range names {
		o := append(append([]AssertOption(nil), opts...), Named(name))
		verdicts = append(verdicts, Assert(s, value, strategies[name], o...))
	}
	return verdicts
}

// Verify runs the record/verify workflow for value and returns the verdict
// without reporting it.
//
//   - no reference, or RecordAll: snapshot, save, Recorded
//   - no reference and RecordNever: Failed
//   - reference: snapshot, load, decode, diff, Passed or Failed
//
// A failed comparison saves the actual bytes and diff artifacts next to the
// reference. Errors are not retried; each becomes a Failed verdict.
func Verify[V, F any](s *Session, value V, strat strategy.Strategy[V, F], opts ...AssertOption) Verdict {
	ac := assertConfig{record: s.cfg.record}
	for _, opt := range opts {
		opt(&ac)
	}

	ctx := s.context()
	id, idErr := s.identity(ac.name, strat.PathExtension)
	w := &workflow{s: s, id: id, log: s.logger().With("key", id.Key(), "run_id", s.cfg.runID)}
	if idErr != nil {
		return w.fail(idErr, "Invalid snapshot identity: %v", idErr)
	}
	verdict := run(ctx, w, ac.record, func() (F, error) {
		if strat.Snapshot == nil {
			var zero F
			return zero, snaperr.Misuse("strategy has no snapshot function")
		}
		return strat.Snapshot(value).Await(ctx, s.cfg.timeout)
	}, strat.Diffing)
	w.journal(ctx, verdict)
	return verdict
}

// workflow carries one assertion through the state machine.
type workflow struct {
	s   *Session
	id  store.Identity
	log *slog.Logger
}

func run[F any](ctx context.Context, w *workflow, mode RecordMode, snapshot func() (F, error), d diffing.Diffing[F]) Verdict {
	id := w.id
	if err := id.Validate(); err != nil {
		return w.fail(err, "Invalid snapshot identity: %v", err)
	}
	st := w.s.cfg.store
	key := id.Key()
	path := w.s.locate(key)

	exists, err := st.Exists(ctx, id)
	if err != nil {
		return w.fail(err, "Could not check for a reference at %q: %v", path, err)
	}
	if !exists && mode == RecordNever {
		return w.fail(nil, "No reference was found on disk at %q and recording is disabled (record mode %q).", path, mode)
	}

	value, err := snapshot()
	if err != nil {
		return w.fail(err, "Could not snapshot value: %v", err)
	}
	data, err := d.ToData(value)
	if err != nil {
		return w.fail(err, "Could not serialize snapshot: %v", err)
	}
	digest := store.Digest(data)

	if !exists || mode == RecordAll {
		if err := st.Save(ctx, id, data); err != nil {
			return w.fail(err, "Could not record reference at %q: %v", path, err)
		}
		w.clearFailure(ctx)

		var msg string
		if exists {
			msg = fmt.Sprintf("Record mode is on. Automatically recorded snapshot: %q", path)
		} else {
			msg = fmt.Sprintf("No reference was found on disk. Automatically recorded snapshot: %q", path)
		}
		w.log.Info("snapshot recorded", "existed", exists, "bytes", len(data))
		return Verdict{Outcome: Recorded, Identity: id, Path: path, Message: msg, Digest: digest}
	}

	refData, err := st.Load(ctx, id)
	if err != nil {
		return w.fail(err, "Could not load reference at %q: %v", path, err)
	}
	reference, err := d.FromData(refData)
	if err != nil {
		return w.fail(err, "Could not decode reference at %q: %v", path, err)
	}

	mismatch := d.Diff(reference, value)
	if mismatch == nil {
		w.clearFailure(ctx)
		w.log.Debug("snapshot matched", "digest", digest[:12])
		return Verdict{Outcome: Passed, Identity: id, Path: path, Digest: digest}
	}

	actual := id.Actual()
	actualPath := w.s.locate(actual.Key())
	if err := st.Save(ctx, actual, data); err != nil {
		return w.fail(err, "Snapshot does not match reference, and the actual value could not be saved: %v\n\n%s", err, mismatch.Message)
	}
	for _, a := range mismatch.Artifacts {
		if err := st.Save(ctx, id.Artifact(a.Name, a.Format), a.Data); err != nil {
			w.log.Warn("failed to save diff artifact", "artifact", a.Name, "error", err)
		}
	}

	w.log.Info("snapshot mismatch", "actual", actual.Key(), "artifacts", len(mismatch.Artifacts))
	return Verdict{
		Outcome:   Failed,
		Identity:  id,
		Path:      path,
		Message:   failureMessage(path, actualPath, mismatch.Message),
		Artifacts: mismatch.Artifacts,
		Digest:    digest,
	}
}

func failureMessage(referencePath, actualPath, diff string) string {
	return fmt.Sprintf("Snapshot does not match reference.\n\n@-\n%q\n@+\n%q\n\n%s", referencePath, actualPath, diff)
}

func (w *workflow) fail(err error, format string, args ...any) Verdict {
	msg := fmt.Sprintf(format, args...)
	w.log.Error("snapshot assertion failed", "error", err)
	if err == nil {
		err = errors.New(msg)
	}
	return Verdict{
		Outcome:  Failed,
		Identity: w.id,
		Path:     w.s.locate(w.id.Key()),
		Message:  msg,
		Err:      err,
	}
}

// clearFailure removes actual bytes and artifacts left by an earlier
// failed run. Stores that cannot list keys keep them.
func (w *workflow) clearFailure(ctx context.Context) {
	cat, ok := w.s.cfg.store.(store.Catalog)
	if !ok {
		return
	}
	actualKey := w.id.Actual().Key()
	keys := []string{actualKey}

	entries, err := cat.List(ctx, store.ArtifactPrefix(actualKey))
	if err != nil {
		w.log.Warn("failed to list stale artifacts", "error", err)
	}
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	for _, k := range keys {
		if err := cat.Remove(ctx, k); err != nil {
			w.log.Warn("failed to remove stale failure file", "file", k, "error", err)
		}
	}
}

// journal appends the verdict to stores that keep a history.
func (w *workflow) journal(ctx context.Context, v Verdict) {
	j, ok := w.s.cfg.store.(store.Journal)
	if !ok {
		return
	}
	err := j.Append(ctx, store.JournalEntry{
		RunID:      w.s.cfg.runID,
		Key:        w.id.Key(),
		Outcome:    v.Outcome.String(),
		Message:    v.Message,
		Digest:     v.Digest,
		RecordedAt: w.s.cfg.now(),
	})
	if err != nil {
		w.log.Warn("failed to journal verdict", "error", err)
	}
}
