// Package snapshot runs the record/verify workflow.
//
// A Session binds a test to a snapshot store. Each assertion resolves an
// identity from the test name, an optional snapshot name and a sequence
// number, then either records a new reference or compares the value
// against the stored one:
//
//	func TestUser(t *testing.T) {
//		snap := snapshot.New(t, snapshot.FromEnv())
//		snapshot.Assert(snap, user, strategy.Dump[User]())
//		snapshot.Assert(snap, user, strategy.JSON[User](), snapshot.Named("json"))
//	}
//
// References live in testdata/__snapshots__ next to the test file unless
// another store is configured. A failed comparison leaves the actual bytes
// and any diff artifacts next to the reference.
package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/roach88/snapcheck/store"
)

// TB is the part of testing.TB a Session reports through.
type TB interface {
	Helper()
	Name() string
	Errorf(format string, args ...any)
	Logf(format string, args ...any)
}

// Session holds the configuration for the assertions of one test. Sessions
// created for the same test share its sequence numbers.
//
// Record mode is fixed per session; there is no process-wide switch.
type Session struct {
	t   TB
	cfg config
	seq *sequencer
}

// New creates a Session for t.
//
// The test file is taken from the caller's stack unless WithTestFile is
// given. Invalid option values (for example a bad SNAPCHECK_RECORD) are
// reported through t.Errorf and the defaults are kept.
func New(t TB, opts ...Option) *Session {
	t.Helper()
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.testFile == "" {
		cfg.testFile = callerTestFile()
	}
	if cfg.store == nil {
		dir := cfg.dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(filepath.Dir(cfg.testFile), dir)
		}
		cfg.store = store.NewFileStore(dir)
	}
	if cfg.runID == "" {
		cfg.runID = store.NewRunID()
	}
	if err := errors.Join(cfg.errs...); err != nil {
		t.Errorf("snapcheck: invalid configuration: %v", err)
	}

	return &Session{t: t, cfg: cfg, seq: sequencerFor(t, nil)}
}

// For returns a Session for another test, typically a subtest, sharing this
// session's configuration and run. Sequence numbers are shared with every
// other session of t.
func (s *Session) For(t TB) *Session {
	return &Session{t: t, cfg: s.cfg, seq: sequencerFor(t, s.seq)}
}

// Store returns the snapshot store.
func (s *Session) Store() store.Store { return s.cfg.store }

// RunID returns the identifier of this run in the journal.
func (s *Session) RunID() string { return s.cfg.runID }

// TestFile returns the test file snapshots are grouped under.
func (s *Session) TestFile() string { return s.cfg.testFile }

// RecordMode returns the session record mode.
func (s *Session) RecordMode() RecordMode { return s.cfg.record }

// Timeout returns the bound on asynchronous snapshots.
func (s *Session) Timeout() time.Duration { return s.cfg.timeout }

func (s *Session) context() context.Context { return s.cfg.ctx }

func (s *Session) logger() *slog.Logger { return s.cfg.logger }

// identity allocates the next sequence number for name in the current test.
// A name that would share files with another name of the test is refused
// before a number is taken.
func (s *Session) identity(name, format string) (store.Identity, error) {
	test := s.t.Name()
	id := store.Identity{
		TestFile:     s.cfg.testFile,
		TestName:     test,
		SnapshotName: name,
		Format:       format,
	}
	if err := s.seq.Claim(test, name); err != nil {
		return id, err
	}
	id.Sequence = s.seq.Next(test, name)
	return id, nil
}

// locate returns a human-readable location for key.
func (s *Session) locate(key string) string {
	if fs, ok := s.cfg.store.(interface{ Path(string) string }); ok {
		return fs.Path(key)
	}
	return key
}

// report forwards a verdict to the test.
func (s *Session) report(v Verdict) {
	s.t.Helper()
	switch v.Outcome {
	case Recorded:
		if s.cfg.failOnRecord {
			s.t.Errorf("%s", v.Message)
			return
		}
		s.t.Logf("%s", v.Message)
	case Failed:
		s.t.Errorf("%s", v.Message)
	}
}

// callerTestFile returns the first _test.go file on the stack, falling back
// to the first caller outside this package.
func callerTestFile() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	fallback := ""
	for {
		frame, more := frames.Next()
		if strings.HasSuffix(frame.File, "_test.go") {
			return frame.File
		}
		if fallback == "" && !strings.Contains(frame.Function, "/snapcheck/snapshot.") {
			fallback = frame.File
		}
		if !more {
			break
		}
	}
	if fallback == "" {
		return "snapshot_test.go"
	}
	return fallback
}
