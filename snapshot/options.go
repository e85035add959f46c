package snapshot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/roach88/snapcheck/store"
)

// DefaultTimeout bounds how long an asynchronous snapshot may take.
const DefaultTimeout = 5 * time.Second

// Environment variables read by FromEnv.
const (
	EnvRecord  = "SNAPCHECK_RECORD"
	EnvTimeout = "SNAPCHECK_TIMEOUT"
	EnvCI      = "CI"
)

// RecordMode decides when references are written.
type RecordMode int

const (
	// RecordMissing records references that do not exist yet and verifies the rest.
	RecordMissing RecordMode = iota
	// RecordAll overwrites every reference without comparing.
	RecordAll
	// RecordNever treats a missing reference as a failure.
	RecordNever
)

// String returns the mode name accepted by ParseRecordMode.
func (m RecordMode) String() string {
	switch m {
	case RecordMissing:
		return "missing"
	case RecordAll:
		return "all"
	case RecordNever:
		return "never"
	default:
		return fmt.Sprintf("RecordMode(%d)", int(m))
	}
}

// ParseRecordMode parses "missing", "all" or "never". The empty string is
// RecordMissing.
func ParseRecordMode(s string) (RecordMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "missing":
		return RecordMissing, nil
	case "all":
		return RecordAll, nil
	case "never":
		return RecordNever, nil
	default:
		return RecordMissing, fmt.Errorf("invalid record mode %q (want all, missing or never)", s)
	}
}

type config struct {
	ctx          context.Context
	store        store.Store
	dir          string
	testFile     string
	record       RecordMode
	failOnRecord bool
	timeout      time.Duration
	logger       *slog.Logger
	runID        string
	now          func() time.Time

	// errs collects invalid option values; New reports them.
	errs []error
}

func defaultConfig() config {
	return config{
		ctx:     context.Background(),
		dir:     store.DefaultDir,
		record:  RecordMissing,
		timeout: DefaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
}

// Option configures a Session.
type Option func(*config)

// WithStore replaces the default FileStore.
func WithStore(s store.Store) Option {
	return func(c *config) { c.store = s }
}

// WithDir sets the FileStore directory. Relative paths are resolved against
// the directory of the test file.
func WithDir(dir string) Option {
	return func(c *config) { c.dir = dir }
}

// WithTestFile overrides the test file detected from the caller.
func WithTestFile(path string) Option {
	return func(c *config) { c.testFile = path }
}

// WithRecordMode sets the session record mode.
func WithRecordMode(m RecordMode) Option {
	return func(c *config) { c.record = m }
}

// WithFailOnRecord reports recorded references as test errors.
func WithFailOnRecord(fail bool) Option {
	return func(c *config) { c.failOnRecord = fail }
}

// WithTimeout bounds asynchronous snapshots. Zero or less waits for the
// session context.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithLogger sets the logger for record and verify decisions.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithContext sets the context passed to the store and to snapshots.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// WithRunID sets the identifier under which verdicts are journaled.
func WithRunID(id string) Option {
	return func(c *config) { c.runID = id }
}

// WithClock sets the time source for journal entries.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// FromEnv applies SNAPCHECK_RECORD, SNAPCHECK_TIMEOUT and CI. Options given
// after it take precedence.
func FromEnv() Option {
	return func(c *config) {
		if v, ok := os.LookupEnv(EnvRecord); ok {
			m, err := ParseRecordMode(v)
			if err != nil {
				c.errs = append(c.errs, fmt.Errorf("%s: %w", EnvRecord, err))
			} else {
				c.record = m
			}
		}
		if v, ok := os.LookupEnv(EnvTimeout); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				c.errs = append(c.errs, fmt.Errorf("%s: %w", EnvTimeout, err))
			} else {
				c.timeout = d
			}
		}
		if v, ok := os.LookupEnv(EnvCI); ok {
			c.failOnRecord = truthy(v)
		}
	}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}

// AssertOption configures a single assertion.
type AssertOption func(*assertConfig)

type assertConfig struct {
	name   string
	record RecordMode
}

// Named gives the snapshot a name instead of a bare sequence number.
func Named(name string) AssertOption {
	return func(c *assertConfig) { c.name = name }
}

// Record overrides the session record mode for one assertion.
func Record(m RecordMode) AssertOption {
	return func(c *assertConfig) { c.record = m }
}
