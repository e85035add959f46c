package snapshot

import (
	"fmt"

	"github.com/roach88/snapcheck/diffing"
	"github.com/roach88/snapcheck/store"
)

// Outcome is the result kind of one assertion.
type Outcome int

const (
	// Recorded means a reference was written; nothing was compared.
	Recorded Outcome = iota + 1
	// Passed means the value matched its reference.
	Passed
	// Failed means the value did not match, or an error occurred.
	Failed
)

// String returns the lower-case outcome name used in the journal.
func (o Outcome) String() string {
	switch o {
	case Recorded:
		return "recorded"
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Verdict is the result of one assertion.
type Verdict struct {
	Outcome  Outcome
	Identity store.Identity

	// Path locates the reference: a file path for a FileStore, the key
	// otherwise.
	Path string

	Message   string
	Artifacts []diffing.Artifact

	// Digest of the bytes that were recorded or compared.
	Digest string

	// Err is set when the assertion failed for a reason other than a
	// mismatch.
	Err error
}

// OK reports whether the verdict does not fail the test.
func (v Verdict) OK() bool {
	return v.Outcome != Failed
}

// Failure returns the failure message, or "" for a non-failing verdict.
func (v Verdict) Failure() string {
	if v.Outcome != Failed {
		return ""
	}
	return v.Message
}
