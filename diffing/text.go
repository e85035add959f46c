package diffing

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/roach88/snapcheck/codec"
)

const (
	// PatchArtifact names the unified diff attached to a line mismatch.
	PatchArtifact = "difference"
	patchFormat   = "patch"

	hexPreviewLimit = 32
	contextLines    = 3
)

// Bytes compares raw bytes for exact equality.
func Bytes() Diffing[[]byte] {
	c := codec.Bytes{}
	return Diffing[[]byte]{
		ToData:   c.Encode,
		FromData: c.Decode,
		Diff: func(reference, actual []byte) *Mismatch {
			if bytes.Equal(reference, actual) {
				return nil
			}
			var msg string
			if len(reference) == len(actual) {
				msg = "Expected data to match"
			} else {
				msg = fmt.Sprintf("Expected %s to match %s", byteCount(len(actual)), byteCount(len(reference)))
			}
			msg += "\nreference: " + hexPreview(reference) + "\nactual:    " + hexPreview(actual)
			return &Mismatch{Message: msg}
		},
	}
}

// Lines compares text line by line. A mismatch carries a unified diff with
// three lines of context, both as the message and as a patch artifact.
func Lines() Diffing[string] {
	c := codec.Text{}
	return Diffing[string]{
		ToData:   c.Encode,
		FromData: c.Decode,
		Diff: func(reference, actual string) *Mismatch {
			if reference == actual {
				return nil
			}
			patch := UnifiedDiff(reference, actual)
			return &Mismatch{
				Message: patch,
				Artifacts: []Artifact{{
					Name:   PatchArtifact,
					Format: patchFormat,
					Data:   []byte(patch),
				}},
			}
		},
	}
}

// UnifiedDiff renders a unified diff from reference to actual.
func UnifiedDiff(reference, actual string) string {
	out, err := UnifiedDiffFiles(reference, actual, "reference", "actual", contextLines)
	if err != nil || out == "" {
		// Only trailing whitespace differs in a way SplitLines hides.
		return fmt.Sprintf("--- reference\n+++ actual\n-%q\n+%q\n", reference, actual)
	}
	return out
}

// UnifiedDiffFiles renders a unified diff with the given file names and
// lines of context. Equal inputs produce "".
func UnifiedDiffFiles(reference, actual, fromFile, toFile string, context int) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(reference),
		B:        difflib.SplitLines(actual),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  context,
	})
}

func byteCount(n int) string {
	if n == 1 {
		return "1 byte"
	}
	return fmt.Sprintf("%d bytes", n)
}

func hexPreview(b []byte) string {
	if len(b) <= hexPreviewLimit {
		return hex.EncodeToString(b)
	}
	return hex.EncodeToString(b[:hexPreviewLimit]) + "..."
}
