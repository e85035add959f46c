package store

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Variant distinguishes the files stored for one snapshot.
type Variant int

const (
	// VariantReference is the accepted snapshot.
	VariantReference Variant = iota
	// VariantActual holds the bytes of a failed comparison.
	VariantActual
	// VariantArtifact holds a named diff artifact of a failed comparison.
	VariantArtifact
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case VariantReference:
		return "reference"
	case VariantActual:
		return "actual"
	case VariantArtifact:
		return "artifact"
	default:
		return "Variant(" + strconv.Itoa(int(v)) + ")"
	}
}

// actualMarker is the key segment of a VariantActual file.
const actualMarker = "actual"

// unnamedArtifact replaces an empty artifact name.
const unnamedArtifact = "artifact"

var unsafePathChars = regexp.MustCompile(`\W+`)

// Identity locates one stored snapshot.
//
// Key layout:
//
//	<test file>/<TestName>.<name-or-seq>[.<seq>][.actual|.actual-<artifact>].<format>
//
// Unnamed snapshots use their sequence: TestUser.1.txt, TestUser.2.txt.
// Named snapshots use the name, adding the sequence from the second
// assertion on: TestUser.json.json, TestUser.json.2.json.
//
// Names are stored in the form StoredName returns, so distinct names can
// share a key. Names that store as a bare number would shadow unnamed
// snapshots and are invalid. Test names are sanitized the same way; two
// tests whose names differ only in punctuation share files.
type Identity struct {
	// TestFile is the path of the test source file; only its base name
	// without the .go extension is used.
	TestFile string

	// TestName is the full test name, including subtests.
	TestName string

	// SnapshotName is optional.
	SnapshotName string

	// Sequence counts assertions per (TestName, SnapshotName), from 1.
	Sequence int

	// Format is the file extension, without a dot.
	Format string

	Variant Variant

	// ArtifactName names a VariantArtifact file.
	ArtifactName string
}

// Key returns the slash-separated storage key.
func (id Identity) Key() string {
	var b strings.Builder
	b.WriteString(sanitize(id.TestName))
	b.WriteByte('.')
	if id.SnapshotName != "" {
		b.WriteString(sanitize(id.SnapshotName))
		if id.Sequence > 1 {
			b.WriteByte('.')
			b.WriteString(strconv.Itoa(id.Sequence))
		}
	} else {
		b.WriteString(strconv.Itoa(id.Sequence))
	}

	switch id.Variant {
	case VariantActual:
		b.WriteString("." + actualMarker)
	case VariantArtifact:
		name := sanitize(id.ArtifactName)
		if name == "" {
			name = unnamedArtifact
		}
		b.WriteString("." + actualMarker + "-" + name)
	}

	if id.Format != "" {
		b.WriteByte('.')
		b.WriteString(id.Format)
	}
	return testFileDir(id.TestFile) + "/" + b.String()
}

// String implements fmt.Stringer.
func (id Identity) String() string {
	return id.Key()
}

// Validate reports an identity that cannot produce a usable key.
func (id Identity) Validate() error {
	if sanitize(id.TestName) == "" {
		return fmt.Errorf("identity: empty test name")
	}
	if id.SnapshotName != "" {
		stored := StoredName(id.SnapshotName)
		if stored == "" {
			return fmt.Errorf("identity: snapshot name %q has no word characters", id.SnapshotName)
		}
		if isDigits(stored) {
			return fmt.Errorf("identity: snapshot name %q is numeric and would collide with unnamed snapshots", id.SnapshotName)
		}
	}
	if id.Sequence < 1 {
		return fmt.Errorf("identity: sequence %d out of range", id.Sequence)
	}
	if strings.ContainsAny(id.Format, `./\`) {
		return fmt.Errorf("identity: invalid format %q", id.Format)
	}
	return nil
}

// Actual returns the identity of the failing bytes for this snapshot.
func (id Identity) Actual() Identity {
	id.Variant = VariantActual
	id.ArtifactName = ""
	return id
}

// Artifact returns the identity of a named diff artifact for this snapshot.
func (id Identity) Artifact(name, format string) Identity {
	id.Variant = VariantArtifact
	id.ArtifactName = name
	id.Format = format
	return id
}

// ReferenceKey maps the key of an actual file to the key of its reference.
// It reports false for keys that are not actual files.
func ReferenceKey(key string) (string, bool) {
	dir, file := splitKey(key)
	parts := strings.Split(file, ".")
	// <TestName>.<id>[.<seq>].actual.<ext> has at least four parts.
	if len(parts) < 4 || parts[len(parts)-2] != actualMarker {
		return "", false
	}
	parts = append(parts[:len(parts)-2], parts[len(parts)-1])
	return joinKey(dir, strings.Join(parts, ".")), true
}

// IsActualKey reports whether key names failing bytes.
func IsActualKey(key string) bool {
	_, ok := ReferenceKey(key)
	return ok
}

// IsFailureKey reports whether key names failing bytes or a diff artifact.
func IsFailureKey(key string) bool {
	_, file := splitKey(key)
	parts := strings.Split(file, ".")
	if len(parts) < 4 {
		return false
	}
	marker := parts[len(parts)-2]
	return marker == actualMarker || strings.HasPrefix(marker, actualMarker+"-")
}

// ArtifactPrefix returns the key prefix of the diff artifacts that belong
// with an actual key.
func ArtifactPrefix(actualKey string) string {
	dir, file := splitKey(actualKey)
	parts := strings.Split(file, ".")
	if len(parts) < 3 {
		return joinKey(dir, file+"."+actualMarker+"-")
	}
	stem := strings.Join(parts[:len(parts)-2], ".")
	return joinKey(dir, stem+"."+actualMarker+"-")
}

func splitKey(key string) (dir, file string) {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}

func joinKey(dir, file string) string {
	if dir == "" {
		return file
	}
	return dir + "/" + file
}

func testFileDir(path string) string {
	base := filepath.Base(filepath.ToSlash(path))
	base = strings.TrimSuffix(base, ".go")
	if base == "." || base == "/" || base == "" {
		return "_"
	}
	return sanitize(base)
}

// StoredName returns the form a snapshot name takes in keys.
func StoredName(name string) string {
	return sanitize(name)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// sanitize keeps word characters and collapses every other run into "-".
func sanitize(s string) string {
	return strings.Trim(unsafePathChars.ReplaceAllString(s, "-"), "-")
}
