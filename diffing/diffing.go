// Package diffing compares two serialized forms of the same type and explains
// how they differ.
package diffing

// Diffing converts values of F to and from bytes and compares them.
//
// Diff must be reflexive: Diff(f, f) returns nil for every f.
type Diffing[F any] struct {
	ToData   func(F) ([]byte, error)
	FromData func([]byte) (F, error)
	Diff     func(reference, actual F) *Mismatch
}

// Mismatch describes a failed comparison.
type Mismatch struct {
	Message   string
	Artifacts []Artifact
}

// Artifact is a supplementary file produced by a failed comparison.
type Artifact struct {
	// Name is part of the stored file name; may be empty.
	Name   string
	Format string
	Data   []byte
}
