package dump

import "strconv"

// Kind classifies a node of the dump tree.
type Kind int

const (
	// KindLeaf is a primitive with no children.
	KindLeaf Kind = iota
	// KindSequence is an ordered collection; children keep their order.
	KindSequence
	// KindSet is an unordered collection of members; children are sorted.
	KindSet
	// KindMap is an unordered collection of key/value entries; children are sorted.
	KindMap
	// KindTuple is a fixed group of labeled values; children keep their order.
	KindTuple
	// KindStruct is a record with named fields; children are sorted.
	KindStruct
	// KindEnum is a tagged case, optionally with associated values.
	KindEnum
	// KindReference is a value with identity; see Mirror.ID.
	KindReference
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindSequence:
		return "sequence"
	case KindSet:
		return "set"
	case KindMap:
		return "map"
	case KindTuple:
		return "tuple"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindReference:
		return "reference"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// sorted reports whether children of this kind are emitted in rendered order.
func (k Kind) sorted() bool {
	return k == KindSet || k == KindMap || k == KindStruct || k == KindReference
}

// describe returns the default description for a node with n children.
func (k Kind) describe(n int) string {
	switch k {
	case KindSequence:
		return plural(n, "element", "elements")
	case KindSet:
		return plural(n, "member", "members")
	case KindMap:
		return plural(n, "key/value pair", "key/value pairs")
	case KindTuple:
		return "(" + plural(n, "element", "elements") + ")"
	default:
		return ""
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}

// Child is one labeled child of a Mirror. An empty Label renders no name.
type Child struct {
	Label string
	Value any
}

// Mirror is a custom description of a value's shape.
type Mirror struct {
	// Kind selects ordering and the default description.
	Kind Kind

	// Description is the header text. When empty, a count-based description
	// is derived from Kind, or the value's type name for records.
	Description string

	// Children are rendered recursively.
	Children []Child

	// ID is an optional identity for cycle detection. It must be comparable;
	// a Mirror whose ID is already on the current path renders as circular.
	// Pointers, maps and slices are tracked by address without one.
	ID any
}

// Reflector is implemented by values that describe their own dump tree.
type Reflector interface {
	SnapshotMirror() Mirror
}

// Describer is implemented by values with a custom single-line description.
type Describer interface {
	SnapshotDescription() string
}

// ChildRenderer can be implemented alongside Describer to keep rendering the
// value's children under the custom description.
type ChildRenderer interface {
	RenderChildren() bool
}

// Entry is a key/value pair, rendered as a two-element tuple. Use it as the
// child value of a KindMap Mirror.
type Entry struct {
	Key   any
	Value any
}

// SnapshotMirror implements Reflector.
func (e Entry) SnapshotMirror() Mirror {
	return Mirror{
		Kind:     KindTuple,
		Children: []Child{{Label: "key", Value: e.Key}, {Label: "value", Value: e.Value}},
	}
}
