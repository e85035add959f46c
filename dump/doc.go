// Package dump renders arbitrary Go values as a canonical, diffable text tree.
//
// The output looks like this:
//
//	▿ main.User
//	  - Bio: "Blobbed around the world."
//	  - ID: 1
//	  - Name: "Blobby"
//
// Every node is one line, "<bullet> <name: ><description>", followed by its
// children indented two spaces. The bullet is "-" for nodes without children
// and "▿" otherwise.
//
// # Determinism
//
// The same logical value dumps to the same bytes in every run:
//   - Map entries, set members and struct fields are sorted by their own
//     rendering, so iteration order never leaks into the output.
//   - Memory addresses and compiler uniquifiers are purged from type names
//     and from String()/Error() text.
//   - Strings are NFC normalized before quoting.
//
// # Cycles
//
// Pointers, maps and slices are reference nodes. Before descending into one,
// the dumper checks the set of references on the current path; a revisit
// renders "(circular reference detected)" instead of recursing. The set
// lives for one call only.
//
// # Customization
//
// A type can take over its own rendering:
//   - Describer: a single-line description. Children are skipped unless the
//     type also implements ChildRenderer and RenderChildren returns true.
//   - Reflector: a full Mirror with kind, description and children.
//
// time.Time renders as RFC 3339 in UTC; error and fmt.Stringer values render
// their text; []byte renders its length.
package dump
