package dump

import (
	"fmt"
	"io"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unsafe"

	"golang.org/x/text/unicode/norm"
)

const (
	leafBullet     = "-"
	expandedBullet = "▿"
	indentUnit     = "  "
)

var (
	// Matches a hex address with its leading colon and whitespace; the
	// whitespace after it is kept.
	addressPattern = regexp.MustCompile(`:?\s*0x[\da-f]+(\s*)`)

	// Compiler-generated suffixes in type names: generic instance markers,
	// closure numbering and local type counters.
	uniquifierPattern = regexp.MustCompile(`\x{00B7}\d+| #\d+|\.func\d+(\.\d+)*`)
)

// String renders v as a dump tree. It never fails; every value has a
// rendering.
func String(v any) string {
	d := &dumper{visited: make(map[visitKey]struct{})}
	return d.snap("", reflect.ValueOf(v))
}

// Bytes renders v as a dump tree.
func Bytes(v any) []byte {
	return []byte(String(v))
}

// Fprint writes the dump tree of v to w.
func Fprint(w io.Writer, v any) (int, error) {
	return io.WriteString(w, String(v))
}

// PurgePointers removes hex addresses from s. "Foo: 0x1234 bar" becomes
// "Foo bar".
func PurgePointers(s string) string {
	return addressPattern.ReplaceAllString(s, "$1")
}

// TypeName returns the name of t with compiler uniquifiers removed.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	return uniquifierPattern.ReplaceAllString(t.String(), "")
}

type visitKey struct {
	typ reflect.Type
	ptr uintptr
	n   int
	id  any
}

type dumper struct {
	visited map[visitKey]struct{}
}

func (d *dumper) snap(label string, v reflect.Value) string {
	if !v.IsValid() {
		return node(label, "nil", nil)
	}
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return node(label, "nil", nil)
		}
		v = v.Elem()
	}
	if nilable(v.Kind()) && v.IsNil() {
		return node(label, "nil", nil)
	}

	// References enter the visited set before any hook runs, so hooks that
	// expose their children cannot recurse around a cycle.
	if key, ok := referenceKey(v); ok {
		return d.enter(label, key, func() string {
			return d.render(label, v)
		})
	}
	return d.render(label, v)
}

func (d *dumper) render(label string, v reflect.Value) string {
	if iv, ok := interfaceOf(v); ok {
		if out, ok := d.hook(label, v, iv); ok {
			return out
		}
	}

	switch v.Kind() {
	case reflect.Pointer:
		return d.snap(label, v.Elem())
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return node(label, plural(v.Len(), "byte", "bytes"), nil)
		}
		desc, children := d.composite(v)
		return node(label, desc, children)
	case reflect.Map, reflect.Array, reflect.Struct:
		desc, children := d.composite(v)
		return node(label, desc, children)
	default:
		return node(label, leafDescription(v), nil)
	}
}

// referenceKey identifies values that can take part in a cycle.
func referenceKey(v reflect.Value) (visitKey, bool) {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map:
		return visitKey{typ: v.Type(), ptr: v.Pointer()}, true
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return visitKey{}, false
		}
		return visitKey{typ: v.Type(), ptr: v.Pointer(), n: v.Len()}, true
	}
	return visitKey{}, false
}

// enter renders a reference node unless key is already on the current path.
func (d *dumper) enter(label string, key visitKey, render func() string) string {
	if _, seen := d.visited[key]; seen {
		name := label
		if name == "" {
			name = "value"
		}
		return expandedBullet + " " + name + " (circular reference detected)\n"
	}
	d.visited[key] = struct{}{}
	defer delete(d.visited, key)
	return render()
}

// hook applies the customization points and well-known types. It reports
// false when v should be walked structurally.
func (d *dumper) hook(label string, v reflect.Value, iv any) (out string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			out, ok = node(label, TypeName(v.Type())+" (panic: "+PurgePointers(fmt.Sprint(r))+")", nil), true
		}
	}()

	switch x := iv.(type) {
	case Reflector:
		return d.mirror(label, v.Type(), x.SnapshotMirror()), true
	case Describer:
		desc := x.SnapshotDescription()
		if cr, ok := iv.(ChildRenderer); ok && cr.RenderChildren() {
			_, children := d.composite(deref(v))
			return node(label, desc, children), true
		}
		return node(label, desc, nil), true
	case time.Time:
		return node(label, x.UTC().Format(time.RFC3339Nano), nil), true
	case *time.Time:
		return node(label, x.UTC().Format(time.RFC3339Nano), nil), true
	case error:
		return node(label, PurgePointers(x.Error()), nil), true
	case fmt.Stringer:
		return node(label, PurgePointers(x.String()), nil), true
	}
	return "", false
}

func (d *dumper) mirror(label string, t reflect.Type, m Mirror) string {
	render := func() string {
		children := make([]string, len(m.Children))
		for i, c := range m.Children {
			children[i] = d.snap(c.Label, reflect.ValueOf(c.Value))
		}
		if m.Kind.sorted() {
			slices.Sort(children)
		}
		desc := m.Description
		if desc == "" {
			desc = m.Kind.describe(len(children))
		}
		if desc == "" {
			desc = TypeName(t)
		}
		return node(label, desc, children)
	}

	if m.ID != nil && reflect.TypeOf(m.ID).Comparable() {
		return d.enter(label, visitKey{id: m.ID}, render)
	}
	return render()
}

// composite returns the description and rendered children of a container.
// Values that are not containers have no children.
func (d *dumper) composite(v reflect.Value) (string, []string) {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		children := make([]string, v.Len())
		for i := range children {
			children[i] = d.snap("", v.Index(i))
		}
		return KindSequence.describe(len(children)), children

	case reflect.Map:
		children := make([]string, 0, v.Len())
		set := isSet(v.Type())
		iter := v.MapRange()
		for iter.Next() {
			if set {
				children = append(children, d.snap("", iter.Key()))
				continue
			}
			children = append(children, d.tuple("", []string{"key", "value"}, []reflect.Value{iter.Key(), iter.Value()}))
		}
		slices.Sort(children)
		if set {
			return KindSet.describe(len(children)), children
		}
		return KindMap.describe(len(children)), children

	case reflect.Struct:
		t := v.Type()
		children := make([]string, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Name == "_" {
				continue
			}
			children = append(children, d.snap(f.Name, v.Field(i)))
		}
		slices.Sort(children)
		return TypeName(t), children

	default:
		return leafDescription(v), nil
	}
}

func (d *dumper) tuple(label string, labels []string, values []reflect.Value) string {
	children := make([]string, len(values))
	for i, v := range values {
		children[i] = d.snap(labels[i], v)
	}
	return node(label, KindTuple.describe(len(children)), children)
}

// node assembles one line plus its indented children.
func node(label, description string, children []string) string {
	var b strings.Builder
	if len(children) > 0 {
		b.WriteString(expandedBullet)
	} else {
		b.WriteString(leafBullet)
	}
	b.WriteByte(' ')
	if label != "" {
		b.WriteString(label)
		b.WriteString(": ")
	}
	b.WriteString(description)
	b.WriteByte('\n')
	for _, child := range children {
		for _, line := range strings.SplitAfter(child, "\n") {
			if line == "" {
				continue
			}
			b.WriteString(indentUnit)
			b.WriteString(line)
		}
	}
	return b.String()
}

func leafDescription(v reflect.Value) string {
	t := v.Type()
	var s string
	switch v.Kind() {
	case reflect.Bool:
		s = strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		s = strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		s = strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32:
		s = strconv.FormatFloat(v.Float(), 'g', -1, 32)
	case reflect.Float64:
		s = strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case reflect.Complex64:
		s = strconv.FormatComplex(v.Complex(), 'g', -1, 64)
	case reflect.Complex128:
		s = strconv.FormatComplex(v.Complex(), 'g', -1, 128)
	case reflect.String:
		s = strconv.Quote(norm.NFC.String(v.String()))
	default:
		// Functions, channels and raw pointers have no stable value.
		return TypeName(t)
	}
	if t.PkgPath() != "" && t.Name() != "" {
		return TypeName(t) + "(" + s + ")"
	}
	return s
}

// interfaceOf returns v as an interface value, reaching through unexported
// struct fields when v is addressable.
func interfaceOf(v reflect.Value) (any, bool) {
	if v.CanInterface() {
		return v.Interface(), true
	}
	if v.CanAddr() {
		return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem().Interface(), true
	}
	return nil, false
}

func deref(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

func nilable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}

// isSet reports whether a map type is used as a set: map[K]struct{}.
func isSet(t reflect.Type) bool {
	e := t.Elem()
	return e.Kind() == reflect.Struct && e.NumField() == 0
}
