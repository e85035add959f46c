package strategy

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/roach88/snapcheck/codec"
	"github.com/roach88/snapcheck/diffing"
)

// Registry maps (value type, format) pairs to strategies, so callers can
// snapshot a value by naming only its format.
type Registry struct {
	mu      sync.RWMutex
	entries map[registryKey]any
}

type registryKey struct {
	value  reflect.Type
	format string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[registryKey]any)}
}

// Default holds the built-in strategies for strings, byte slices and images.
var Default = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	Register(r, Lines())
	Register(r, Data())
	Register(r, Image(diffing.ImageOptions{}))
	Register(r, JSON[any]())
	return r
}

// Register adds s under V and s.PathExtension, replacing any previous entry.
func Register[V, F any](r *Registry, s Strategy[V, F]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[registryKey{value: typeOf[V](), format: s.PathExtension}] = s
}

// Lookup returns the strategy registered for V and format. It reports false
// when nothing is registered or the registered strategy has a different
// serialized type.
func Lookup[V, F any](r *Registry, format string) (Strategy[V, F], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.entries[registryKey{value: typeOf[V](), format: format}].(Strategy[V, F])
	return s, ok
}

// For returns the text strategy registered for V and format. The "txt"
// format falls back to the dump tree when nothing is registered.
func For[V any](r *Registry, format string) (Strategy[V, string], error) {
	if s, ok := Lookup[V, string](r, format); ok {
		return s, nil
	}
	if format == codec.FormatText {
		return Dump[V](), nil
	}
	return Strategy[V, string]{}, fmt.Errorf("no %q strategy registered for %s", format, typeOf[V]())
}

// Formats lists the formats registered for V, sorted.
func Formats[V any](r *Registry) []string {
	t := typeOf[V]()
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for k := range r.entries {
		if k.value == t {
			out = append(out, k.format)
		}
	}
	sort.Strings(out)
	return out
}

func typeOf[V any]() reflect.Type {
	return reflect.TypeOf((*V)(nil)).Elem()
}
