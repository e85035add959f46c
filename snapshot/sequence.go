package snapshot

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/roach88/snapcheck/store"
)

type sequenceKey struct {
	test string
	name string
}

// sequencer allocates snapshot sequence numbers per (test, name). The first
// call for a key returns 1.
//
// Thread-safety: Next is safe for concurrent use; two callers never
// receive the same number for one key.
type sequencer struct {
	mu   sync.Mutex
	next map[sequenceKey]int

	// claimed maps the stored form of a name to the first name that used it.
	claimed map[sequenceKey]string
}

func newSequencer() *sequencer {
	return &sequencer{
		next:    make(map[sequenceKey]int),
		claimed: make(map[sequenceKey]string),
	}
}

// Claim reserves the stored form of name within test. A different name with
// the same stored form is refused, since both would write the same files.
func (s *sequencer) Claim(test, name string) error {
	if name == "" {
		return nil
	}
	stored := store.StoredName(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	k := sequenceKey{test: test, name: stored}
	if prev, ok := s.claimed[k]; ok && prev != name {
		return fmt.Errorf("snapshot name %q collides with %q: both are stored as %q", name, prev, stored)
	}
	s.claimed[k] = name
	return nil
}

func (s *sequencer) Next(test, name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := sequenceKey{test: test, name: name}
	s.next[k]++
	return s.next[k]
}

// Current returns the last number handed out for a key, or 0.
func (s *sequencer) Current(test, name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next[sequenceKey{test: test, name: name}]
}

// sequencers holds the allocator of every live test, so sessions created
// for the same test share sequence numbers.
var sequencers sync.Map // TB -> *sequencer

// sequencerFor returns the allocator bound to t, binding seq (or a new one
// when seq is nil) on first use. The binding is dropped when t cleans up.
// A TB that is not comparable gets an unshared allocator.
func sequencerFor(t TB, seq *sequencer) *sequencer {
	if seq == nil {
		seq = newSequencer()
	}
	if !reflect.TypeOf(t).Comparable() {
		return seq
	}
	actual, loaded := sequencers.LoadOrStore(t, seq)
	if !loaded {
		if c, ok := t.(interface{ Cleanup(func()) }); ok {
			c.Cleanup(func() { sequencers.Delete(t) })
		}
	}
	return actual.(*sequencer)
}
