package testutil

import (
	"fmt"
	"sync"
)

// RunIDs hands out well-formed, predictable run identifiers:
//
//	00000000-0000-4000-8000-000000000001
//	00000000-0000-4000-8000-000000000002
//
// They parse as UUIDs, so stores that validate run IDs accept them.
type RunIDs struct {
	mu  sync.Mutex
	seq int
}

// NewRunIDs creates a generator whose first ID ends in 1.
func NewRunIDs() *RunIDs {
	return &RunIDs{}
}

// Next returns the next identifier.
func (g *RunIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", g.seq)
}
