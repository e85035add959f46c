package store

import "sync"

// pathLocks hands out one mutex per path so writes to the same file are
// serialized while writes to different files proceed in parallel.
//
// Entries are reference counted and dropped when the last holder unlocks,
// so the map only holds paths with in-flight writes.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*pathLock)}
}

// lock acquires the mutex for path and returns its release function.
func (p *pathLocks) lock(path string) func() {
	p.mu.Lock()
	l := p.locks[path]
	if l == nil {
		l = &pathLock{}
		p.locks[path] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, path)
		}
		p.mu.Unlock()
	}
}

// size returns the number of paths currently locked or waited on.
func (p *pathLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
