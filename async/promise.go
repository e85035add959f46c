// Package async models snapshot work that may finish later.
//
// A Promise is resolved exactly once. A Task is a recipe that produces a
// value when awaited; Await bounds the wait so a task that never resolves is
// reported instead of hanging the test.
package async

import (
	"sync"

	"github.com/roach88/snapcheck/snaperr"
)

// Promise is a single-resolution result slot. The zero value is not usable;
// create one with NewPromise.
type Promise[T any] struct {
	mu       sync.Mutex
	done     chan struct{}
	resolved bool
	value    T
	err      error
}

// NewPromise returns an unresolved promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// Resolve fulfills the promise with v. Resolving an already settled promise
// leaves it unchanged and returns a continuation misuse error.
func (p *Promise[T]) Resolve(v T) error {
	return p.settle(v, nil)
}

// Reject settles the promise with err. A nil err is a misuse.
func (p *Promise[T]) Reject(err error) error {
	if err == nil {
		return snaperr.Misuse("promise rejected with a nil error")
	}
	var zero T
	return p.settle(zero, err)
}

func (p *Promise[T]) settle(v T, err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resolved {
		return snaperr.Misuse("promise resolved more than once")
	}
	p.resolved = true
	p.value = v
	p.err = err
	close(p.done)
	return nil
}

// Done is closed once the promise is settled.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Settled reports whether Resolve or Reject has succeeded.
func (p *Promise[T]) Settled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolved
}

// result must only be called after Done is closed.
func (p *Promise[T]) result() (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err
}
