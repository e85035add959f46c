package testutil

import (
	"fmt"
	"sync"
)

// FakeTB records what a snapshot session reports instead of failing the
// surrounding test. It satisfies snapshot.TB.
type FakeTB struct {
	name string

	mu       sync.Mutex
	errors   []string
	logs     []string
	cleanups []func()
}

// NewFakeTB returns a FakeTB reporting the given test name.
func NewFakeTB(name string) *FakeTB {
	return &FakeTB{name: name}
}

func (f *FakeTB) Helper() {}

func (f *FakeTB) Name() string { return f.name }

func (f *FakeTB) Errorf(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}

func (f *FakeTB) Logf(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, fmt.Sprintf(format, args...))
}

// Failed reports whether Errorf was called.
func (f *FakeTB) Failed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.errors) > 0
}

// Errors returns a copy of the reported errors.
func (f *FakeTB) Errors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.errors...)
}

// Logs returns a copy of the logged messages.
func (f *FakeTB) Logs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.logs...)
}

// Cleanup registers f to run when Finish is called.
func (f *FakeTB) Cleanup(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups = append(f.cleanups, fn)
}

// Finish runs the registered cleanups, last registered first, the way
// the testing package does when a test ends.
func (f *FakeTB) Finish() {
	f.mu.Lock()
	fns := f.cleanups
	f.cleanups = nil
	f.mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
