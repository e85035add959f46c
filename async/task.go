package async

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/snapcheck/snaperr"
)

// Task produces a value when awaited. Tasks are lazy: nothing runs until
// Await, and awaiting twice runs the work twice.
type Task[T any] struct {
	run func(ctx context.Context) (T, error)
}

// New wraps fn as a task. fn should honor ctx cancellation; Await enforces
// its timeout either way.
func New[T any](fn func(ctx context.Context) (T, error)) Task[T] {
	return Task[T]{run: fn}
}

// Resolved returns a task that yields v immediately.
func Resolved[T any](v T) Task[T] {
	return Task[T]{run: func(context.Context) (T, error) { return v, nil }}
}

// Failed returns a task that yields err immediately.
func Failed[T any](err error) Task[T] {
	return Task[T]{run: func(context.Context) (T, error) {
		var zero T
		return zero, err
	}}
}

// Callback returns a task that hands a fresh promise to start on every run
// and waits for it to settle. start may resolve the promise synchronously or
// from another goroutine.
func Callback[T any](start func(p *Promise[T])) Task[T] {
	return Task[T]{run: func(ctx context.Context) (T, error) {
		p := NewPromise[T]()
		start(p)
		select {
		case <-p.Done():
			return p.result()
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}}
}

// FromPromise returns a task that waits for p.
func FromPromise[T any](p *Promise[T]) Task[T] {
	return Task[T]{run: func(ctx context.Context) (T, error) {
		select {
		case <-p.Done():
			return p.result()
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}}
}

type outcome[T any] struct {
	value T
	err   error
}

// Await runs the task and waits at most timeout for its value. A timeout of
// zero or less waits until ctx is done. Running out of time is reported as
// snaperr.CodeTimeout.
func (t Task[T]) Await(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T
	if t.run == nil {
		return zero, snaperr.Misuse("await of a zero task")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Buffered so a task that outlives the wait can still finish.
	ch := make(chan outcome[T], 1)
	go func() {
		v, err := t.run(ctx)
		ch <- outcome[T]{value: v, err: err}
	}()

	select {
	case out := <-ch:
		if errors.Is(out.err, context.DeadlineExceeded) && timeout > 0 {
			return zero, timeoutError(timeout, out.err)
		}
		return out.value, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && timeout > 0 {
			return zero, timeoutError(timeout, ctx.Err())
		}
		return zero, ctx.Err()
	}
}

func timeoutError(timeout time.Duration, err error) error {
	return snaperr.Timeout(fmt.Sprintf("snapshot did not resolve within %s", timeout), err)
}

// Map returns a task that applies f to the value of t.
func Map[A, B any](t Task[A], f func(A) (B, error)) Task[B] {
	return Task[B]{run: func(ctx context.Context) (B, error) {
		a, err := t.run(ctx)
		if err != nil {
			var zero B
			return zero, err
		}
		return f(a)
	}}
}

// Then returns a task that feeds the value of t into the task built by f.
func Then[A, B any](t Task[A], f func(A) Task[B]) Task[B] {
	return Task[B]{run: func(ctx context.Context) (B, error) {
		a, err := t.run(ctx)
		if err != nil {
			var zero B
			return zero, err
		}
		next := f(a)
		if next.run == nil {
			var zero B
			return zero, snaperr.Misuse("continuation returned a zero task")
		}
		return next.run(ctx)
	}}
}

// Sequence runs tasks concurrently and yields their values in input order,
// regardless of completion order. The first error cancels the rest.
func Sequence[T any](tasks []Task[T]) Task[[]T] {
	return Task[[]T]{run: func(ctx context.Context) ([]T, error) {
		for i, task := range tasks {
			if task.run == nil {
				return nil, snaperr.Misuse(fmt.Sprintf("sequence element %d is a zero task", i))
			}
		}

		results := make([]T, len(tasks))
		g, gctx := errgroup.WithContext(ctx)
		for i, task := range tasks {
			g.Go(func() error {
				v, err := task.run(gctx)
				if err != nil {
					return err
				}
				results[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return results, nil
	}}
}
