// Package strategy describes how a value of type V becomes a comparable
// serialized form F, and how strategies compose.
//
// A Strategy pairs a snapshot function with a diffing.Diffing for its
// format and a file extension. New strategies are usually derived from
// existing ones with Pullback, which converts the input before snapshotting:
//
//	// Snapshot a user as its dump tree, compared line by line.
//	users := strategy.Pullback(strategy.Lines(), func(u User) string {
//		return dump.String(u)
//	})
package strategy

import (
	"errors"

	"github.com/roach88/snapcheck/async"
	"github.com/roach88/snapcheck/diffing"
	"github.com/roach88/snapcheck/snaperr"
)

// Strategy turns values of type V into snapshots of format F.
//
// Strategies are immutable; every combinator returns a new value.
type Strategy[V, F any] struct {
	// PathExtension is the format tag and file extension, without a dot.
	PathExtension string

	// Diffing converts F to and from bytes and compares two F values.
	Diffing diffing.Diffing[F]

	// Snapshot produces the serialized form of a value. It may finish later.
	Snapshot func(V) async.Task[F]
}

// New returns a strategy from its parts.
func New[V, F any](pathExtension string, d diffing.Diffing[F], snapshot func(V) async.Task[F]) Strategy[V, F] {
	return Strategy[V, F]{PathExtension: pathExtension, Diffing: d, Snapshot: snapshot}
}

// Simply returns a strategy whose value is already in its serialized form.
func Simply[F any](pathExtension string, d diffing.Diffing[F]) Strategy[F, F] {
	return Strategy[F, F]{
		PathExtension: pathExtension,
		Diffing:       d,
		Snapshot:      async.Resolved[F],
	}
}

// Pullback converts a strategy on A into a strategy on B by transforming
// each B into an A first. f may run many times and should be pure.
func Pullback[A, B, F any](s Strategy[A, F], f func(B) A) Strategy[B, F] {
	return Strategy[B, F]{
		PathExtension: s.PathExtension,
		Diffing:       s.Diffing,
		Snapshot: func(b B) async.Task[F] {
			return s.Snapshot(f(b))
		},
	}
}

// TryPullback is Pullback with a transform that can fail. Failures surface
// as snaperr.CodeUnrenderable unless they already carry a code.
func TryPullback[A, B, F any](s Strategy[A, F], f func(B) (A, error)) Strategy[B, F] {
	return Strategy[B, F]{
		PathExtension: s.PathExtension,
		Diffing:       s.Diffing,
		Snapshot: func(b B) async.Task[F] {
			a, err := f(b)
			if err != nil {
				return async.Failed[F](unrenderable(err))
			}
			return s.Snapshot(a)
		},
	}
}

// AsyncPullback is Pullback with a transform that finishes later, such as
// rendering that waits on another goroutine.
func AsyncPullback[A, B, F any](s Strategy[A, F], f func(B) async.Task[A]) Strategy[B, F] {
	return Strategy[B, F]{
		PathExtension: s.PathExtension,
		Diffing:       s.Diffing,
		Snapshot: func(b B) async.Task[F] {
			return async.Then(f(b), s.Snapshot)
		},
	}
}

// Map transforms the serialized side of a strategy. The new format is
// compared with d.
func Map[V, F, G any](s Strategy[V, F], g func(F) G, d diffing.Diffing[G]) Strategy[V, G] {
	return Strategy[V, G]{
		PathExtension: s.PathExtension,
		Diffing:       d,
		Snapshot: func(v V) async.Task[G] {
			return async.Map(s.Snapshot(v), func(f F) (G, error) {
				return g(f), nil
			})
		},
	}
}

// WithPathExtension returns a copy of s stored under a different extension.
func (s Strategy[V, F]) WithPathExtension(ext string) Strategy[V, F] {
	s.PathExtension = ext
	return s
}

// WithDiffing returns a copy of s compared with d.
func (s Strategy[V, F]) WithDiffing(d diffing.Diffing[F]) Strategy[V, F] {
	s.Diffing = d
	return s
}

func unrenderable(err error) error {
	var coded *snaperr.Error
	if errors.As(err, &coded) {
		return err
	}
	return snaperr.Unrenderable("transform failed", err)
}
