package stream

import (
	"context"
	"sync"
	"sync/atomic"
)

// unsubscribeOnDone releases upstream subscriptions once the downstream
// subscription ends.
func unsubscribeOnDone(ctx context.Context, subs ...Subscription) {
	context.AfterFunc(ctx, func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	})
}

// Map applies fn to every value of src (1:1). An error from fn terminates the
// subscription and releases src.
func Map[In, Out any](src Publisher[In], fn func(In) (Out, error)) Publisher[Out] {
	return Create(func(ctx context.Context, e Emitter[Out]) {
		up := src.Subscribe(Funcs[In]{
			Next: func(v In) {
				out, err := fn(v)
				if err != nil {
					e.Error(err)
					return
				}
				e.Next(out)
			},
			Error:    e.Error,
			Complete: e.Complete,
			Stopped:  e.Done,
		})
		unsubscribeOnDone(ctx, up)
	})
}

// Merge interleaves the values of all sources. It completes once every source has
// completed and fails on the first error. Merging no sources completes immediately.
func Merge[T any](srcs ...Publisher[T]) Publisher[T] {
	return Create(func(ctx context.Context, e Emitter[T]) {
		if len(srcs) == 0 {
			e.Complete()
			return
		}
		var remaining atomic.Int64
		remaining.Store(int64(len(srcs)))

		subs := make([]Subscription, 0, len(srcs))
		for _, src := range srcs {
			subs = append(subs, src.Subscribe(Funcs[T]{
				Next:  func(v T) { e.Next(v) },
				Error: e.Error,
				Complete: func() {
					if remaining.Add(-1) == 0 {
						e.Complete()
					}
				},
				Stopped: e.Done,
			}))
		}
		unsubscribeOnDone(ctx, subs...)
	})
}

// Join subscribes to every source, buffers their values and, once all of them have
// completed, delivers a single slice holding every value followed by completion.
//
// The aggregate is ordered by source position first and delivery order second, so
// the result does not depend on which source completes first. Joining no sources
// delivers an empty slice.
func Join[T any](srcs []Publisher[T]) Publisher[[]T] {
	return Create(func(ctx context.Context, e Emitter[[]T]) {
		var (
			mu        sync.Mutex
			buffers   = make([][]T, len(srcs))
			remaining = len(srcs)
		)
		flush := func() {
			var out []T
			for _, b := range buffers {
				out = append(out, b...)
			}
			if out == nil {
				out = []T{}
			}
			if e.Next(out) {
				e.Complete()
			}
		}
		if remaining == 0 {
			flush()
			return
		}

		subs := make([]Subscription, 0, len(srcs))
		for i, src := range srcs {
			subs = append(subs, src.Subscribe(Funcs[T]{
				Next: func(v T) {
					mu.Lock()
					buffers[i] = append(buffers[i], v)
					mu.Unlock()
				},
				Error: e.Error,
				Complete: func() {
					mu.Lock()
					remaining--
					last := remaining == 0
					mu.Unlock()
					if last {
						flush()
					}
				},
				Stopped: e.Done,
			}))
		}
		unsubscribeOnDone(ctx, subs...)
	})
}

// CombineLatest delivers a snapshot of the most recent value of every source each
// time any source delivers, but only once all sources have delivered at least one
// value. Snapshots are indexed by source position.
//
// It completes when every source has completed, or as soon as a source completes
// without ever delivering (no snapshot can be produced after that).
func CombineLatest[T any](srcs []Publisher[T]) Publisher[[]T] {
	return Create(func(ctx context.Context, e Emitter[[]T]) {
		if len(srcs) == 0 {
			e.Complete()
			return
		}
		var (
			mu        sync.Mutex
			latest    = make([]T, len(srcs))
			seen      = make([]bool, len(srcs))
			ready     int
			remaining = len(srcs)
		)

		subs := make([]Subscription, 0, len(srcs))
		for i, src := range srcs {
			subs = append(subs, src.Subscribe(Funcs[T]{
				Next: func(v T) {
					mu.Lock()
					defer mu.Unlock()
					latest[i] = v
					if !seen[i] {
						seen[i] = true
						ready++
					}
					if ready == len(srcs) {
						snapshot := make([]T, len(latest))
						copy(snapshot, latest)
						e.Next(snapshot)
					}
				},
				Error: e.Error,
				Complete: func() {
					mu.Lock()
					remaining--
					starved := !seen[i]
					last := remaining == 0
					mu.Unlock()
					if starved || last {
						e.Complete()
					}
				},
				Stopped: e.Done,
			}))
		}
		unsubscribeOnDone(ctx, subs...)
	})
}

// Take delivers at most n values from src and then completes. n <= 0 completes
// without subscribing to src.
func Take[T any](src Publisher[T], n int) Publisher[T] {
	return Create(func(ctx context.Context, e Emitter[T]) {
		if n <= 0 {
			e.Complete()
			return
		}
		var count atomic.Int64
		up := src.Subscribe(Funcs[T]{
			Next: func(v T) {
				c := count.Add(1)
				if c > int64(n) {
					return
				}
				e.Next(v)
				if c == int64(n) {
					e.Complete()
				}
			},
			Error:    e.Error,
			Complete: e.Complete,
			Stopped: func() bool {
				return count.Load() >= int64(n) || e.Done()
			},
		})
		unsubscribeOnDone(ctx, up)
	})
}

// Repeat resubscribes to src each time it completes, count times in total.
// count <= 0 repeats until the subscription is cancelled; combine it with [Take]
// when src completes synchronously.
func Repeat[T any](src Publisher[T], count int) Publisher[T] {
	return Create(func(ctx context.Context, e Emitter[T]) {
		var (
			mu      sync.Mutex
			running bool
			again   bool
			current Subscription
			rounds  int
		)

		// next is trampolined: a synchronous completion inside Subscribe flags
		// another round instead of recursing.
		var next func()
		next = func() {
			mu.Lock()
			if running {
				again = true
				mu.Unlock()
				return
			}
			running = true
			mu.Unlock()

			for {
				if ctx.Err() != nil || e.Done() {
					return
				}
				if count > 0 && rounds >= count {
					e.Complete()
					return
				}
				rounds++
				sub := src.Subscribe(Funcs[T]{
					Next:     func(v T) { e.Next(v) },
					Error:    e.Error,
					Complete: next,
					Stopped:  e.Done,
				})

				mu.Lock()
				current = sub
				if !again {
					running = false
					mu.Unlock()
					return
				}
				again = false
				mu.Unlock()
			}
		}

		next()
		context.AfterFunc(ctx, func() {
			mu.Lock()
			sub := current
			mu.Unlock()
			if sub != nil {
				sub.Unsubscribe()
			}
		})
	})
}
