// Package stream provides the minimal push-stream model used to propagate values
// through a pipeline graph.
//
// # Overview
//
// A [Publisher] decides when values are delivered. Consumers attach a [Subscriber]
// and receive zero or more values followed by at most one terminal signal (error or
// completion). Each subscription follows the state machine
//
//	Idle → Delivering(0..n) → Completed | Errored
//
// and [Subscription.Unsubscribe] moves it to a terminal Unsubscribed state from any
// other state. After a terminal state nothing is delivered.
//
// # Building Publishers
//
// Most publishers are built with [Create], which hands the producer an [Emitter]
// and a context that is cancelled as soon as the subscription ends (terminal signal
// or Unsubscribe). Long-running producers watch that context to stop early:
//
//	pub := stream.Create(func(ctx context.Context, e stream.Emitter[int]) {
//	    go func() {
//	        for i := 0; ctx.Err() == nil && i < 3; i++ {
//	            e.Next(i)
//	        }
//	        e.Complete()
//	    }()
//	})
//
// # Operators
//
// The operator set is intentionally small: [Just] (replay one value), [Map],
// [Merge], [Join] (aggregate all values once every source completes),
// [CombineLatest] (latest value of each source), [Take], [Repeat], [MapAsync]
// and [ObserveOn] (hand work to an [Executor]).
//
// # Threading
//
// Operators never introduce goroutines on their own. Deliveries happen on whatever
// goroutine the upstream producer uses, unless an [Executor] is passed explicitly.
// Signals to a single subscriber are always serialized.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrUnexpectedType is delivered by [Typed] when an erased value does not have the
// requested type.
var ErrUnexpectedType = errors.New("unexpected value type")

// Subscriber receives the signals of one subscription.
type Subscriber[T any] interface {
	OnNext(v T)
	OnError(err error)
	OnComplete()
}

// Subscription is the handle returned by [Publisher.Subscribe].
// Unsubscribe is idempotent and safe to call from within a signal callback.
type Subscription interface {
	Unsubscribe()
}

// Publisher is a source of values that pushes to its subscribers.
type Publisher[T any] interface {
	Subscribe(s Subscriber[T]) Subscription
}

// PublisherFunc adapts a function to the [Publisher] interface.
type PublisherFunc[T any] func(s Subscriber[T]) Subscription

// Subscribe calls f(s).
func (f PublisherFunc[T]) Subscribe(s Subscriber[T]) Subscription { return f(s) }

// Funcs adapts callbacks to the [Subscriber] interface. Nil callbacks are ignored.
//
// Stopped, when set, reports whether the subscriber wants no further values.
// Producers built with [Create] check it after every delivery and end the
// subscription synchronously, which lets operators such as [Take] halt upstreams
// that deliver inline.
type Funcs[T any] struct {
	Next     func(T)
	Error    func(error)
	Complete func()
	Stopped  func() bool
}

func (f Funcs[T]) OnNext(v T) {
	if f.Next != nil {
		f.Next(v)
	}
}

func (f Funcs[T]) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

func (f Funcs[T]) OnComplete() {
	if f.Complete != nil {
		f.Complete()
	}
}

func (f Funcs[T]) IsStopped() bool {
	return f.Stopped != nil && f.Stopped()
}

// stopper is implemented by subscribers that can ask their producer to stop.
type stopper interface {
	IsStopped() bool
}

// Emitter is the producer side of a subscription created by [Create].
type Emitter[T any] interface {
	// Next delivers v. It reports false once the subscription has ended, after
	// which the producer should stop.
	Next(v T) bool
	// Error terminates the subscription with err.
	Error(err error)
	// Complete terminates the subscription successfully.
	Complete()
	// Done reports whether the subscription has ended.
	Done() bool
}

// guard serializes signals to one subscriber and enforces the terminal state.
type guard[T any] struct {
	sub    Subscriber[T]
	cancel context.CancelFunc
	mu     sync.Mutex
	done   atomic.Bool
}

func (g *guard[T]) Next(v T) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done.Load() {
		return false
	}
	g.sub.OnNext(v)
	if s, ok := g.sub.(stopper); ok && s.IsStopped() {
		g.done.Store(true)
		g.cancel()
	}
	return !g.done.Load()
}

func (g *guard[T]) Done() bool {
	return g.done.Load()
}

func (g *guard[T]) Error(err error) {
	if err == nil {
		err = errors.New("stream: nil error")
	}
	g.terminate(func() { g.sub.OnError(err) })
}

func (g *guard[T]) Complete() {
	g.terminate(g.sub.OnComplete)
}

func (g *guard[T]) terminate(signal func()) {
	g.mu.Lock()
	if !g.done.CompareAndSwap(false, true) {
		g.mu.Unlock()
		return
	}
	signal()
	g.mu.Unlock()
	g.cancel()
}

func (g *guard[T]) Unsubscribe() {
	g.done.Store(true)
	g.cancel()
}

// Create builds a publisher from a producer function. produce runs once per
// subscription, synchronously inside Subscribe; it may deliver inline or hand the
// emitter to another goroutine. ctx is cancelled when the subscription ends.
func Create[T any](produce func(ctx context.Context, e Emitter[T])) Publisher[T] {
	return PublisherFunc[T](func(s Subscriber[T]) Subscription {
		ctx, cancel := context.WithCancel(context.Background())
		g := &guard[T]{sub: s, cancel: cancel}
		produce(ctx, g)
		return g
	})
}

// Just returns a publisher that delivers v and completes, once for every
// subscriber. Late subscribers receive the same value.
func Just[T any](v T) Publisher[T] {
	return Create(func(_ context.Context, e Emitter[T]) {
		if e.Next(v) {
			e.Complete()
		}
	})
}

// Fail returns a publisher that terminates every subscription with err.
func Fail[T any](err error) Publisher[T] {
	return Create(func(_ context.Context, e Emitter[T]) { e.Error(err) })
}

// Empty returns a publisher that completes immediately.
func Empty[T any]() Publisher[T] {
	return Create(func(_ context.Context, e Emitter[T]) { e.Complete() })
}

// Defer calls factory on every subscription and subscribes to the result.
// It lets a publisher reflect state (such as graph connections) at subscribe time.
func Defer[T any](factory func() Publisher[T]) Publisher[T] {
	return PublisherFunc[T](func(s Subscriber[T]) Subscription {
		return factory().Subscribe(s)
	})
}

// Erase converts a typed publisher to a publisher of any.
func Erase[T any](p Publisher[T]) Publisher[any] {
	return Map(p, func(v T) (any, error) { return v, nil })
}

// Typed converts an erased publisher back to T. Values of another type terminate
// the subscription with [ErrUnexpectedType].
func Typed[T any](p Publisher[any]) Publisher[T] {
	return Map(p, func(v any) (T, error) {
		t, ok := v.(T)
		if !ok {
			var zero T
			return zero, fmt.Errorf("%w: got %T, want %T", ErrUnexpectedType, v, zero)
		}
		return t, nil
	})
}

// Collect subscribes to p and blocks until it terminates or ctx is done.
// It returns every delivered value and the terminal error, if any.
func Collect[T any](ctx context.Context, p Publisher[T]) ([]T, error) {
	var (
		mu     sync.Mutex
		values []T
		result error
	)
	done := make(chan struct{})
	sub := p.Subscribe(Funcs[T]{
		Next: func(v T) {
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		},
		Error: func(err error) {
			mu.Lock()
			result = err
			mu.Unlock()
			close(done)
		},
		Complete: func() { close(done) },
	})

	select {
	case <-done:
	case <-ctx.Done():
		sub.Unsubscribe()
		mu.Lock()
		defer mu.Unlock()
		return values, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return values, result
}
