package stream

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Executor runs units of work. It is the explicit execution context handed to
// operators that must not block the goroutine delivering their input.
type Executor interface {
	Execute(fn func())
}

// ExecutorFunc adapts a function to the [Executor] interface.
type ExecutorFunc func(fn func())

// Execute calls f(fn).
func (f ExecutorFunc) Execute(fn func()) { f(fn) }

var (
	// Immediate runs work synchronously on the calling goroutine. Tests use it to
	// make asynchronous pipelines deterministic.
	Immediate Executor = ExecutorFunc(func(fn func()) { fn() })

	// Goroutine runs every unit of work on a new goroutine.
	Goroutine Executor = ExecutorFunc(func(fn func()) { go fn() })
)

// Pool runs work on background goroutines with at most n units in flight.
// Execute never blocks the caller; excess work waits for a free slot.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewPool creates a pool with the given concurrency limit (minimum 1).
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers))}
}

// Execute schedules fn.
func (p *Pool) Execute(fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// Acquire only fails on a cancelled context; Background never is.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)
		fn()
	}()
}

// Wait blocks until all scheduled work has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// serial runs posted functions one at a time, in posting order, on an executor.
type serial struct {
	exec    Executor
	mu      sync.Mutex
	queue   []func()
	running bool
}

func newSerial(exec Executor) *serial {
	if exec == nil {
		exec = Immediate
	}
	return &serial{exec: exec}
}

func (s *serial) post(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	s.exec.Execute(s.drain)
}

func (s *serial) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		fn := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		fn()
	}
}

// ObserveOn re-delivers every signal of src on exec, preserving order.
func ObserveOn[T any](src Publisher[T], exec Executor) Publisher[T] {
	return Create(func(ctx context.Context, e Emitter[T]) {
		q := newSerial(exec)
		up := src.Subscribe(Funcs[T]{
			Next:     func(v T) { q.post(func() { e.Next(v) }) },
			Error:    func(err error) { q.post(func() { e.Error(err) }) },
			Complete: func() { q.post(e.Complete) },
			Stopped:  e.Done,
		})
		unsubscribeOnDone(ctx, up)
	})
}

// MapAsync applies fn to every value of src on exec. Results are delivered in
// input order, one fn call at a time per subscription, so the goroutine delivering
// src is never blocked by fn.
//
// The ctx passed to fn is cancelled when the subscription ends; cancellation is
// reported by fn's error and is not forwarded once the subscriber has gone.
func MapAsync[In, Out any](src Publisher[In], exec Executor, fn func(ctx context.Context, v In) (Out, error)) Publisher[Out] {
	return Create(func(ctx context.Context, e Emitter[Out]) {
		q := newSerial(exec)
		up := src.Subscribe(Funcs[In]{
			Next: func(v In) {
				q.post(func() {
					if ctx.Err() != nil {
						return
					}
					out, err := fn(ctx, v)
					if err != nil {
						e.Error(err)
						return
					}
					e.Next(out)
				})
			},
			Error:    func(err error) { q.post(func() { e.Error(err) }) },
			Complete: func() { q.post(e.Complete) },
			Stopped:  e.Done,
		})
		unsubscribeOnDone(ctx, up)
	})
}
