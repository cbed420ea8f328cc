package stream

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

// manual is a publisher driven by the test.
type manual[T any] struct {
	mu       sync.Mutex
	emitters []Emitter[T]
}

func (m *manual[T]) publisher() Publisher[T] {
	return Create(func(_ context.Context, e Emitter[T]) {
		m.mu.Lock()
		m.emitters = append(m.emitters, e)
		m.mu.Unlock()
	})
}

func (m *manual[T]) next(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.emitters {
		e.Next(v)
	}
}

func (m *manual[T]) complete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.emitters {
		e.Complete()
	}
}

func (m *manual[T]) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.emitters {
		e.Error(err)
	}
}

// recorder captures every signal of one subscription.
type recorder[T any] struct {
	mu        sync.Mutex
	values    []T
	err       error
	completed bool
}

func (r *recorder[T]) OnNext(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *recorder[T]) OnComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = true
}

func (r *recorder[T]) snapshot() ([]T, error, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.values))
	copy(out, r.values)
	return out, r.err, r.completed
}

func collect[T any](t *testing.T, p Publisher[T]) []T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	values, err := Collect(ctx, p)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return values
}

func TestJustReplaysToEverySubscriber(t *testing.T) {
	p := Just(5)
	for i := 0; i < 3; i++ {
		got := collect(t, p)
		if !reflect.DeepEqual(got, []int{5}) {
			t.Fatalf("subscription %d: got %v, want [5]", i, got)
		}
	}
}

func TestFailAndEmpty(t *testing.T) {
	boom := errors.New("boom")
	_, err := Collect(context.Background(), Fail[int](boom))
	if !errors.Is(err, boom) {
		t.Errorf("Fail: err = %v, want %v", err, boom)
	}

	got := collect(t, Empty[int]())
	if len(got) != 0 {
		t.Errorf("Empty delivered %v", got)
	}
}

func TestNothingAfterTerminal(t *testing.T) {
	var src manual[int]
	rec := &recorder[int]{}
	src.publisher().Subscribe(rec)

	src.next(1)
	src.complete()
	src.next(2)
	src.fail(errors.New("late"))

	values, err, completed := rec.snapshot()
	if !reflect.DeepEqual(values, []int{1}) {
		t.Errorf("values = %v, want [1]", values)
	}
	if err != nil {
		t.Errorf("err = %v after completion", err)
	}
	if !completed {
		t.Error("expected completion")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	var src manual[int]
	rec := &recorder[int]{}
	sub := src.publisher().Subscribe(rec)

	src.next(1)
	sub.Unsubscribe()
	sub.Unsubscribe()
	src.next(2)
	src.complete()

	values, _, completed := rec.snapshot()
	if !reflect.DeepEqual(values, []int{1}) {
		t.Errorf("values = %v, want [1]", values)
	}
	if completed {
		t.Error("completion delivered after Unsubscribe")
	}
}

func TestDeferReadsStateAtSubscribe(t *testing.T) {
	value := 1
	p := Defer(func() Publisher[int] { return Just(value) })

	if got := collect(t, p); got[0] != 1 {
		t.Fatalf("got %v, want [1]", got)
	}
	value = 2
	if got := collect(t, p); got[0] != 2 {
		t.Fatalf("got %v, want [2]", got)
	}
}

func TestTyped(t *testing.T) {
	got := collect(t, Typed[int](Erase(Just(3))))
	if !reflect.DeepEqual(got, []int{3}) {
		t.Errorf("got %v, want [3]", got)
	}

	_, err := Collect(context.Background(), Typed[int](Just[any]("three")))
	if !errors.Is(err, ErrUnexpectedType) {
		t.Errorf("err = %v, want ErrUnexpectedType", err)
	}
}

func TestCollectHonoursContext(t *testing.T) {
	var src manual[int]
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, src.publisher())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
