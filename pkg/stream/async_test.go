package stream

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

// deferred queues work until the test runs it.
type deferred struct {
	mu    sync.Mutex
	queue []func()
}

func (d *deferred) Execute(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, fn)
}

func (d *deferred) runAll() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()
		fn()
	}
}

func TestMapAsyncDoesNotBlockSubscriber(t *testing.T) {
	exec := &deferred{}
	rec := &recorder[int]{}
	MapAsync(Just(4), exec, func(_ context.Context, v int) (int, error) {
		return v + 1, nil
	}).Subscribe(rec)

	if values, _, completed := rec.snapshot(); len(values) != 0 || completed {
		t.Fatalf("work ran on the subscribing goroutine: %v %v", values, completed)
	}

	exec.runAll()
	values, err, completed := rec.snapshot()
	if !reflect.DeepEqual(values, []int{5}) || err != nil || !completed {
		t.Errorf("got values=%v err=%v completed=%v", values, err, completed)
	}
}

func TestMapAsyncPreservesOrderOnPool(t *testing.T) {
	pool := NewPool(4)
	src := Merge(Just(1), Just(2), Just(3), Just(4))
	pub := MapAsync(src, pool, func(_ context.Context, v int) (int, error) {
		time.Sleep(time.Duration(5-v) * time.Millisecond)
		return v * 10, nil
	})

	got := collect(t, pub)
	pool.Wait()
	if !reflect.DeepEqual(got, []int{10, 20, 30, 40}) {
		t.Errorf("got %v, want [10 20 30 40]", got)
	}
}

func TestMapAsyncError(t *testing.T) {
	boom := errors.New("boom")
	pub := MapAsync(Just(1), Goroutine, func(context.Context, int) (int, error) {
		return 0, boom
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := Collect(ctx, pub); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestMapAsyncCancelledByUnsubscribe(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})
	rec := &recorder[int]{}

	sub := MapAsync(Just(1), Goroutine, func(ctx context.Context, v int) (int, error) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return 0, ctx.Err()
	}).Subscribe(rec)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("work never started")
	}
	sub.Unsubscribe()

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("work was not cancelled")
	}

	_, err, completed := rec.snapshot()
	if err != nil || completed {
		t.Errorf("signals after Unsubscribe: err=%v completed=%v", err, completed)
	}
}

func TestObserveOn(t *testing.T) {
	exec := &deferred{}
	rec := &recorder[int]{}
	ObserveOn(Merge(Just(1), Just(2)), exec).Subscribe(rec)

	if values, _, _ := rec.snapshot(); len(values) != 0 {
		t.Fatalf("delivered before executor ran: %v", values)
	}
	exec.runAll()

	values, _, completed := rec.snapshot()
	if !reflect.DeepEqual(values, []int{1, 2}) || !completed {
		t.Errorf("values=%v completed=%v", values, completed)
	}
}

func TestPoolLimitsConcurrency(t *testing.T) {
	pool := NewPool(2)
	var (
		mu      sync.Mutex
		active  int
		highest int
	)
	for i := 0; i < 8; i++ {
		pool.Execute(func() {
			mu.Lock()
			active++
			if active > highest {
				highest = active
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		})
	}
	pool.Wait()

	if highest > 2 {
		t.Errorf("observed %d concurrent units, limit is 2", highest)
	}
}
