package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRun_EmptyInput(t *testing.T) {
	var opCalls int32
	results := Run(context.Background(), []int{}, func(ctx context.Context, item int, idx int) int {
		atomic.AddInt32(&opCalls, 1)
		return item
	}, 4, nil)
	if len(results) != 0 {
		t.Errorf("expected empty results, got %v", results)
	}
	if opCalls != 0 {
		t.Error("expected op never invoked for empty input")
	}
}

func TestRun_PreservesOrderRegardlessOfCompletionOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	results := Run(context.Background(), items, func(ctx context.Context, item int, idx int) int {
		// Sleep inversely to value so later items can finish first.
		time.Sleep(time.Duration(item) * time.Millisecond)
		return item * 10
	}, 5, nil)

	want := []int{50, 10, 40, 20, 30}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("index %d: got %d want %d", i, results[i], want[i])
		}
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	var active, maxActive int32
	items := make([]int, 20)
	Run(context.Background(), items, func(ctx context.Context, item int, idx int) int {
		cur := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if cur <= m || atomic.CompareAndSwapInt32(&maxActive, m, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return idx
	}, 3, nil)

	if maxActive > 3 {
		t.Errorf("expected at most 3 concurrent operations, observed %d", maxActive)
	}
}

func TestRun_MaxConcurrencyOneIsSequential(t *testing.T) {
	var order []int
	var mu sync.Mutex
	items := []int{0, 1, 2, 3}
	Run(context.Background(), items, func(ctx context.Context, item int, idx int) int {
		mu.Lock()
		order = append(order, idx)
		mu.Unlock()
		return idx
	}, 1, nil)

	for i, v := range order {
		if v != i {
			t.Errorf("expected strictly sequential completion order with maxConcurrency=1, got %v", order)
			break
		}
	}
}

func TestRun_ErrorIsolation(t *testing.T) {
	type result struct {
		val int
		err error
	}
	items := []int{1, 2, 3, 4}
	results := Run(context.Background(), items, func(ctx context.Context, item int, idx int) result {
		if item == 2 {
			return result{err: errBoom}
		}
		return result{val: item}
	}, 4, nil)

	if results[1].err != errBoom {
		t.Errorf("expected item 2 to carry its error, got %+v", results[1])
	}
	for i, r := range results {
		if i == 1 {
			continue
		}
		if r.err != nil {
			t.Errorf("expected other items unaffected by item 2's failure, got %+v at %d", r, i)
		}
	}
}

var errBoom = errSentinel("boom")

type errSentinel string

func (e errSentinel) Error() string { return string(e) }

func TestRun_CancellationStopsNewWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var started atomic.Int32
	items := make([]int, 50)

	Run(ctx, items, func(ctx context.Context, item int, idx int) int {
		n := started.Add(1)
		if n == 2 {
			cancel()
		}
		time.Sleep(10 * time.Millisecond)
		return idx
	}, 2, nil)

	if started.Load() >= int32(len(items)) {
		t.Error("expected cancellation to prevent all items from starting")
	}
}

func TestRun_ProgressFiresOnFinalItem(t *testing.T) {
	var lastEvent ProgressEvent
	var mu sync.Mutex
	items := []int{1, 2, 3}

	Run(context.Background(), items, func(ctx context.Context, item int, idx int) int {
		return item
	}, 1, func(ev ProgressEvent) {
		mu.Lock()
		lastEvent = ev
		mu.Unlock()
	})

	mu.Lock()
	defer mu.Unlock()
	if lastEvent.Completed != 3 || lastEvent.Total != 3 {
		t.Errorf("expected final progress event {3,3}, got %+v", lastEvent)
	}
}
