package parallel

import (
	"context"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func double(_ context.Context, n int) int { return n * 2 }

func TestRun_Empty(t *testing.T) {
	if results := Run(context.Background(), []int{}, 4, double, nil); results != nil {
		t.Errorf("expected nil for empty input, got %v", results)
	}
}

func TestRun_PreservesInputOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	for _, workers := range []int{1, 3, 10} {
		results := Run(context.Background(), items, workers, func(_ context.Context, n int) int {
			time.Sleep(time.Duration(n) * time.Millisecond)
			return n * 2
		}, nil)
		if want := []int{10, 2, 8, 4, 6}; !reflect.DeepEqual(results, want) {
			t.Errorf("workers=%d: expected %v, got %v", workers, want, results)
		}
	}
}

func TestRun_CallbackSequentialAndComplete(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	var calls []int
	Run(context.Background(), items, 4, double, func(completed, total int, _ int) {
		if total != len(items) {
			t.Errorf("expected total=%d, got %d", len(items), total)
		}
		calls = append(calls, completed)
	})
	for i, c := range calls {
		if c != i+1 {
			t.Fatalf("expected completed counts 1..n, got %v", calls)
		}
	}
	if len(calls) != len(items) {
		t.Errorf("expected %d callbacks, got %d", len(items), len(calls))
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	var current, peak atomic.Int32
	items := make([]int, 12)
	Run(context.Background(), items, 3, func(_ context.Context, _ int) int {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return 0
	}, nil)
	if p := peak.Load(); p > 3 {
		t.Errorf("expected at most 3 concurrent workers, saw %d", p)
	}
}

func TestRun_ClampsWorkers(t *testing.T) {
	results := Run(context.Background(), []int{1, 2}, 0, double, nil)
	if !reflect.DeepEqual(results, []int{2, 4}) {
		t.Errorf("expected [2 4], got %v", results)
	}
}

func TestRun_CancelledContextSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results := Run(ctx, []int{1, 2, 3}, 1, func(_ context.Context, n int) int {
		calls.Add(1)
		return n
	}, nil)
	if len(results) != 3 {
		t.Fatalf("expected a slot per item, got %v", results)
	}
	// The first send may race with cancellation; nothing after it runs.
	if c := calls.Load(); c > 1 {
		t.Errorf("expected at most one call after cancel, got %d", c)
	}
}
