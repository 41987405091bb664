package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	t.Run("explicit concurrency", func(t *testing.T) {
		p := NewPool(4)
		if p.Concurrency() != 4 {
			t.Errorf("Concurrency() = %d, want 4", p.Concurrency())
		}
	})

	t.Run("defaults to NumCPU", func(t *testing.T) {
		p := NewPool(0)
		if p.Concurrency() <= 0 {
			t.Errorf("Concurrency() = %d, want > 0", p.Concurrency())
		}
	})
}

func TestRun_PreservesOrder(t *testing.T) {
	pool := NewPool(3)
	inputs := []int{0, 1, 2, 3, 4, 5, 6, 7}

	results := RunFunc(context.Background(), pool, inputs, func(_ context.Context, n int) (int, error) {
		// Later jobs finish first to exercise ordering.
		time.Sleep(time.Duration(8-n) * time.Millisecond)
		return n * 10, nil
	})

	if len(results) != len(inputs) {
		t.Fatalf("got %d results, want %d", len(results), len(inputs))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("result %d: unexpected error %v", i, r.Err)
		}
		if r.Value != i*10 {
			t.Errorf("result %d = %d, want %d", i, r.Value, i*10)
		}
		if r.Index != i {
			t.Errorf("result %d has index %d", i, r.Index)
		}
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	const limit = 2
	pool := NewPool(limit)

	var inFlight, peak atomic.Int32
	inputs := make([]int, 10)

	RunFunc(context.Background(), pool, inputs, func(_ context.Context, _ int) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})

	if got := peak.Load(); got > limit {
		t.Errorf("peak concurrency = %d, want <= %d", got, limit)
	}
}

func TestRun_CollectsErrors(t *testing.T) {
	pool := NewPool(2)
	wantErr := errors.New("boom")

	results := RunFunc(context.Background(), pool, []int{1, 2, 3}, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, wantErr
		}
		return n, nil
	})

	if results[0].Err != nil || results[2].Err != nil {
		t.Error("successful jobs should not report errors")
	}
	if !errors.Is(results[1].Err, wantErr) {
		t.Errorf("results[1].Err = %v, want %v", results[1].Err, wantErr)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	pool := NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	go func() {
		<-started
		cancel()
	}()

	results := RunFunc(ctx, pool, []int{1, 2, 3, 4}, func(ctx context.Context, n int) (int, error) {
		if n == 1 {
			close(started)
			<-ctx.Done()
			return 0, ctx.Err()
		}
		return n, nil
	})

	var canceled int
	for _, r := range results {
		if errors.Is(r.Err, context.Canceled) {
			canceled++
		}
	}
	if canceled == 0 {
		t.Error("expected at least one canceled result")
	}
}

func TestRun_EmptyInput(t *testing.T) {
	pool := NewPool(2)
	if results := Run[int, int](context.Background(), pool, nil); results != nil {
		t.Errorf("Run(nil) = %v, want nil", results)
	}
}
