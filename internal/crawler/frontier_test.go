package crawler

import (
	"context"
	"testing"
	"time"
)

// TestFrontierFIFO verifies entries come out in insertion order.
func TestFrontierFIFO(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	f.Push(Entry{URL: "http://a.test/1", Depth: 0})
	f.Push(Entry{URL: "http://a.test/2", Depth: 1})
	f.Push(Entry{URL: "http://a.test/3", Depth: 1})

	if f.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", f.Len())
	}

	want := []string{"http://a.test/1", "http://a.test/2", "http://a.test/3"}
	for i, url := range want {
		entry, ok := f.Pop()
		if !ok {
			t.Fatalf("pop %d: frontier unexpectedly empty", i)
		}
		if entry.URL != url {
			t.Errorf("pop %d: got %q, want %q", i, entry.URL, url)
		}
	}

	if _, ok := f.Pop(); ok {
		t.Error("expected empty frontier after draining")
	}
	if f.Len() != 0 {
		t.Errorf("expected length 0, got %d", f.Len())
	}
}

// TestFixedDelay tests the politeness pacing policy.
func TestFixedDelay(t *testing.T) {
	t.Parallel()

	t.Run("zero interval does not block", func(t *testing.T) {
		t.Parallel()

		start := time.Now()
		if err := (FixedDelay{}).Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
			t.Errorf("zero-interval wait took %v", elapsed)
		}
	})

	t.Run("waits the configured interval", func(t *testing.T) {
		t.Parallel()

		start := time.Now()
		if err := (FixedDelay{Interval: 50 * time.Millisecond}).Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
			t.Errorf("wait returned after %v, want at least 50ms", elapsed)
		}
	})

	t.Run("cancellation cuts the wait short", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		err := FixedDelay{Interval: 10 * time.Second}.Wait(ctx)
		if err == nil {
			t.Fatal("expected context error")
		}
		if elapsed := time.Since(start); elapsed > 5*time.Second {
			t.Errorf("cancelled wait took %v", elapsed)
		}
	})

	t.Run("cancelled context fails even with zero interval", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := (FixedDelay{}).Wait(ctx); err == nil {
			t.Error("expected error from already-cancelled context")
		}
	})
}

// TestStateString tests lifecycle state names.
func TestStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateRunning, "running"},
		{StateCompleted, "completed"},
		{StateInterrupted, "interrupted"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
