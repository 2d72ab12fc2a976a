package summarize

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_BurstPassesImmediately(t *testing.T) {
	rl := NewRateLimiter(5, 60.0)

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("burst call %d failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("burst should not wait, took %v", elapsed)
	}
}

func TestRateLimiter_SpacesCallsAfterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 600.0) // one slot every 100ms

	ctx := context.Background()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("expected some wait time, got %v", elapsed)
	}
}

func TestRateLimiter_CancelledWaitReturnsSlot(t *testing.T) {
	rl := NewRateLimiter(1, 1.0)

	if err := rl.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := rl.next

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Fatal("expected context error")
	}
	if !rl.next.Equal(before) {
		t.Fatalf("schedule moved after cancelled wait: %v -> %v", before, rl.next)
	}
}

func TestRateLimiter_AlreadyCancelled(t *testing.T) {
	rl := NewRateLimiter(5, 60.0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Fatal("expected context cancelled error")
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	if rl.interval != 2*time.Second {
		t.Fatalf("interval = %v, want 2s", rl.interval)
	}
	if rl.slack != 8*time.Second {
		t.Fatalf("slack = %v, want 8s", rl.slack)
	}
}
