package summarize

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces LLM calls evenly at a per-minute rate while letting a
// short burst through immediately. Callers reserve a slot and sleep until it
// opens.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration // spacing between slots
	slack    time.Duration // how far ahead of the schedule a call may run
	next     time.Time     // when the next unreserved slot opens
}

func NewRateLimiter(burst int, perMinute float64) *RateLimiter {
	if burst <= 0 {
		burst = 5
	}
	if perMinute <= 0 {
		perMinute = 30
	}
	interval := time.Duration(float64(time.Minute) / perMinute)
	return &RateLimiter{
		interval: interval,
		slack:    time.Duration(burst-1) * interval,
	}
}

// reserve claims the next slot and returns how long the caller must wait
// for it. prev and taken let cancel undo the reservation.
func (rl *RateLimiter) reserve(now time.Time) (delay time.Duration, prev, taken time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	prev = rl.next
	slot := rl.next
	if slot.Before(now) {
		slot = now
	}
	rl.next = slot.Add(rl.interval)
	return slot.Add(-rl.slack).Sub(now), prev, rl.next
}

// cancel hands an unused slot back when nobody reserved after it.
func (rl *RateLimiter) cancel(prev, taken time.Time) {
	rl.mu.Lock()
	if rl.next.Equal(taken) {
		rl.next = prev
	}
	rl.mu.Unlock()
}

// Wait blocks until a slot is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	delay, prev, taken := rl.reserve(time.Now())
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		rl.cancel(prev, taken)
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
