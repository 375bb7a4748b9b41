package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiterUnlimited(t *testing.T) {
	l := NewLimiter(0, 0)
	defer l.Stop()

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("unlimited limiter blocked for %v", elapsed)
	}
}

func TestLimiterPacing(t *testing.T) {
	// 50 rps means roughly 20ms between permits.
	l := NewLimiter(50, 0)
	defer l.Stop()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	elapsed := time.Since(start)
	if elapsed < 60*time.Millisecond {
		t.Errorf("5 permits at 50 rps took only %v", elapsed)
	}
}

func TestLimiterContextCancel(t *testing.T) {
	l := NewLimiter(0.1, 0) // one permit every 10s
	defer l.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Wait = %v, want context.DeadlineExceeded", err)
	}
}

func TestPerSourceReusesLimiters(t *testing.T) {
	p := NewPerSource(10, 0.1)
	defer p.Stop()

	a := p.Get("search")
	b := p.Get("search")
	if a != b {
		t.Error("Get returned different limiters for the same source")
	}
	if c := p.Get("ads"); c == a {
		t.Error("Get returned the same limiter for different sources")
	}
}
