// Package ratelimit throttles and retries calls to external data sources.
// A Limiter paces outgoing requests; a Policy (retry.go) wraps individual
// calls with backoff, retry classification and an in-flight cap.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter controls the rate and timing of operations, incorporating optional
// jitter. It is safe for concurrent use by multiple goroutines.
type Limiter struct {
	ticker   *time.Ticker
	jitter   float64 // 0.0 to 1.0
	interval time.Duration
	ch       <-chan time.Time
}

// NewLimiter creates a new limiter with the given requests per second (rps)
// and jitter factor. Jitter must be between 0.0 and 1.0.
// If rps is <= 0, the limiter does not block.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if rps <= 0 {
		return &Limiter{
			jitter: jitter,
		}
	}

	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	interval := time.Duration(float64(time.Second) / rps)
	ticker := time.NewTicker(interval)

	return &Limiter{
		ticker:   ticker,
		jitter:   jitter,
		interval: interval,
		ch:       ticker.C,
	}
}

// Wait blocks until it is time to perform the next operation, or until the
// context is canceled. It applies jitter to the sleep time if configured.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.ch == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ch:
		if l.jitter > 0 {
			// Random jitter between +/- (jitter * interval)
			jitterFactor := (rand.Float64() * 2) - 1.0 // -1.0 to 1.0
			jitterDuration := time.Duration(float64(l.interval) * l.jitter * jitterFactor)

			if jitterDuration > 0 {
				select {
				case <-time.After(jitterDuration):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			// Negative jitter means "run immediately when the ticker ticks";
			// the ticker already enforces the minimum interval.
		}
	}
	return nil
}

// Stop releases any resources associated with the limiter.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
}

// PerSource hands out one limiter per named external source, so the search
// engine, the target's own site and the ads API each get their own budget.
type PerSource struct {
	mu       sync.Mutex
	rps      float64
	jitter   float64
	limiters map[string]*Limiter
}

// NewPerSource creates a registry whose limiters all share the same rate.
func NewPerSource(rps, jitter float64) *PerSource {
	return &PerSource{
		rps:      rps,
		jitter:   jitter,
		limiters: make(map[string]*Limiter),
	}
}

// Get returns the limiter for the named source, creating it on first use.
func (p *PerSource) Get(source string) *Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.limiters[source]; ok {
		return l
	}
	l := NewLimiter(p.rps, p.jitter)
	p.limiters[source] = l
	return l
}

// Stop stops every limiter in the registry.
func (p *PerSource) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, l := range p.limiters {
		l.Stop()
	}
}
