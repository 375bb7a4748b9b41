package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrExhausted marks an operation that failed on every allowed attempt.
var ErrExhausted = errors.New("retry attempts exhausted")

// ExhaustedError wraps the last attempt's error once the policy gives up.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrExhausted) match an ExhaustedError.
func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// terminalError marks an error that must not be retried.
type terminalError struct {
	err error
}

func (t *terminalError) Error() string { return t.err.Error() }
func (t *terminalError) Unwrap() error { return t.err }

// Terminal wraps err so a Policy stops retrying immediately. Credential
// failures and malformed-request responses use this; transient network and
// server errors do not.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

// IsTerminal reports whether err was marked with Terminal.
func IsTerminal(err error) bool {
	var t *terminalError
	return errors.As(err, &t)
}

// Policy retries failing operations with exponential backoff and jitter,
// and caps the number of in-flight operations across all callers sharing it.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64 // 0.0 to 1.0, fraction of the delay randomized

	sem *semaphore.Weighted
}

// NewPolicy builds a retry policy. maxInFlight <= 0 means unlimited.
func NewPolicy(maxAttempts int, baseDelay, maxDelay time.Duration, jitter float64, maxInFlight int64) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 250 * time.Millisecond
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	p := &Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		Jitter:      jitter,
	}
	if maxInFlight > 0 {
		p.sem = semaphore.NewWeighted(maxInFlight)
	}
	return p
}

// Do runs op until it succeeds, returns a terminal error, exhausts the
// attempt budget, or the context is canceled. The in-flight cap is held for
// the duration of each attempt, not across backoff sleeps.
func (p *Policy) Do(ctx context.Context, op func(context.Context) error) error {
	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := p.acquire(ctx); err != nil {
			return err
		}
		err := op(ctx)
		p.release()

		if err == nil {
			return nil
		}
		if IsTerminal(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		last = err

		if attempt == p.MaxAttempts {
			break
		}
		if err := p.sleep(ctx, attempt); err != nil {
			return err
		}
	}
	return &ExhaustedError{Attempts: p.MaxAttempts, Err: last}
}

func (p *Policy) acquire(ctx context.Context) error {
	if p.sem == nil {
		return nil
	}
	return p.sem.Acquire(ctx, 1)
}

func (p *Policy) release() {
	if p.sem != nil {
		p.sem.Release(1)
	}
}

// sleep waits the backoff delay for the given completed attempt number.
func (p *Policy) sleep(ctx context.Context, attempt int) error {
	delay := p.BaseDelay << (attempt - 1)
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}
	if p.Jitter > 0 {
		spread := float64(delay) * p.Jitter
		delay = time.Duration(float64(delay) - spread/2 + rand.Float64()*spread)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
