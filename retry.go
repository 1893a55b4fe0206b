package snap

import (
	"context"
	"errors"
	"net"
	"time"
)

// Policy bounds retries around one gateway call. Transient outcomes
// (timeouts, 5xx) retry up to MaxAttempts with a linearly increasing
// delay; validation, auth, and business failures are terminal and are
// never retried, since retrying an invalid signature cannot succeed.
type Policy struct {
	// MaxAttempts caps total attempts, including the first. Zero or
	// negative means one attempt.
	MaxAttempts int
	// Delay is the wait before the first retry.
	Delay time.Duration
	// Step is added to the delay after every retry.
	Step time.Duration
}

// NoRetry performs a single attempt. Tests use it to force zero retries.
var NoRetry = Policy{MaxAttempts: 1}

// DefaultPolicy matches the sandbox suite's three bounded attempts.
var DefaultPolicy = Policy{MaxAttempts: 3, Delay: time.Second, Step: time.Second}

// Do runs fn under the policy. It stops early on success, on a terminal
// failure, or when ctx is cancelled.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := p.Delay
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !retryableOutcome(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		delay += p.Step
	}
	return err
}

// retryableOutcome treats typed transient failures, network timeouts,
// and deadline expiry as retryable. Caller cancellation is terminal.
func retryableOutcome(err error) bool {
	if Retryable(err) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
