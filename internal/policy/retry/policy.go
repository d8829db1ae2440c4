// Package retry implements the bounded fixed-delay retry used for provider
// submissions and keyword metrics lookups.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/JakeFAU/seo-audit/internal/seo"
)

// Fixed retries a bounded number of times with the same pause between attempts.
type Fixed struct {
	maxAttempts int
	delay       time.Duration
}

// NewFixed builds a policy allowing maxAttempts total attempts.
func NewFixed(maxAttempts int, delay time.Duration) *Fixed {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if delay < 0 {
		delay = 0
	}
	return &Fixed{maxAttempts: maxAttempts, delay: delay}
}

// MaxAttempts returns the total number of attempts allowed.
func (p *Fixed) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry decides whether the error is retryable after attempt attempts.
func (p *Fixed) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	var classified interface{ Retryable() bool }
	if errors.As(err, &classified) {
		return classified.Retryable()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return true
}

// Backoff returns the wait duration before the next attempt.
func (p *Fixed) Backoff(_ int) time.Duration {
	return p.delay
}

// Do runs op until it succeeds or the policy gives up. It returns the number
// of attempts made alongside the last error.
func Do(ctx context.Context, policy seo.RetryPolicy, clock seo.Clock, op func(context.Context) error) (int, error) {
	attempt := 0
	for {
		attempt++
		err := op(ctx)
		if err == nil {
			return attempt, nil
		}
		if !policy.ShouldRetry(err, attempt) {
			return attempt, err
		}
		select {
		case <-ctx.Done():
			return attempt, fmt.Errorf("retry wait canceled: %w", errors.Join(err, ctx.Err()))
		case <-clock.After(policy.Backoff(attempt)):
		}
	}
}
