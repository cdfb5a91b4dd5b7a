package worker

import (
	"errors"
	"math/rand"
	"time"

	"github.com/ds124wfegd/afritix/internal/entity"
)

// RetryPolicy decides whether a failed scheduled notification is tried again
// and when.
type RetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	jitter      func(n int64) int64
}

func NewRetryPolicy(maxAttempts int, baseDelay time.Duration) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if baseDelay <= 0 {
		baseDelay = time.Minute
	}
	return &RetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    baseDelay * 16,
		jitter:      rand.Int63n,
	}
}

// ShouldRetry takes the attempt count including the one that just failed.
func (r *RetryPolicy) ShouldRetry(attempts int, err error) (bool, time.Duration) {
	if attempts >= r.maxAttempts {
		return false, 0
	}
	if !isRetryable(err) {
		return false, 0
	}
	return true, r.Backoff(attempts)
}

// Input that failed validation once will fail the same way every time.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, entity.ErrInvalidInput) && !errors.Is(err, entity.ErrNotFound)
}

// Backoff is base * 2^(attempt-1) with +-25% jitter, capped at 16x base.
func (r *RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return r.baseDelay
	}
	if attempt > 16 {
		attempt = 16
	}

	backoff := r.baseDelay * time.Duration(1<<(attempt-1))
	if backoff > r.maxDelay {
		backoff = r.maxDelay
	}

	if quarter := int64(backoff / 4); quarter > 0 {
		backoff += time.Duration(r.jitter(2*quarter+1) - quarter)
	}

	if backoff > r.maxDelay {
		backoff = r.maxDelay
	}
	return backoff
}
