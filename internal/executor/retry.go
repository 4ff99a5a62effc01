package executor

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/seventech-gov/browser-use/pkg/schema"
)

// RetryPolicy bounds per-step retry behavior. Attempts = MaxRetries + 1.
type RetryPolicy struct {
	MaxRetries int           `json:"max_retries"`
	Delay      time.Duration `json:"delay"`
	Backoff    string        `json:"backoff"` // constant | linear | exponential
	MaxDelay   time.Duration `json:"max_delay,omitempty"`
}

// isRetryableError classifies whether a step failure is worth another attempt.
// Timeouts and transport flakes are; validation and cancellation are not.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Cancellation means the whole execution is being torn down.
	if errors.Is(err, context.Canceled) {
		return false
	}

	switch schema.ErrorCode(err) {
	case schema.ErrCodeValidation, schema.ErrCodeMissingParameter, schema.ErrCodeCancelled:
		return false
	case schema.ErrCodeSurface, schema.ErrCodeTimeout:
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"timeout",
		"net::",
		"navigation failed",
		"element is not attached",
		"service unavailable",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	// Default: retryable — the policy's attempt bound is the real limiter.
	return true
}

// computeBackoff calculates the delay before retry attempt n (zero-based).
func computeBackoff(policy RetryPolicy, attempt int) time.Duration {
	if policy.Delay <= 0 {
		return 0
	}

	var delay time.Duration
	switch policy.Backoff {
	case "exponential":
		multiplier := time.Duration(1)
		for i := 0; i < attempt; i++ {
			multiplier *= 2
		}
		delay = policy.Delay * multiplier
	case "linear":
		delay = policy.Delay * time.Duration(attempt+1)
	default: // constant
		delay = policy.Delay
	}

	if policy.MaxDelay > 0 && delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}
	return delay
}

// waitForBackoff sleeps for delay or returns early on context cancellation.
func waitForBackoff(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
