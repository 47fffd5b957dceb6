package helpers

import (
	"fmt"
	"math/rand"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type AlertRelayError struct {
	Message string
	Cause   error
}

func (e *AlertRelayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AlertRelayError) Unwrap() error {
	return e.Cause
}

// Helper to define distinct error types for type assertions if needed
type ConfigurationError struct{ AlertRelayError }
type FeedError struct{ AlertRelayError }
type DatabaseError struct{ AlertRelayError }
type ValidationError struct{ AlertRelayError }

// -----------------------------------------------------------------------------
// Backoff
// -----------------------------------------------------------------------------

// Backoff produces exponentially growing delays with jitter, capped at max.
// Reset returns it to the base delay after a healthy connection.
type Backoff struct {
	Base    time.Duration
	Max     time.Duration
	attempt int
}

// -----------------------------------------------------------------------------

// Next returns the delay to wait before the next attempt.
func (b *Backoff) Next() time.Duration {
	delay := b.Base * (1 << b.attempt)
	if delay > b.Max || delay <= 0 {
		delay = b.Max
	} else {
		b.attempt++
	}

	// Up to 25% jitter so reconnecting processes don't stampede upstream
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}

// -----------------------------------------------------------------------------

// Reset restores the base delay.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		fmt.Printf("Warning: Attempt %d/%d failed for %s: %v. Retrying in %v\n", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return nil, lastErr
}
