// Package resilient wraps collaborator calls with bounded retries,
// exponential backoff with jitter, and server-directed rate-limit waits.
// The workflow scheduler stays oblivious to transient faults; adapters that
// talk to external services route their calls through Do.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"time"
)

// Config controls retry behavior for one Do call.
type Config struct {
	// MaxAttempts is the total number of calls, first try included
	// (default: 3).
	MaxAttempts int
	// BaseDelay is the backoff before the first retry; it doubles per
	// retry (default: 1s).
	BaseDelay time.Duration
	// MaxDelay caps the backoff (default: 30s).
	MaxDelay time.Duration
	// JitterFactor randomizes each delay by ±factor (default 0.25 when
	// set by DefaultConfig; zero means no jitter).
	JitterFactor float64
	// Classify reports whether an error is worth retrying. Nil means
	// IsTransient.
	Classify func(error) bool
}

// DefaultConfig returns the retry settings used when a field is unset.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		BaseDelay:    1 * time.Second,
		MaxDelay:     30 * time.Second,
		JitterFactor: 0.25,
	}
}

// TransientError marks an error as retryable regardless of its shape.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err so IsTransient reports true for it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// PermanentError marks an error as not worth retrying.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return fmt.Sprintf("permanent: %v", e.Err) }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so IsTransient reports false for it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsTransient reports whether an error is worth retrying: explicitly marked
// transient, or a network timeout. Explicitly permanent errors and anything
// unrecognized are not retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// waiter is implemented by errors carrying a server-directed retry time,
// such as a rate-limit reset.
type waiter interface {
	WaitUntil() time.Time
}

// Do calls fn until it succeeds, a non-retryable error occurs, the context
// is canceled, or the attempt budget runs out. Retryable failures sleep an
// exponentially growing, jittered delay between attempts. When an error
// carries a WaitUntil time, Do sleeps until that time instead and the
// backoff schedule does not escalate; such waits still consume attempts, so
// a permanently rate-limited service cannot spin forever.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	defaults := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaults.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaults.MaxDelay
	}
	classify := cfg.Classify
	if classify == nil {
		classify = IsTransient
	}

	var lastErr error
	backoffs := 0

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var w waiter
		rateLimited := errors.As(err, &w)
		if !rateLimited && !classify(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		if rateLimited {
			if err := sleep(ctx, time.Until(w.WaitUntil())); err != nil {
				return err
			}
			continue
		}

		if err := sleep(ctx, backoff(backoffs, cfg)); err != nil {
			return err
		}
		backoffs++
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

// sleep waits for d or until the context is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// backoff computes the nth retry delay: base doubled per backoff, capped,
// then jittered.
func backoff(n int, cfg Config) time.Duration {
	delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(n)))
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}

	if cfg.JitterFactor > 0 {
		jitter := float64(delay) * cfg.JitterFactor
		delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
		if delay < 0 {
			delay = cfg.BaseDelay
		}
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return delay
}
