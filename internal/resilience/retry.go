package resilience

import (
	"context"
	"time"
)

// RetryConfig bounds a retry loop. Backoff doubles per attempt up to
// MaxBackoff. A nil RetryIf retries every error; otherwise errors it
// rejects are returned immediately.
type RetryConfig struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
	RetryIf    func(error) bool
}

// Retry runs op up to Attempts times, sleeping between attempts. The
// context cancels both the wait and the loop. The last error is
// returned when every attempt fails.
func Retry(ctx context.Context, cfg RetryConfig, op func() error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}

	var lastErr error
	delay := cfg.Backoff

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = op(); lastErr == nil {
			return nil
		}

		if cfg.RetryIf != nil && !cfg.RetryIf(lastErr) {
			return lastErr
		}

		if attempt == cfg.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > cfg.MaxBackoff {
			delay = cfg.MaxBackoff
		}
	}

	return lastErr
}
