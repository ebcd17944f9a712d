package db

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/apperr"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

// IsRetryable decides whether a failed attempt should be tried again.
type IsRetryable func(err error) bool

const (
	DefaultWaitAttempts = 30
	DefaultWaitDelay    = time.Second
)

// WithRetries executes op up to maxRetries+1 times, sleeping delay between attempts, as long
// as the failure is retryable. The last error is returned when attempts run out.
func WithRetries(op Operation, maxRetries int, delay time.Duration, retryable IsRetryable) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries || !retryable(err) {
			break
		}
		time.Sleep(delay)
	}
	return err
}

// IsUnavailable reports whether err means the database could not be reached yet.
// Configuration errors never become retryable.
func IsUnavailable(err error) bool {
	return err != nil && !errors.Is(err, apperr.ErrConfiguration) && !errors.Is(err, context.Canceled)
}

// WaitFor pings the database until it answers or attempts run out. Used at process start,
// when the database container may still be booting.
func WaitFor(ctx context.Context, p *Provider, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	n := 0
	return WithRetries(func() error {
		n++
		err := p.Ping(ctx)
		if err != nil && n < attempts {
			log.Printf("Database not ready (attempt %d/%d): %v", n, attempts, err)
		}
		return err
	}, attempts-1, delay, IsUnavailable)
}
