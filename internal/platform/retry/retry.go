// Package retry runs an operation until it succeeds, the error is classified
// permanent, or the attempts run out. Backoff doubles up to MaxBackoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

type Action int

const (
	Stop  Action = iota // permanent error, abort immediately
	Retry               // transient error, back off and try again
)

type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	OnRetry        func(attempt int, err error, backoff time.Duration)
}

type Classify func(err error) Action

// Always retries every error.
func Always(error) Action { return Retry }

// On retries errors matching one of the targets and stops on everything else.
func On(targets ...error) Classify {
	return func(err error) Action {
		for _, target := range targets {
			if errors.Is(err, target) {
				return Retry
			}
		}
		return Stop
	}
}

// Unless stops on any error matching one of the targets and retries the rest.
func Unless(targets ...error) Classify {
	return func(err error) Action {
		for _, target := range targets {
			if errors.Is(err, target) {
				return Stop
			}
		}
		return Retry
	}
}

func Do[T any](ctx context.Context, clock clockwork.Clock, p Policy, classify Classify, op func() (T, error)) (T, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	backoff := p.InitialBackoff

	var zero T
	for attempt := 1; ; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}

		if classify(err) == Stop {
			return zero, &PermanentError{Err: err}
		}
		if attempt == p.MaxAttempts {
			return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		select {
		case <-clock.After(backoff):
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}

		backoff *= 2
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
}

func DoVoid(ctx context.Context, clock clockwork.Clock, p Policy, classify Classify, op func() error) error {
	_, err := Do(ctx, clock, p, classify, func() (struct{}, error) { return struct{}{}, op() })
	return err
}

type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
