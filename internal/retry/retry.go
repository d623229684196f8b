// Package retry runs operations under a backoff policy with optional
// circuit breaking, and classifies failures into retry categories.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/paysync/internal/clock"
)

// Do calls op until it succeeds, fails with a non-retryable error, or the
// policy runs out of attempts. It sleeps between attempts on clk.
//
// When ctx is done Do returns an error matching ErrAborted; the interrupted
// attempt is not counted and OnFailure is not called.
func Do[T any](ctx context.Context, clk clock.Clock, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	backoff := p.backoff()

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return zero, aborted(ctx)
		}

		v, err := call(ctx, p.Breaker, op)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return zero, aborted(ctx)
		}

		if !p.retryable(err) {
			p.fail(attempt, err)
			return zero, err
		}

		delay, stop := backoff.Next()
		if stop {
			p.fail(attempt, err)
			return zero, err
		}
		// подсказка сервера - нижняя граница задержки
		if hint := RetryAfter(err); hint > delay {
			delay = hint
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		if p.Logger != nil {
			p.Logger.Warn("operation failed, retrying",
				"operation", p.Name,
				"attempt", attempt,
				"category", string(Classify(err)),
				"delay", delay,
				"error", err)
		}

		select {
		case <-ctx.Done():
			return zero, aborted(ctx)
		case <-clk.After(delay):
		}
	}
}

func call[T any](ctx context.Context, b *Breaker, op func(ctx context.Context) (T, error)) (T, error) {
	if b == nil {
		return op(ctx)
	}

	var v T
	err := b.Execute(ctx, func(ctx context.Context) error {
		var err error
		v, err = op(ctx)
		return err
	})
	return v, err
}

func (p Policy) fail(attempts int, err error) {
	if p.OnFailure != nil {
		p.OnFailure(attempts, err)
	}
	if p.Logger != nil {
		p.Logger.Error("operation failed",
			slog.String("operation", p.Name),
			slog.Int("attempts", attempts),
			slog.String("category", string(Classify(err))),
			slog.Any("error", err))
	}
}

func aborted(ctx context.Context) error {
	return &Error{Category: CategoryAborted, Err: fmt.Errorf("%w: %w", ErrAborted, context.Cause(ctx))}
}
