// Package middleware provides stock interceptors for the retry pipeline
package middleware

import (
	"context"
	"time"

	"github.com/jzx17/superretry/pkg/retry"
	"github.com/jzx17/superretry/pkg/types"
)

// Observer receives the duration and outcome of an attempt
type Observer func(ctx context.Context, attempt retry.AttemptContext, duration time.Duration, err error)

// Timing measures each attempt with clock and reports it to observe.
// A nil clock selects the real clock.
func Timing(clock types.Clock, observe Observer) retry.Middleware {
	if clock == nil {
		clock = types.NewRealClock()
	}

	return retry.MiddlewareFunc(func(ctx context.Context, task retry.Task, attempt retry.AttemptContext, next retry.Next) (any, error) {
		start := clock.Now()
		value, err := next(ctx)
		if observe != nil {
			observe(ctx, attempt, clock.Since(start), err)
		}
		return value, err
	})
}

// Annotated is a successful result together with details of the attempt that produced it
type Annotated struct {
	Data     any
	Duration time.Duration
	Attempts int
}

// Metadata replaces successful results with an Annotated value.
// Use it with Run or Execute[middleware.Annotated].
func Metadata(clock types.Clock) retry.Middleware {
	if clock == nil {
		clock = types.NewRealClock()
	}

	return retry.MiddlewareFunc(func(ctx context.Context, task retry.Task, attempt retry.AttemptContext, next retry.Next) (any, error) {
		start := clock.Now()
		value, err := next(ctx)
		if err != nil {
			return nil, err
		}

		return Annotated{
			Data:     value,
			Duration: clock.Since(start),
			Attempts: attempt.Number(),
		}, nil
	})
}

// WrapErrors passes every attempt error through wrap.
// The wrapped error is what the retry condition sees.
func WrapErrors(wrap func(attempt retry.AttemptContext, err error) error) retry.Middleware {
	return retry.MiddlewareFunc(func(ctx context.Context, task retry.Task, attempt retry.AttemptContext, next retry.Next) (any, error) {
		value, err := next(ctx)
		if err != nil {
			return value, wrap(attempt, err)
		}
		return value, nil
	})
}

// Timeout bounds each attempt with its own deadline
func Timeout(d time.Duration) retry.Middleware {
	return retry.MiddlewareFunc(func(ctx context.Context, task retry.Task, attempt retry.AttemptContext, next retry.Next) (any, error) {
		if d <= 0 {
			return next(ctx)
		}

		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx)
	})
}
