package middleware

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/jzx17/superretry/pkg/retry"
)

// ErrInjectedFailure is returned by FailureInjection when it fails an attempt
var ErrInjectedFailure = errors.New("injected failure")

// FailureInjection fails attempts with probability rate before the task runs.
// roll returns a number in [0, 1); nil selects math/rand.
func FailureInjection(rate float64, roll func() float64) retry.Middleware {
	if roll == nil {
		roll = rand.Float64
	}

	return retry.MiddlewareFunc(func(ctx context.Context, task retry.Task, attempt retry.AttemptContext, next retry.Next) (any, error) {
		if rate > 0 && roll() < rate {
			return nil, ErrInjectedFailure
		}
		return next(ctx)
	})
}
