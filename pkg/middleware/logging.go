package middleware

import (
	"context"
	"log/slog"

	"github.com/jzx17/superretry/pkg/retry"
)

// Logging logs the start and outcome of every attempt
func Logging(logger *slog.Logger) retry.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return retry.MiddlewareFunc(func(ctx context.Context, task retry.Task, attempt retry.AttemptContext, next retry.Next) (any, error) {
		attrs := []any{
			"name", attempt.Name,
			"execution_id", attempt.ExecutionID.String(),
			"attempt", attempt.Number(),
		}

		logger.DebugContext(ctx, "attempt started", attrs...)

		value, err := next(ctx)
		if err != nil {
			logger.InfoContext(ctx, "attempt failed", append(attrs, "error", err)...)
			return value, err
		}

		logger.DebugContext(ctx, "attempt succeeded", attrs...)
		return value, nil
	})
}
