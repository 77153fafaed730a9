// Package retry runs operations under a retry policy with pluggable backoff
// strategies, per-attempt middleware and retry events.
//
// Key Features:
//
// 1. Immutable policy:
//   - Strategy name, maximum attempts and initial delay are validated once by New
//   - Optional RetryIf condition decides which errors may be retried
//   - Exhaustion is checked before the condition is consulted
//
// 2. Named backoff strategies:
//   - Resolved from a strategy.Registry each time a delay is computed
//   - Strategies registered after New are picked up by the next retry
//   - Built-ins: "fixed" and "exponential"
//
// 3. Middleware pipeline:
//   - Every attempt runs through the middleware chain in registration order
//   - The first middleware registered is the outermost wrapper
//   - A middleware may short-circuit or transform the result of an attempt
//
// 4. Retry events:
//   - AttemptFailed is emitted before each retry delay starts
//   - Listeners run synchronously in registration order
//   - A panicking listener is logged and never aborts the execution
//
// 5. Execution:
//   - Synchronous and asynchronous typed execution
//   - Context cancellation interrupts a pending delay
//   - The error of the final attempt is returned unwrapped
//
// Basic usage example:
//
//	r, err := retry.New(retry.Options{
//		Strategy:     "exponential",
//		MaxAttempts:  3,
//		InitialDelay: 100 * time.Millisecond,
//	})
//	if err != nil {
//		return err
//	}
//
//	result, err := retry.Execute(r, ctx, func(ctx context.Context) (string, error) {
//		return doSomething(ctx)
//	})
//
// Retry conditions:
//
//	r, err := retry.New(retry.Options{
//		Strategy:    "fixed",
//		MaxAttempts: 5,
//		RetryIf:     retry.IfErrorAs[*NetworkError](),
//	})
//
// Middleware:
//
//	r.UseFunc(func(ctx context.Context, task retry.Task, attempt retry.AttemptContext, next retry.Next) (any, error) {
//		start := time.Now()
//		value, err := next(ctx)
//		log.Printf("attempt %d took %v", attempt.Number(), time.Since(start))
//		return value, err
//	})
//
// Events:
//
//	sub, err := r.On(retry.EventRetry, func(ctx context.Context, event retry.Event) {
//		if e, ok := event.(retry.AttemptFailed); ok {
//			log.Printf("attempt %d failed, retrying in %v: %v", e.Attempt, e.Delay, e.Err)
//		}
//	})
//	defer sub.Unsubscribe()
//
// Custom strategies:
//
//	strategy.Register("linear", strategy.Linear)
package retry
