// Package retry provides retry executor implementation
package retry

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jzx17/superretry/pkg/strategy"
	"github.com/jzx17/superretry/pkg/types"
)

// DefaultName is the execution name used when none is given
const DefaultName = "default"

// Retry runs operations under a retry policy, through a middleware
// pipeline, emitting retry events between attempts.
type Retry struct {
	policy     Policy
	registry   *strategy.Registry
	events     *eventChannel
	clock      types.Clock
	logger     *slog.Logger
	middleware []Middleware
	mwMu       sync.RWMutex
	stats      RetryStats
	statsMu    sync.RWMutex
}

// ExecuteFunc is the function type to retry
type ExecuteFunc[T any] func(ctx context.Context) (T, error)

// RetryStats contains retry statistics
type RetryStats struct {
	TotalExecutions int64         // executions started
	TotalAttempts   int64         // total attempt count
	TotalRetries    int64         // retries scheduled
	TotalSuccesses  int64         // executions that succeeded
	TotalExhausted  int64         // executions that ran out of attempts
	TotalRejected   int64         // executions stopped by the retry condition
	TotalAborted    int64         // executions stopped by cancellation or an unresolvable strategy
	AverageAttempts float64       // average attempts per finished execution
	LastRetryTime   time.Time     // last time a retry was scheduled
	TotalRetryDelay time.Duration // total scheduled delay
}

// Option configures a Retry
type Option func(*Retry)

// WithClock sets the clock used for delays and durations
func WithClock(clock types.Clock) Option {
	return func(r *Retry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegistry sets the strategy registry; the process-wide registry is used by default
func WithRegistry(registry *strategy.Registry) Option {
	return func(r *Retry) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// CallOption configures a single Run call
type CallOption func(*callConfig)

type callConfig struct {
	name string
}

// WithName sets the execution name reported to middleware, events and logs
func WithName(name string) CallOption {
	return func(c *callConfig) {
		c.name = name
	}
}

// New validates opts and creates a Retry.
// The strategy name is resolved when the first delay is computed, not here,
// so strategies may be registered after construction.
func New(opts Options, options ...Option) (*Retry, error) {
	policy, err := NewPolicy(opts)
	if err != nil {
		return nil, err
	}

	r := &Retry{
		policy:   policy,
		registry: strategy.Default(),
		clock:    types.NewRealClock(),
		logger:   slog.Default(),
	}

	for _, opt := range options {
		opt(r)
	}

	r.events = newEventChannel(r.logger)

	return r, nil
}

// Policy returns the frozen policy
func (r *Retry) Policy() Policy {
	return r.policy
}

// Use appends middleware. Executions already in flight keep the chain they started with.
func (r *Retry) Use(mw Middleware) {
	if mw == nil {
		panic("retry: middleware cannot be nil")
	}
	if fn, ok := mw.(MiddlewareFunc); ok && fn == nil {
		panic("retry: middleware cannot be nil")
	}

	r.mwMu.Lock()
	defer r.mwMu.Unlock()
	r.middleware = append(r.middleware, mw)
}

// UseFunc appends a middleware function
func (r *Retry) UseFunc(fn func(ctx context.Context, task Task, attempt AttemptContext, next Next) (any, error)) {
	if fn == nil {
		panic("retry: middleware cannot be nil")
	}
	r.Use(MiddlewareFunc(fn))
}

// On registers a listener for the named event
func (r *Retry) On(name EventName, listener Listener) (*Subscription, error) {
	return r.events.subscribe(name, listener)
}

// ListenerCount returns the number of listeners registered for name
func (r *Retry) ListenerCount(name EventName) int {
	return r.events.count(name)
}

// Run executes task with retries and returns the last result or error.
// The error of the final attempt is returned unwrapped.
func (r *Retry) Run(ctx context.Context, task Task, opts ...CallOption) (any, error) {
	cfg := callConfig{name: DefaultName}
	for _, opt := range opts {
		opt(&cfg)
	}

	rep := r.run(ctx, cfg.name, task)
	return rep.value, rep.err
}

// Execute executes a function with retry logic
func Execute[T any](r *Retry, ctx context.Context, fn ExecuteFunc[T]) (T, error) {
	return ExecuteWithName(r, ctx, DefaultName, fn)
}

// ExecuteWithName executes a function with retry logic (with name for middleware and events)
func ExecuteWithName[T any](r *Retry, ctx context.Context, name string, fn ExecuteFunc[T]) (T, error) {
	rep := r.run(ctx, name, erase(fn))
	return typed[T](rep)
}

// ExecuteAsync executes a function with retry asynchronously
func ExecuteAsync[T any](r *Retry, ctx context.Context, fn ExecuteFunc[T]) <-chan types.Result[T] {
	return ExecuteAsyncWithName(r, ctx, DefaultName, fn)
}

// ExecuteAsyncWithName executes a function with retry asynchronously (with name)
func ExecuteAsyncWithName[T any](r *Retry, ctx context.Context, name string, fn ExecuteFunc[T]) <-chan types.Result[T] {
	resultChan := make(chan types.Result[T], 1)

	go func() {
		defer close(resultChan)

		start := r.clock.Now()
		rep := r.run(ctx, name, erase(fn))
		value, err := typed[T](rep)

		resultChan <- types.Result[T]{
			Value:    value,
			Error:    err,
			Duration: r.clock.Since(start),
			Attempts: rep.attempts,
			State:    rep.state,
		}
	}()

	return resultChan
}

// Stats gets retry statistics
func (r *Retry) Stats() RetryStats {
	r.statsMu.RLock()
	defer r.statsMu.RUnlock()
	return r.stats
}

// ResetStats resets statistics
func (r *Retry) ResetStats() {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	r.stats = RetryStats{}
}

// report is the outcome of one execution
type report struct {
	value    any
	err      error
	attempts int
	state    types.ExecutionState
}

// execution tracks the state of one run
type execution struct {
	id       uuid.UUID
	name     string
	state    types.ExecutionState
	attempts int
	logger   *slog.Logger
}

func (r *Retry) run(ctx context.Context, name string, task Task) report {
	if task == nil {
		return report{err: types.ErrNilTask, state: types.StateIdle}
	}

	exec := &execution{
		id:    uuid.New(),
		name:  name,
		state: types.StateIdle,
	}
	exec.logger = r.logger.With("name", name, "execution_id", exec.id.String())

	invoke := newChainBuilder(r.snapshotMiddleware()).Build(task)

	r.updateStats(func(stats *RetryStats) {
		stats.TotalExecutions++
	})

	for {
		// check if context is cancelled
		if err := ctx.Err(); err != nil {
			return r.finish(ctx, exec, types.StateAborted, nil, err)
		}

		exec.state = types.StateAttempting
		attempt := AttemptContext{
			Attempt:     exec.attempts,
			Name:        name,
			ExecutionID: exec.id,
		}
		exec.attempts++

		r.updateStats(func(stats *RetryStats) {
			stats.TotalAttempts++
		})

		value, err := invoke(ctx, attempt)
		if err == nil {
			return r.finish(ctx, exec, types.StateSucceeded, value, nil)
		}

		switch r.policy.evaluate(err, exec.attempts) {
		case verdictExhausted:
			return r.finish(ctx, exec, types.StateExhausted, nil, err)
		case verdictRejected:
			return r.finish(ctx, exec, types.StateRejected, nil, err)
		}

		delay, resolveErr := r.nextDelay(exec.attempts)
		if resolveErr != nil {
			exec.logger.WarnContext(ctx, "cannot schedule retry",
				"attempt", exec.attempts,
				"strategy", r.policy.Strategy(),
				"error", err,
			)
			return r.finish(ctx, exec, types.StateAborted, nil, resolveErr)
		}

		exec.state = types.StateScheduling
		r.events.emit(ctx, EventRetry, AttemptFailed{
			Attempt:     exec.attempts,
			Delay:       delay,
			Err:         err,
			Name:        name,
			ExecutionID: exec.id,
		})

		r.updateStats(func(stats *RetryStats) {
			stats.TotalRetries++
			stats.LastRetryTime = r.clock.Now()
			stats.TotalRetryDelay += delay
		})

		exec.logger.DebugContext(ctx, "retry scheduled",
			"attempt", exec.attempts,
			"delay", delay,
			"error", err,
		)

		if err := r.wait(ctx, delay); err != nil {
			return r.finish(ctx, exec, types.StateAborted, nil, err)
		}
	}
}

// nextDelay resolves the strategy by name and computes the delay after the given attempt
func (r *Retry) nextDelay(attempt int) (time.Duration, error) {
	fn, err := r.registry.Resolve(r.policy.Strategy())
	if err != nil {
		return 0, err
	}

	delay := fn(attempt, r.policy.InitialDelay())
	if delay < 0 {
		delay = 0
	}

	return delay, nil
}

// wait blocks for delay or until ctx is done
func (r *Retry) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := r.clock.NewTimer(delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C():
		return nil
	}
}

func (r *Retry) finish(ctx context.Context, exec *execution, state types.ExecutionState, value any, err error) report {
	exec.state = state

	r.updateStats(func(stats *RetryStats) {
		switch state {
		case types.StateSucceeded:
			stats.TotalSuccesses++
		case types.StateExhausted:
			stats.TotalExhausted++
		case types.StateRejected:
			stats.TotalRejected++
		case types.StateAborted:
			stats.TotalAborted++
		}
		stats.updateAverageAttempts()
	})

	switch state {
	case types.StateSucceeded:
		exec.logger.DebugContext(ctx, "retry execution succeeded", "attempts", exec.attempts)
	case types.StateExhausted:
		exec.logger.WarnContext(ctx, "retry attempts exhausted",
			"attempts", exec.attempts,
			"max_attempts", r.policy.MaxAttempts(),
			"error", err,
		)
	default:
		exec.logger.DebugContext(ctx, "retry execution stopped",
			"state", state.String(),
			"attempts", exec.attempts,
			"error", err,
		)
	}

	return report{
		value:    value,
		err:      err,
		attempts: exec.attempts,
		state:    state,
	}
}

// snapshotMiddleware copies the middleware list for one execution
func (r *Retry) snapshotMiddleware() []Middleware {
	r.mwMu.RLock()
	defer r.mwMu.RUnlock()

	mws := make([]Middleware, len(r.middleware))
	copy(mws, r.middleware)
	return mws
}

// updateStats updates statistics (thread-safe)
func (r *Retry) updateStats(fn func(*RetryStats)) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	fn(&r.stats)
}

// updateAverageAttempts updates average attempt count
func (s *RetryStats) updateAverageAttempts() {
	finished := s.TotalSuccesses + s.TotalExhausted + s.TotalRejected + s.TotalAborted
	if finished > 0 {
		s.AverageAttempts = float64(s.TotalAttempts) / float64(finished)
	}
}

// erase adapts a typed function to a Task
func erase[T any](fn ExecuteFunc[T]) Task {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context) (any, error) {
		return fn(ctx)
	}
}

// typed converts a report back to the caller's result type
func typed[T any](rep report) (T, error) {
	var zero T
	if rep.err != nil {
		return zero, rep.err
	}
	if rep.value == nil {
		return zero, nil
	}

	value, ok := rep.value.(T)
	if !ok {
		return zero, &types.ResultTypeError{
			Expected: reflect.TypeOf((*T)(nil)).Elem().String(),
			Actual:   reflect.TypeOf(rep.value).String(),
		}
	}

	return value, nil
}
