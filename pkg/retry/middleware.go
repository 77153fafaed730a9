// Package retry provides the per-attempt middleware pipeline
package retry

import (
	"context"

	"github.com/google/uuid"
)

// Task is the type-erased operation run on every attempt
type Task func(ctx context.Context) (any, error)

// Next continues the middleware chain; the innermost Next runs the task
type Next func(ctx context.Context) (any, error)

// AttemptContext describes the attempt a middleware is wrapping.
// A fresh value is created for every attempt.
type AttemptContext struct {
	// Attempt is the 0-based index of the attempt in progress
	Attempt int

	// Name is the execution name given to ExecuteWithName or WithName
	Name string

	// ExecutionID identifies the execution the attempt belongs to
	ExecutionID uuid.UUID
}

// Number returns the 1-based attempt number
func (a AttemptContext) Number() int {
	return a.Attempt + 1
}

// Middleware intercepts a single attempt. It either calls next, possibly
// transforming the result or error, or returns without calling it to
// short-circuit the attempt.
type Middleware interface {
	Intercept(ctx context.Context, task Task, attempt AttemptContext, next Next) (any, error)
}

// MiddlewareFunc adapts a function to the Middleware interface
type MiddlewareFunc func(ctx context.Context, task Task, attempt AttemptContext, next Next) (any, error)

// Intercept implements Middleware
func (f MiddlewareFunc) Intercept(ctx context.Context, task Task, attempt AttemptContext, next Next) (any, error) {
	return f(ctx, task, attempt, next)
}

var _ Middleware = MiddlewareFunc(nil)

// attemptFunc runs one attempt through the composed chain
type attemptFunc func(ctx context.Context, attempt AttemptContext) (any, error)

// chainBuilder composes an ordered middleware list around a task.
// The first middleware is the outermost wrapper.
type chainBuilder struct {
	middleware []Middleware
}

// newChainBuilder creates a builder over a private copy of middleware
func newChainBuilder(middleware []Middleware) *chainBuilder {
	mws := make([]Middleware, len(middleware))
	copy(mws, middleware)

	return &chainBuilder{middleware: mws}
}

// Build builds the function that runs one attempt
func (b *chainBuilder) Build(task Task) attemptFunc {
	middleware := b.middleware
	if len(middleware) == 0 {
		return func(ctx context.Context, attempt AttemptContext) (any, error) {
			return task(ctx)
		}
	}

	return func(ctx context.Context, attempt AttemptContext) (any, error) {
		var link func(i int) Next
		link = func(i int) Next {
			if i == len(middleware) {
				return Next(task)
			}
			mw := middleware[i]
			return func(ctx context.Context) (any, error) {
				return mw.Intercept(ctx, task, attempt, link(i+1))
			}
		}

		return link(0)(ctx)
	}
}
