// Package testutils provides simplified testing utilities and helper functions
package testutils

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ErrTransient is the default error returned by flaky tasks
var ErrTransient = errors.New("transient failure")

// TestContext simplified test context
type TestContext struct {
	t       *testing.T
	timeout time.Duration
	cleanup []func()
	mu      sync.Mutex
}

// NewTestContext creates new test context; a zero timeout selects five seconds
func NewTestContext(t *testing.T, timeout time.Duration) *TestContext {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	tc := &TestContext{t: t, timeout: timeout}
	t.Cleanup(tc.Cleanup)
	return tc
}

// Context returns context with timeout
func (tc *TestContext) Context() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), tc.timeout)
	tc.AddCleanup(cancel)
	return ctx
}

// AddCleanup adds cleanup function
func (tc *TestContext) AddCleanup(fn func()) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.cleanup = append(tc.cleanup, fn)
}

// Cleanup executes cleanup functions in reverse order
func (tc *TestContext) Cleanup() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	for i := len(tc.cleanup) - 1; i >= 0; i-- {
		tc.cleanup[i]()
	}
	tc.cleanup = nil
}

// AssertEventually waits for condition to be true
func (tc *TestContext) AssertEventually(condition func() bool, msgAndArgs ...interface{}) {
	assert.Eventually(tc.t, condition, tc.timeout, 5*time.Millisecond, msgAndArgs...)
}

// FlakyTask fails a fixed number of times before succeeding
type FlakyTask[T any] struct {
	failures int64
	calls    atomic.Int64
	value    T
	err      error
}

// NewFlakyTask creates a task that returns err for the first failures calls
// and value afterwards. A nil err selects ErrTransient.
func NewFlakyTask[T any](failures int, value T, err error) *FlakyTask[T] {
	if err == nil {
		err = ErrTransient
	}
	return &FlakyTask[T]{failures: int64(failures), value: value, err: err}
}

// Run executes the task
func (f *FlakyTask[T]) Run(ctx context.Context) (T, error) {
	var zero T
	if f.calls.Add(1) <= f.failures {
		return zero, f.err
	}
	return f.value, nil
}

// Calls returns how often the task ran
func (f *FlakyTask[T]) Calls() int {
	return int(f.calls.Load())
}

// ErrorSequence returns a task that yields errs in order, then value
func ErrorSequence[T any](value T, errs ...error) (func(ctx context.Context) (T, error), *atomic.Int64) {
	calls := &atomic.Int64{}
	return func(ctx context.Context) (T, error) {
		var zero T
		n := calls.Add(1)
		if int(n) <= len(errs) {
			return zero, errs[n-1]
		}
		return value, nil
	}, calls
}

// Recorder collects values delivered from any goroutine
type Recorder[E any] struct {
	items []E
	mu    sync.Mutex
}

// Record stores an item
func (r *Recorder[E]) Record(item E) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, item)
}

// Items returns a copy of the recorded items
func (r *Recorder[E]) Items() []E {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]E, len(r.items))
	copy(items, r.items)
	return items
}

// Len returns the number of recorded items
func (r *Recorder[E]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
