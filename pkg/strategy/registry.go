// Package strategy provides the backoff strategy registry
package strategy

import (
	"sort"
	"sync"
	"time"

	"github.com/jzx17/superretry/pkg/types"
)

// Built-in strategy names
const (
	Fixed       = "fixed"
	Exponential = "exponential"
)

// Func computes the delay before the next attempt from the number of the
// attempt that just failed (starting at 1) and the configured base delay.
type Func func(attempt int, base time.Duration) time.Duration

// Registry maps strategy names to delay functions.
// Registrations overwrite earlier ones; entries are never removed.
type Registry struct {
	strategies map[string]Func
	mu         sync.RWMutex
}

// NewRegistry creates a registry holding the built-in strategies
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	r.strategies[Fixed] = FixedDelay
	r.strategies[Exponential] = ExponentialDelay
	return r
}

// NewEmptyRegistry creates a registry without any strategies
func NewEmptyRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Func),
	}
}

// Register stores fn under name, replacing any previous registration
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return types.NewConfigurationError("strategy name", "cannot be empty")
	}
	if fn == nil {
		return types.NewConfigurationError("strategy "+name, "must be a non-nil function")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.strategies[name] = fn
	return nil
}

// Resolve returns the strategy registered under name
func (r *Registry) Resolve(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, exists := r.strategies[name]
	if !exists {
		return nil, &types.UnknownStrategyError{Name: name}
	}

	return fn, nil
}

// Has reports whether a strategy is registered under name
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.strategies[name]
	return exists
}

// Names lists registered strategy names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Global default registry
var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// resetDefaultRegistryForTesting resets the process-wide registry (for testing only)
func resetDefaultRegistryForTesting() {
	defaultRegistry = nil
	defaultRegistryOnce = sync.Once{}
}

// Register registers a strategy in the process-wide registry
func Register(name string, fn Func) error {
	return Default().Register(name, fn)
}

// Resolve looks a strategy up in the process-wide registry
func Resolve(name string) (Func, error) {
	return Default().Resolve(name)
}

// Names lists the strategies of the process-wide registry
func Names() []string {
	return Default().Names()
}
