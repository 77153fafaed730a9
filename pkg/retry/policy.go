// Package retry provides retry policy evaluation and retry conditions
package retry

import (
	"errors"
	"strings"
	"time"

	"github.com/jzx17/superretry/pkg/types"
)

// Condition is a function that determines retry conditions
type Condition func(error) bool

// Options configures a Retry. It is validated once by New and frozen into a Policy.
type Options struct {
	// Strategy is the registered backoff strategy name, e.g. "fixed" or "exponential"
	Strategy string

	// MaxAttempts is the total number of attempts, including the first one
	MaxAttempts int

	// InitialDelay is the base delay handed to the strategy
	InitialDelay time.Duration

	// RetryIf decides whether an error may be retried; nil retries every error
	RetryIf Condition
}

// Policy is the immutable retry configuration of a Retry
type Policy struct {
	strategy     string
	maxAttempts  int
	initialDelay time.Duration
	retryIf      Condition
}

// verdict is the outcome of evaluating a failed attempt against the policy
type verdict int

const (
	verdictRetry verdict = iota
	verdictExhausted
	verdictRejected
)

// NewPolicy validates opts and creates a policy
func NewPolicy(opts Options) (Policy, error) {
	if opts.Strategy == "" {
		return Policy{}, types.NewConfigurationError("Strategy", "cannot be empty")
	}
	if opts.MaxAttempts < 1 {
		return Policy{}, types.NewConfigurationError("MaxAttempts", "must be at least 1")
	}
	if opts.InitialDelay < 0 {
		return Policy{}, types.NewConfigurationError("InitialDelay", "cannot be negative")
	}

	retryIf := opts.RetryIf
	if retryIf == nil {
		retryIf = AlwaysRetry
	}

	return Policy{
		strategy:     opts.Strategy,
		maxAttempts:  opts.MaxAttempts,
		initialDelay: opts.InitialDelay,
		retryIf:      retryIf,
	}, nil
}

// Strategy returns the backoff strategy name
func (p Policy) Strategy() string {
	return p.strategy
}

// MaxAttempts returns the maximum number of attempts
func (p Policy) MaxAttempts() int {
	return p.maxAttempts
}

// InitialDelay returns the base delay
func (p Policy) InitialDelay() time.Duration {
	return p.initialDelay
}

// ShouldRetry determines whether another attempt may follow the given
// failed attempt (attempts counts the attempts already made)
func (p Policy) ShouldRetry(err error, attempts int) bool {
	return p.evaluate(err, attempts) == verdictRetry
}

// evaluate checks exhaustion before consulting the retry condition
func (p Policy) evaluate(err error, attempts int) verdict {
	if attempts >= p.maxAttempts {
		return verdictExhausted
	}
	if !p.retryIf(err) {
		return verdictRejected
	}
	return verdictRetry
}

// AlwaysRetry is the default retry condition
func AlwaysRetry(err error) bool {
	return true
}

// IfErrorAs retries errors whose chain contains an error of type E
func IfErrorAs[E error]() Condition {
	return func(err error) bool {
		var target E
		return errors.As(err, &target)
	}
}

// IfErrorIs retries errors matching any of the targets
func IfErrorIs(targets ...error) Condition {
	return func(err error) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}

// IfMessageExcludes retries errors whose message contains none of the substrings
func IfMessageExcludes(substrs ...string) Condition {
	return func(err error) bool {
		if err == nil {
			return true
		}
		msg := err.Error()
		for _, s := range substrs {
			if s != "" && strings.Contains(msg, s) {
				return false
			}
		}
		return true
	}
}

// Not inverts a condition
func Not(cond Condition) Condition {
	return func(err error) bool {
		return !cond(err)
	}
}
