// Package strategy provides backoff delay functions
package strategy

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// maxDelay is returned when a computation would overflow time.Duration
const maxDelay = time.Duration(math.MaxInt64)

// FixedDelay waits the base delay before every retry
func FixedDelay(attempt int, base time.Duration) time.Duration {
	return base
}

// ExponentialDelay doubles the base delay with each attempt: base * 2^(attempt-1)
func ExponentialDelay(attempt int, base time.Duration) time.Duration {
	if attempt <= 1 || base <= 0 {
		return base
	}

	shift := uint(attempt - 1)
	if shift > 62 || base > maxDelay>>shift {
		return maxDelay
	}

	return base << shift
}

// Linear grows the delay by the base delay with each attempt: base * attempt
func Linear(attempt int, base time.Duration) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	return saturatingMul(base, int64(attempt))
}

// Quadratic grows the delay with the square of the attempt: attempt^2 * base
func Quadratic(attempt int, base time.Duration) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	if attempt > math.MaxInt32 {
		return maxDelay
	}
	n := int64(attempt)
	return saturatingMul(base, n*n)
}

// Fibonacci scales the base delay by the Fibonacci number of the attempt
// (1, 1, 2, 3, 5, 8, ...)
func Fibonacci(attempt int, base time.Duration) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	// fib(92) is the largest Fibonacci number that fits in an int64
	if attempt > 92 {
		return maxDelay
	}

	prev, curr := int64(0), int64(1)
	for i := 1; i < attempt; i++ {
		prev, curr = curr, prev+curr
	}

	return saturatingMul(base, curr)
}

// Jittered returns an exponential strategy with randomized delays.
// factor is the randomization factor (0.5 means the delay lands within ±50%)
// and ceiling bounds the un-randomized interval; zero selects the library default.
func Jittered(factor float64, ceiling time.Duration) Func {
	if ceiling <= 0 {
		ceiling = backoff.DefaultMaxInterval
	}

	return func(attempt int, base time.Duration) time.Duration {
		if base <= 0 {
			return 0
		}
		if attempt <= 0 {
			attempt = 1
		}

		b := &backoff.ExponentialBackOff{
			InitialInterval:     base,
			RandomizationFactor: factor,
			Multiplier:          backoff.DefaultMultiplier,
			MaxInterval:         ceiling,
		}
		b.Reset()

		// the interval stops growing once it reaches the cap
		steps := attempt
		if steps > 64 {
			steps = 64
		}

		var delay time.Duration
		for i := 0; i < steps; i++ {
			delay = b.NextBackOff()
		}

		return delay
	}
}

// WithCap wraps fn so that its delay never exceeds limit
func WithCap(limit time.Duration, fn Func) Func {
	return func(attempt int, base time.Duration) time.Duration {
		delay := fn(attempt, base)
		if delay > limit {
			return limit
		}
		return delay
	}
}

// saturatingMul multiplies d by n, clamping to the largest duration on overflow
func saturatingMul(d time.Duration, n int64) time.Duration {
	if d <= 0 || n <= 0 {
		return 0
	}
	if int64(d) > math.MaxInt64/n {
		return maxDelay
	}
	return d * time.Duration(n)
}
