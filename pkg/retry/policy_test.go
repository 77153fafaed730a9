package retry

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jzx17/superretry/pkg/types"
)

type networkError struct {
	op string
}

func (e *networkError) Error() string {
	return "network failure during " + e.op
}

type validationError struct {
	field string
}

func (e *validationError) Error() string {
	return "invalid " + e.field
}

func TestNewPolicy_Validation(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		field string
	}{
		{"empty strategy", Options{MaxAttempts: 3}, "Strategy"},
		{"zero attempts", Options{Strategy: "fixed"}, "MaxAttempts"},
		{"negative attempts", Options{Strategy: "fixed", MaxAttempts: -1}, "MaxAttempts"},
		{"negative delay", Options{Strategy: "fixed", MaxAttempts: 1, InitialDelay: -time.Second}, "InitialDelay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolicy(tt.opts)
			if err == nil {
				t.Fatal("Expected configuration error")
			}

			var cfgErr *types.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected ConfigurationError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, cfgErr.Field)
			}
			if !errors.Is(err, types.ErrInvalidConfiguration) {
				t.Error("Expected error to match ErrInvalidConfiguration")
			}
		})
	}
}

func TestNewPolicy_Defaults(t *testing.T) {
	policy, err := NewPolicy(Options{Strategy: "fixed", MaxAttempts: 2})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if policy.Strategy() != "fixed" {
		t.Errorf("Expected strategy fixed, got %s", policy.Strategy())
	}
	if policy.MaxAttempts() != 2 {
		t.Errorf("Expected 2 max attempts, got %d", policy.MaxAttempts())
	}
	if policy.InitialDelay() != 0 {
		t.Errorf("Expected zero initial delay, got %v", policy.InitialDelay())
	}
	if !policy.ShouldRetry(errors.New("any"), 1) {
		t.Error("Expected every error to be retried without a condition")
	}
}

func TestPolicy_ExhaustionCheckedFirst(t *testing.T) {
	consulted := 0
	policy, err := NewPolicy(Options{
		Strategy:    "fixed",
		MaxAttempts: 2,
		RetryIf: func(err error) bool {
			consulted++
			return false
		},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if v := policy.evaluate(errors.New("boom"), 2); v != verdictExhausted {
		t.Errorf("Expected exhausted verdict, got %d", v)
	}
	if consulted != 0 {
		t.Errorf("Expected condition not to be consulted, was called %d times", consulted)
	}

	if v := policy.evaluate(errors.New("boom"), 1); v != verdictRejected {
		t.Errorf("Expected rejected verdict, got %d", v)
	}
	if consulted != 1 {
		t.Errorf("Expected condition to be consulted once, got %d", consulted)
	}
}

func TestConditions(t *testing.T) {
	errTimeout := errors.New("timeout")
	netErr := &networkError{op: "dial"}
	wrappedNet := fmt.Errorf("fetch: %w", netErr)

	tests := []struct {
		name string
		cond Condition
		err  error
		want bool
	}{
		{"as matches", IfErrorAs[*networkError](), netErr, true},
		{"as matches wrapped", IfErrorAs[*networkError](), wrappedNet, true},
		{"as rejects other type", IfErrorAs[*networkError](), &validationError{field: "id"}, false},
		{"is matches", IfErrorIs(errTimeout), fmt.Errorf("call: %w", errTimeout), true},
		{"is rejects", IfErrorIs(errTimeout), errors.New("timeout"), false},
		{"message excludes", IfMessageExcludes("Validation"), errors.New("ValidationError: bad input"), false},
		{"message allowed", IfMessageExcludes("Validation"), errors.New("connection reset"), true},
		{"not", Not(IfErrorAs[*validationError]()), &validationError{field: "id"}, false},
		{"always", AlwaysRetry, errors.New("x"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond(tt.err); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPolicy_OptionsCopied(t *testing.T) {
	opts := Options{Strategy: "fixed", MaxAttempts: 3, InitialDelay: time.Second}
	r, err := New(opts, WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	opts.MaxAttempts = 10
	opts.Strategy = "exponential"

	if r.Policy().MaxAttempts() != 3 {
		t.Errorf("Expected policy to keep 3 attempts, got %d", r.Policy().MaxAttempts())
	}
	if r.Policy().Strategy() != "fixed" {
		t.Errorf("Expected policy to keep fixed strategy, got %s", r.Policy().Strategy())
	}
}
