package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNilTask", ErrNilTask},
		{"ErrInvalidConfiguration", ErrInvalidConfiguration},
		{"ErrUnknownStrategy", ErrUnknownStrategy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Errorf("expected error, got nil")
			}
			if tt.err.Error() == "" {
				t.Errorf("expected non-empty error message")
			}
		})
	}
}

func TestConfigurationError(t *testing.T) {
	t.Run("With Field", func(t *testing.T) {
		err := NewConfigurationError("MaxAttempts", "must be at least 1")

		expectedMsg := "invalid configuration: MaxAttempts must be at least 1"
		if err.Error() != expectedMsg {
			t.Errorf("expected message %q, got %q", expectedMsg, err.Error())
		}
	})

	t.Run("Without Field", func(t *testing.T) {
		err := NewConfigurationError("", "nothing to run")

		expectedMsg := "invalid configuration: nothing to run"
		if err.Error() != expectedMsg {
			t.Errorf("expected message %q, got %q", expectedMsg, err.Error())
		}
	})

	t.Run("Matches Sentinel Through Wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("loading policy: %w", NewConfigurationError("Strategy", "cannot be empty"))

		if !errors.Is(wrapped, ErrInvalidConfiguration) {
			t.Error("expected wrapped error to match ErrInvalidConfiguration")
		}
		if !IsConfigurationError(wrapped) {
			t.Error("expected IsConfigurationError to return true")
		}
		if errors.Is(wrapped, ErrUnknownStrategy) {
			t.Error("configuration error should not match ErrUnknownStrategy")
		}
	})

	t.Run("Plain Error Is Not Configuration Error", func(t *testing.T) {
		if IsConfigurationError(errors.New("boom")) {
			t.Error("expected IsConfigurationError to return false")
		}
		if IsConfigurationError(nil) {
			t.Error("expected IsConfigurationError(nil) to return false")
		}
	})
}

func TestUnknownStrategyError(t *testing.T) {
	err := &UnknownStrategyError{Name: "quadratic"}

	expectedMsg := `unknown backoff strategy "quadratic"`
	if err.Error() != expectedMsg {
		t.Errorf("expected message %q, got %q", expectedMsg, err.Error())
	}

	if !errors.Is(err, ErrUnknownStrategy) {
		t.Error("expected error to match ErrUnknownStrategy")
	}

	var target *UnknownStrategyError
	if !errors.As(fmt.Errorf("resolve: %w", err), &target) {
		t.Fatal("expected errors.As to find UnknownStrategyError")
	}
	if target.Name != "quadratic" {
		t.Errorf("expected name 'quadratic', got %q", target.Name)
	}
}

func TestResultTypeError(t *testing.T) {
	err := &ResultTypeError{Expected: "string", Actual: "map[string]interface {}"}

	expectedMsg := "result type mismatch: expected string, got map[string]interface {}"
	if err.Error() != expectedMsg {
		t.Errorf("expected message %q, got %q", expectedMsg, err.Error())
	}
}
