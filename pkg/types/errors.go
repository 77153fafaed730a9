// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrNilTask indicates Execute was called without a task
	ErrNilTask = errors.New("task cannot be nil")

	// ErrInvalidConfiguration matches every ConfigurationError via errors.Is
	ErrInvalidConfiguration = errors.New("invalid retry configuration")

	// ErrUnknownStrategy matches every UnknownStrategyError via errors.Is
	ErrUnknownStrategy = errors.New("unknown backoff strategy")
)

// ConfigurationError reports an invalid policy, strategy registration or subscription.
// It is raised when the configuration is supplied and is never retried.
type ConfigurationError struct {
	// Field is the offending option, e.g. "MaxAttempts"
	Field string

	// Reason describes what is wrong with it
	Reason string
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidConfiguration
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

// UnknownStrategyError reports a strategy name that is not registered at the
// moment a delay has to be computed.
type UnknownStrategyError struct {
	Name string
}

// Error implements the error interface
func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown backoff strategy %q", e.Name)
}

// Is reports whether target is ErrUnknownStrategy
func (e *UnknownStrategyError) Is(target error) bool {
	return target == ErrUnknownStrategy
}

// ResultTypeError is returned by typed execution when middleware replaced the
// task result with a value of a different type.
type ResultTypeError struct {
	Expected string
	Actual   string
}

// Error implements the error interface
func (e *ResultTypeError) Error() string {
	return fmt.Sprintf("result type mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
