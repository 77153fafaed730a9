// Package types defines core interfaces and types shared by the retry packages
package types

import (
	"time"
)

// ExecutionState defines the state of a single retry execution
type ExecutionState int

const (
	// StateIdle execution has not started
	StateIdle ExecutionState = iota
	// StateAttempting the wrapped task is running
	StateAttempting
	// StateScheduling a retry was granted and the delay is pending
	StateScheduling
	// StateSucceeded an attempt returned a result
	StateSucceeded
	// StateExhausted the last permitted attempt failed
	StateExhausted
	// StateRejected the retry condition refused another attempt
	StateRejected
	// StateAborted the context ended the execution or the strategy could not be resolved
	StateAborted
)

// String returns the string representation of ExecutionState
func (s ExecutionState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAttempting:
		return "Attempting"
	case StateScheduling:
		return "Scheduling"
	case StateSucceeded:
		return "Succeeded"
	case StateExhausted:
		return "Exhausted"
	case StateRejected:
		return "Rejected"
	case StateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further attempt can follow this state
func (s ExecutionState) Terminal() bool {
	switch s {
	case StateSucceeded, StateExhausted, StateRejected, StateAborted:
		return true
	default:
		return false
	}
}

// Result defines the result of asynchronous execution
type Result[R any] struct {
	// Value is the execution result
	Value R

	// Error is the execution error
	Error error

	// Duration is the execution time
	Duration time.Duration

	// Attempts is the number of attempts made
	Attempts int

	// State is the terminal state the execution ended in
	State ExecutionState
}
