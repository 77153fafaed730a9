// Package retry provides the retry lifecycle event channel
package retry

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jzx17/superretry/pkg/types"
)

// EventName groups related event kinds under one subscription name
type EventName string

// EventRetry carries events about scheduled retries
const EventRetry EventName = "retry"

// EventKind tags the concrete event type
type EventKind string

// KindAttempt tags AttemptFailed events
const KindAttempt EventKind = "attempt"

// Event is implemented by every event delivered to listeners.
// Listeners switch on Kind (or on the concrete type) and ignore kinds they do not know.
type Event interface {
	Kind() EventKind
}

// AttemptFailed is emitted once for every retry that gets scheduled.
// It is not emitted for the failure that ends an execution.
type AttemptFailed struct {
	// Attempt is the 1-based number of the attempt that failed
	Attempt int

	// Delay is the wait before the next attempt
	Delay time.Duration

	// Err is the error of the failed attempt
	Err error

	// Name is the execution name
	Name string

	// ExecutionID identifies the execution
	ExecutionID uuid.UUID
}

// Kind implements Event
func (AttemptFailed) Kind() EventKind {
	return KindAttempt
}

// Listener handles events synchronously, before the retry delay starts
type Listener func(ctx context.Context, event Event)

// knownEvents lists the event names that can be subscribed to
var knownEvents = map[EventName]bool{
	EventRetry: true,
}

type listenerEntry struct {
	id       uuid.UUID
	listener Listener
}

// eventChannel delivers events to listeners in registration order
type eventChannel struct {
	listeners map[EventName][]listenerEntry
	logger    *slog.Logger
	mu        sync.RWMutex
}

func newEventChannel(logger *slog.Logger) *eventChannel {
	return &eventChannel{
		listeners: make(map[EventName][]listenerEntry),
		logger:    logger,
	}
}

// Subscription represents a registered listener
type Subscription struct {
	channel *eventChannel
	name    EventName
	id      uuid.UUID
	once    sync.Once
}

// ID returns the subscription identifier
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// Unsubscribe removes the listener. Safe to call multiple times.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.channel.remove(s.name, s.id)
	})
}

func (c *eventChannel) subscribe(name EventName, listener Listener) (*Subscription, error) {
	if !knownEvents[name] {
		return nil, types.NewConfigurationError("event "+string(name), "is not a known event name")
	}
	if listener == nil {
		return nil, types.NewConfigurationError("listener", "cannot be nil")
	}

	id := uuid.New()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[name] = append(c.listeners[name], listenerEntry{id: id, listener: listener})

	return &Subscription{channel: c, name: name, id: id}, nil
}

func (c *eventChannel) remove(name EventName, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.listeners[name]
	for i, entry := range entries {
		if entry.id == id {
			// copy so that snapshots taken by in-flight emits stay intact
			remaining := make([]listenerEntry, 0, len(entries)-1)
			remaining = append(remaining, entries[:i]...)
			remaining = append(remaining, entries[i+1:]...)
			c.listeners[name] = remaining
			return
		}
	}
}

func (c *eventChannel) count(name EventName) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.listeners[name])
}

// emit invokes every listener for name in registration order
func (c *eventChannel) emit(ctx context.Context, name EventName, event Event) {
	c.mu.RLock()
	entries := c.listeners[name]
	c.mu.RUnlock()

	for _, entry := range entries {
		c.deliver(ctx, name, event, entry)
	}
}

// deliver recovers listener panics so a broken listener cannot abort a retry sequence
func (c *eventChannel) deliver(ctx context.Context, name EventName, event Event, entry listenerEntry) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorContext(ctx, "panic in retry event listener",
				"error", r,
				"event", string(name),
				"kind", string(event.Kind()),
				"subscription_id", entry.id.String(),
				"stack", string(debug.Stack()),
			)
		}
	}()

	entry.listener(ctx, event)
}

// LogListener returns a listener that logs scheduled retries
func LogListener(logger *slog.Logger) Listener {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, event Event) {
		switch e := event.(type) {
		case AttemptFailed:
			logger.WarnContext(ctx, "retry attempt failed",
				"name", e.Name,
				"execution_id", e.ExecutionID.String(),
				"attempt", e.Attempt,
				"delay", e.Delay,
				"error", e.Err,
			)
		default:
			logger.DebugContext(ctx, "retry event", "kind", string(event.Kind()))
		}
	}
}
