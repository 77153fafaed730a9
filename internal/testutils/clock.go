package testutils

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"

	"github.com/jzx17/superretry/pkg/types"
)

// NewMockClock creates a mock clock for testing
func NewMockClock(t testing.TB) *quartz.Mock {
	return quartz.NewMock(t)
}

// ClockWrapper wraps quartz.Mock to implement our Clock interface.
// Timers only fire when the test advances the mock.
type ClockWrapper struct {
	*quartz.Mock
	stopped atomic.Int64
}

// NewClockWrapper creates a new ClockWrapper
func NewClockWrapper(mock *quartz.Mock) *ClockWrapper {
	return &ClockWrapper{Mock: mock}
}

// Now returns the current time
func (c *ClockWrapper) Now() time.Time {
	return c.Mock.Now()
}

// Since returns the time elapsed since t
func (c *ClockWrapper) Since(t time.Time) time.Duration {
	return c.Mock.Since(t)
}

// NewTimer creates a new Timer
func (c *ClockWrapper) NewTimer(d time.Duration) types.Timer {
	return &TimerWrapper{timer: c.Mock.NewTimer(d), clock: c}
}

// StoppedTimers returns how many pending timers were stopped before firing
func (c *ClockWrapper) StoppedTimers() int {
	return int(c.stopped.Load())
}

// TimerWrapper wraps quartz timer
type TimerWrapper struct {
	timer *quartz.Timer
	clock *ClockWrapper
}

func (t *TimerWrapper) C() <-chan time.Time {
	return t.timer.C
}

func (t *TimerWrapper) Stop() bool {
	stopped := t.timer.Stop()
	if stopped {
		t.clock.stopped.Add(1)
	}
	return stopped
}

// RecordingClock is a Clock whose timers fire immediately after moving the
// mock forward by their duration. Requested durations are recorded in order.
type RecordingClock struct {
	mock   *quartz.Mock
	delays []time.Duration
	mu     sync.Mutex
}

// NewRecordingClock creates a recording clock over a fresh mock
func NewRecordingClock(t testing.TB) *RecordingClock {
	return &RecordingClock{mock: quartz.NewMock(t)}
}

// Now returns the current time
func (c *RecordingClock) Now() time.Time {
	return c.mock.Now()
}

// Since returns the time elapsed since t
func (c *RecordingClock) Since(t time.Time) time.Duration {
	return c.mock.Since(t)
}

// NewTimer records d, advances the mock by d and returns a fired timer
func (c *RecordingClock) NewTimer(d time.Duration) types.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.delays = append(c.delays, d)
	if d > 0 {
		c.mock.Advance(d)
	}

	fired := make(chan time.Time, 1)
	fired <- c.mock.Now()
	return &firedTimer{c: fired}
}

// Delays returns the recorded timer durations
func (c *RecordingClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	delays := make([]time.Duration, len(c.delays))
	copy(delays, c.delays)
	return delays
}

// Elapsed returns the sum of all recorded durations
func (c *RecordingClock) Elapsed() time.Duration {
	var total time.Duration
	for _, d := range c.Delays() {
		total += d
	}
	return total
}

type firedTimer struct {
	c chan time.Time
}

func (t *firedTimer) C() <-chan time.Time {
	return t.c
}

func (t *firedTimer) Stop() bool {
	return false
}
