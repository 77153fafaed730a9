package retry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/superretry/internal/testutils"
	"github.com/jzx17/superretry/pkg/strategy"
	"github.com/jzx17/superretry/pkg/types"
)

func TestOn_UnknownEvent(t *testing.T) {
	r, _ := newTestRetry(t, Options{Strategy: strategy.Fixed, MaxAttempts: 1})

	sub, err := r.On("succeeded", func(ctx context.Context, event Event) {})

	assert.Nil(t, sub)
	assert.True(t, types.IsConfigurationError(err))
	assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
}

func TestOn_NilListener(t *testing.T) {
	r, _ := newTestRetry(t, Options{Strategy: strategy.Fixed, MaxAttempts: 1})

	_, err := r.On(EventRetry, nil)
	assert.True(t, types.IsConfigurationError(err))
}

func TestListeners_RegistrationOrder(t *testing.T) {
	r, _ := newTestRetry(t, Options{Strategy: strategy.Fixed, MaxAttempts: 2})

	var order []string
	for _, label := range []string{"first", "second", "third"} {
		label := label
		_, err := r.On(EventRetry, func(ctx context.Context, event Event) {
			order = append(order, label)
		})
		require.NoError(t, err)
	}

	_, err := Execute(r, context.Background(), testutils.NewFlakyTask(1, "ok", nil).Run)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestListeners_RunBeforeDelay(t *testing.T) {
	r, clock := newTestRetry(t, Options{Strategy: strategy.Fixed, MaxAttempts: 2, InitialDelay: time.Second})

	var delaysAtEvent int
	_, err := r.On(EventRetry, func(ctx context.Context, event Event) {
		delaysAtEvent = len(clock.Delays())
	})
	require.NoError(t, err)

	_, err = Execute(r, context.Background(), testutils.NewFlakyTask(1, "ok", nil).Run)
	require.NoError(t, err)

	assert.Zero(t, delaysAtEvent)
	assert.Len(t, clock.Delays(), 1)
}

func TestSubscription_Unsubscribe(t *testing.T) {
	r, _ := newTestRetry(t, Options{Strategy: strategy.Fixed, MaxAttempts: 3})

	calls := 0
	sub, err := r.On(EventRetry, func(ctx context.Context, event Event) {
		calls++
	})
	require.NoError(t, err)
	other, err := r.On(EventRetry, func(ctx context.Context, event Event) {
		calls++
	})
	require.NoError(t, err)
	keep := recordEvents(t, r)
	assert.Equal(t, 3, r.ListenerCount(EventRetry))

	assert.NotEqual(t, uuid.Nil, sub.ID())
	assert.NotEqual(t, sub.ID(), other.ID())

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 2, r.ListenerCount(EventRetry))

	other.Unsubscribe()
	assert.Equal(t, 1, r.ListenerCount(EventRetry))

	_, err = Execute(r, context.Background(), testutils.NewFlakyTask(2, "ok", nil).Run)
	require.NoError(t, err)

	assert.Zero(t, calls)
	assert.Equal(t, 2, keep.Len())
}

func TestListeners_PanicRecovered(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	r, _ := newTestRetry(t, Options{Strategy: strategy.Fixed, MaxAttempts: 3}, WithLogger(logger))

	_, err := r.On(EventRetry, func(ctx context.Context, event Event) {
		panic("listener exploded")
	})
	require.NoError(t, err)
	after := recordEvents(t, r)

	task := testutils.NewFlakyTask(2, "ok", nil)
	value, err := Execute(r, context.Background(), task.Run)

	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 3, task.Calls())
	assert.Equal(t, 2, after.Len(), "later listeners still run")
	assert.Contains(t, logs.String(), "panic in retry event listener")
	assert.Contains(t, logs.String(), "listener exploded")
}

func TestAttemptFailed_Kind(t *testing.T) {
	var event Event = AttemptFailed{Attempt: 1}
	assert.Equal(t, KindAttempt, event.Kind())
}

func TestLogListener(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	listener := LogListener(logger)
	listener(context.Background(), AttemptFailed{
		Attempt: 2,
		Delay:   250 * time.Millisecond,
		Err:     errors.New("connection refused"),
		Name:    "fetch",
	})

	out := logs.String()
	assert.Contains(t, out, "retry attempt failed")
	assert.Contains(t, out, "attempt=2")
	assert.Contains(t, out, "delay=250ms")
	assert.Contains(t, out, "connection refused")
}
