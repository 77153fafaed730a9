package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/superretry/internal/testutils"
	"github.com/jzx17/superretry/pkg/retry"
	"github.com/jzx17/superretry/pkg/strategy"
)

func newRetry(t *testing.T, maxAttempts int, options ...retry.Option) *retry.Retry {
	t.Helper()

	opts := append([]retry.Option{
		retry.WithClock(testutils.NewRecordingClock(t)),
		retry.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		retry.WithRegistry(strategy.NewRegistry()),
	}, options...)

	r, err := retry.New(retry.Options{
		Strategy:     strategy.Fixed,
		MaxAttempts:  maxAttempts,
		InitialDelay: 10 * time.Millisecond,
	}, opts...)
	require.NoError(t, err)
	return r
}

func TestTiming(t *testing.T) {
	mock := testutils.NewMockClock(t)
	clock := testutils.NewClockWrapper(mock)
	r := newRetry(t, 3)

	var durations []time.Duration
	var failures int
	r.Use(Timing(clock, func(ctx context.Context, attempt retry.AttemptContext, d time.Duration, err error) {
		durations = append(durations, d)
		if err != nil {
			failures++
		}
	}))

	task := testutils.NewFlakyTask(1, "ok", nil)
	_, err := retry.Execute(r, context.Background(), func(ctx context.Context) (string, error) {
		mock.Advance(50 * time.Millisecond)
		return task.Run(ctx)
	})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 50 * time.Millisecond}, durations)
	assert.Equal(t, 1, failures)
}

func TestMetadata(t *testing.T) {
	r := newRetry(t, 3)
	r.Use(Metadata(nil))

	result, err := retry.Execute(r, context.Background(), func(ctx context.Context) (map[string]any, error) {
		return nil, nil
	})
	require.Error(t, err, "annotated results do not convert back to the task type")
	assert.Nil(t, result)

	task := testutils.NewFlakyTask(2, "payload", nil)
	annotated, err := retry.Execute(r, context.Background(), func(ctx context.Context) (Annotated, error) {
		value, err := task.Run(ctx)
		return Annotated{Data: value}, err
	})

	require.NoError(t, err)
	assert.Equal(t, 3, annotated.Attempts)
	inner, ok := annotated.Data.(Annotated)
	require.True(t, ok)
	assert.Equal(t, "payload", inner.Data)
}

func TestMetadata_Run(t *testing.T) {
	r := newRetry(t, 2)
	r.Use(Metadata(nil))

	value, err := r.Run(context.Background(), func(ctx context.Context) (any, error) {
		return "raw", nil
	})

	require.NoError(t, err)
	annotated, ok := value.(Annotated)
	require.True(t, ok)
	assert.Equal(t, "raw", annotated.Data)
	assert.Equal(t, 1, annotated.Attempts)
}

func TestWrapErrors(t *testing.T) {
	errPermanent := errors.New("permanent")
	r, err := retry.New(retry.Options{
		Strategy:    strategy.Fixed,
		MaxAttempts: 5,
		RetryIf:     retry.Not(retry.IfErrorIs(errPermanent)),
	}, retry.WithClock(testutils.NewRecordingClock(t)), retry.WithRegistry(strategy.NewRegistry()))
	require.NoError(t, err)

	r.Use(WrapErrors(func(attempt retry.AttemptContext, err error) error {
		if attempt.Number() >= 2 {
			return fmt.Errorf("attempt %d: %w", attempt.Number(), errPermanent)
		}
		return err
	}))

	task := testutils.NewFlakyTask(10, 0, nil)
	_, err = retry.Execute(r, context.Background(), task.Run)

	assert.ErrorIs(t, err, errPermanent)
	assert.EqualError(t, err, "attempt 2: permanent")
	assert.Equal(t, 2, task.Calls())
}

func TestTimeout(t *testing.T) {
	r := newRetry(t, 1)
	r.Use(Timeout(time.Millisecond))

	_, err := retry.Execute(r, context.Background(), func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := newRetry(t, 3)
	r.Use(Logging(logger))

	_, err := retry.ExecuteWithName(r, context.Background(), "orders", testutils.NewFlakyTask(1, 1, nil).Run)
	require.NoError(t, err)

	out := logs.String()
	assert.Equal(t, 2, bytes.Count(logs.Bytes(), []byte("attempt started")))
	assert.Contains(t, out, "attempt failed")
	assert.Contains(t, out, "attempt succeeded")
	assert.Contains(t, out, "name=orders")
	assert.Contains(t, out, "attempt=2")
}

func TestFailureInjection(t *testing.T) {
	rolls := []float64{0.1, 0.7, 0.2, 0.9}
	next := 0
	roll := func() float64 {
		v := rolls[next]
		next++
		return v
	}

	r := newRetry(t, 4)
	r.Use(FailureInjection(0.5, roll))

	calls := 0
	value, err := retry.Execute(r, context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "through", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "through", value)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, next)
}

func TestFailureInjection_Exhausts(t *testing.T) {
	r := newRetry(t, 2)
	r.Use(FailureInjection(1, nil))

	_, err := retry.Execute(r, context.Background(), func(ctx context.Context) (string, error) {
		return "never", nil
	})

	assert.ErrorIs(t, err, ErrInjectedFailure)
}
