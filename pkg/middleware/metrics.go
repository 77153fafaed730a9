package middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jzx17/superretry/pkg/retry"
	"github.com/jzx17/superretry/pkg/types"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics records attempt and retry counters in a Prometheus registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	attempts *prometheus.CounterVec
	retries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	clock    types.Clock
}

// NewMetrics registers the retry collectors with registry.
// It returns nil when registry is nil.
func NewMetrics(registry *prometheus.Registry, clock types.Clock) *Metrics {
	if registry == nil {
		return nil
	}
	if clock == nil {
		clock = types.NewRealClock()
	}

	m := &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "superretry_attempts_total",
				Help: "Total number of attempts by execution name and outcome",
			},
			[]string{"name", "outcome"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "superretry_retries_total",
				Help: "Total number of scheduled retries by execution name",
			},
			[]string{"name"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "superretry_attempt_duration_seconds",
				Help:    "Attempt duration in seconds by execution name",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"name"},
		),
		clock: clock,
	}

	registry.MustRegister(
		m.attempts,
		m.retries,
		m.duration,
	)

	return m
}

// Intercept implements retry.Middleware
func (m *Metrics) Intercept(ctx context.Context, task retry.Task, attempt retry.AttemptContext, next retry.Next) (any, error) {
	if m == nil {
		return next(ctx)
	}

	start := m.clock.Now()
	value, err := next(ctx)
	m.observe(attempt.Name, m.clock.Since(start), err)
	return value, err
}

// Listener returns a retry listener that counts scheduled retries
func (m *Metrics) Listener() retry.Listener {
	return func(ctx context.Context, event retry.Event) {
		if m == nil || m.retries == nil {
			return
		}
		if e, ok := event.(retry.AttemptFailed); ok {
			m.retries.WithLabelValues(e.Name).Inc()
		}
	}
}

// Attach installs the middleware and the retry listener on r
func (m *Metrics) Attach(r *retry.Retry) (*retry.Subscription, error) {
	r.Use(m)
	return r.On(retry.EventRetry, m.Listener())
}

func (m *Metrics) observe(name string, duration time.Duration, err error) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}

	m.attempts.WithLabelValues(name, outcome).Inc()
	m.duration.WithLabelValues(name).Observe(duration.Seconds())
}

var _ retry.Middleware = (*Metrics)(nil)
