// Package ops provides a best-effort tracker for operational audit events:
// market pack lookups, decision retrievals and dry runs. Tracking never
// fails the caller; events are sampled, and writes are skipped while the
// audit store is unhealthy.
package ops

import (
	"context"
	"log/slog"
	"time"

	audit "marketgate/pkg/platform/audit"
)

// Tracker records ops events.
type Tracker struct {
	store   audit.Store
	sampler *Sampler
	breaker *CircuitBreaker
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Tracker.
type Option func(*Tracker)

func WithSampler(s *Sampler) Option {
	return func(t *Tracker) {
		if s != nil {
			t.sampler = s
		}
	}
}

func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(t *Tracker) {
		if cb != nil {
			t.breaker = cb
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a tracker that keeps every event until configured otherwise.
func New(store audit.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:   store,
		sampler: NewSampler(1),
		breaker: NewCircuitBreaker(5, time.Minute),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track writes event unless it is sampled out or the breaker is open.
// Failures are logged and counted, never returned.
func (t *Tracker) Track(ctx context.Context, event audit.OpsEvent) {
	if !t.sampler.ShouldSample(event.Action) {
		t.metrics.IncSampled()
		return
	}
	if !t.breaker.Allow() {
		t.metrics.IncCircuitBreakerDropped()
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = t.now()
	}

	if err := t.store.Append(ctx, event.ToEvent()); err != nil {
		t.metrics.IncPersistFailures()
		open := t.breaker.RecordFailure()
		t.metrics.SetCircuitBreakerState(open)
		t.logger.WarnContext(ctx, "ops audit write failed",
			"action", event.Action,
			"subject", event.Subject,
			"circuit_open", open,
			"error", err,
		)
		return
	}
	t.breaker.RecordSuccess()
	t.metrics.SetCircuitBreakerState(false)
	t.metrics.IncTracked()
}
