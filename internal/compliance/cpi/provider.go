package cpi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"marketgate/internal/compliance/metrics"
	"marketgate/pkg/platform/circuit"
	"marketgate/pkg/platform/sentinel"
)

// DefaultTimeout bounds one call to the live source.
const DefaultTimeout = 2 * time.Second

// FallbackProvider wraps a live source with a timeout, a circuit breaker and
// a last-good-reading cache:
//   - Each live call is bounded by the timeout.
//   - After repeated failures the breaker opens; while open, live results are
//     not trusted until the source recovers for several consecutive calls.
//   - On any failure the cached reading for the month is returned, marked as
//     a fallback with the failure reason.
//   - With no cached reading the categorized error is returned and the caller
//     applies its own fallback value.
type FallbackProvider struct {
	primary Provider
	cache   Cache
	breaker *circuit.Breaker
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*FallbackProvider)

func WithTimeout(d time.Duration) Option {
	return func(p *FallbackProvider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithCache(c Cache) Option {
	return func(p *FallbackProvider) {
		p.cache = c
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *FallbackProvider) {
		if b != nil {
			p.breaker = b
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *FallbackProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *FallbackProvider) {
		p.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(p *FallbackProvider) {
		if t != nil {
			p.tracer = t
		}
	}
}

// NewFallbackProvider wraps primary.
func NewFallbackProvider(primary Provider, opts ...Option) (*FallbackProvider, error) {
	if primary == nil {
		return nil, errors.New("cpi primary source is required")
	}
	p := &FallbackProvider{
		primary: primary,
		breaker: circuit.New("cpi"),
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		tracer:  otel.Tracer("marketgate/cpi"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// CurrentIndex returns the live reading, else the cached reading marked as a
// fallback, else a *SourceError.
func (p *FallbackProvider) CurrentIndex(ctx context.Context, asOf time.Time) (Reading, error) {
	month := Month(asOf)
	ctx, span := p.tracer.Start(ctx, "cpi.CurrentIndex", trace.WithAttributes(
		attribute.String("cpi.month", month),
	))
	defer span.End()

	reading, err := p.fetchLive(ctx, asOf)
	if err == nil {
		span.SetAttributes(attribute.String("cpi.source", string(reading.Source)))
		return reading, nil
	}

	reason := string(GetCategory(err))
	p.metrics.IncrementCPIFallback(reason)
	p.logger.WarnContext(ctx, "cpi live source degraded",
		"reason", reason,
		"month", month,
		"error", err,
	)

	if cached, ok := p.loadCached(ctx, month); ok {
		cached.Source = SourceCache
		cached.Fallback = true
		cached.Reason = reason
		span.SetAttributes(
			attribute.String("cpi.source", string(SourceCache)),
			attribute.String("cpi.fallback_reason", reason),
		)
		return cached, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	return Reading{}, err
}

func (p *FallbackProvider) fetchLive(ctx context.Context, asOf time.Time) (Reading, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	reading, err := p.primary.CurrentIndex(fetchCtx, asOf)
	p.metrics.ObserveCPIFetch(string(SourceLive), time.Since(start))

	if err == nil {
		if verr := reading.validate(); verr != nil {
			err = NewSourceError(ErrorBadData, "live", "cpi reading rejected", verr)
		}
	}
	if err != nil {
		if fetchCtx.Err() != nil && GetCategory(err) != ErrorTimeout {
			err = NewSourceError(ErrorTimeout, "live", "cpi source exceeded "+p.timeout.String(), err)
		}
		_, change := p.breaker.RecordFailure()
		p.noteStateChange(ctx, change)
		return Reading{}, err
	}

	usePrimary, change := p.breaker.RecordSuccess()
	p.noteStateChange(ctx, change)
	if !usePrimary {
		return Reading{}, NewSourceError(ErrorCircuitOpen, "live", "cpi source recovering", nil)
	}

	if reading.Source == "" {
		reading.Source = SourceLive
	}
	if reading.AsOf.IsZero() {
		reading.AsOf = asOf.UTC()
	}
	if p.cache != nil && !reading.Fallback {
		if err := p.cache.Save(ctx, reading); err != nil {
			p.logger.WarnContext(ctx, "failed to cache cpi reading", "error", err)
		}
	}
	return reading, nil
}

func (p *FallbackProvider) loadCached(ctx context.Context, month string) (Reading, bool) {
	if p.cache == nil {
		return Reading{}, false
	}
	start := time.Now()
	r, err := p.cache.Load(ctx, month)
	p.metrics.ObserveCPIFetch(string(SourceCache), time.Since(start))
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			p.logger.WarnContext(ctx, "failed to load cached cpi reading", "error", err)
		}
		return Reading{}, false
	}
	return r, true
}

func (p *FallbackProvider) noteStateChange(ctx context.Context, change circuit.StateChange) {
	switch {
	case change.Opened:
		p.metrics.SetCPICircuitOpen(true)
		p.logger.WarnContext(ctx, "cpi circuit breaker opened", "breaker", p.breaker.Name())
	case change.Closed:
		p.metrics.SetCPICircuitOpen(false)
		p.logger.InfoContext(ctx, "cpi circuit breaker closed", "breaker", p.breaker.Name())
	}
}
