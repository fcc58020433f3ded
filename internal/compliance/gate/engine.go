package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"marketgate/internal/compliance"
	"marketgate/internal/compliance/checks"
	"marketgate/internal/compliance/cpi"
	"marketgate/internal/compliance/marketpack"
	"marketgate/internal/compliance/metrics"
	id "marketgate/pkg/domain"
	dErrors "marketgate/pkg/domain-errors"
)

// Engine evaluates gates against the market packs of a registry. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	registry *marketpack.Registry
	cpi      cpi.Provider
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Engine)

// WithCPIProvider sets the CPI source for rent-increase evaluation. Without
// one every evaluation uses the pack's fallback CPI value.
func WithCPIProvider(p cpi.Provider) Option {
	return func(e *Engine) {
		e.cpi = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// New constructs an engine over registry.
func New(registry *marketpack.Registry, opts ...Option) (*Engine, error) {
	if registry == nil {
		return nil, errors.New("market pack registry is required")
	}
	e := &Engine{
		registry: registry,
		logger:   slog.Default(),
		tracer:   otel.Tracer("marketgate/gate"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ResolvePack returns the pack that applies to marketID and whether the
// jurisdiction has its own pack.
func (e *Engine) ResolvePack(marketID id.MarketID) (marketpack.Pack, bool) {
	return e.registry.Lookup(marketID)
}

// Markets lists the jurisdictions with their own pack.
func (e *Engine) Markets() []id.MarketID {
	return e.registry.Markets()
}

// ListingPublish gates draft -> active: broker fee, listing disclosures and
// security deposit.
func (e *Engine) ListingPublish(ctx context.Context, marketID id.MarketID, l Listing) (compliance.GateResult, error) {
	return e.evaluate(ctx, GateListingPublish.String(), marketID, l.toChecks(), false)
}

// LeaseCreation gates lease execution: security deposit, rent stabilization
// and lease disclosures.
func (e *Engine) LeaseCreation(ctx context.Context, marketID id.MarketID, l Lease) (compliance.GateResult, error) {
	return e.evaluate(ctx, GateLeaseCreation.String(), marketID, l.toChecks(), false)
}

// RentIncrease gates a rent change on an active lease.
func (e *Engine) RentIncrease(ctx context.Context, marketID id.MarketID, r RentIncrease) (compliance.GateResult, error) {
	return e.evaluate(ctx, GateRentIncrease.String(), marketID,
		[]checks.Check{checks.RentIncreaseCheck{RentIncrease: r}}, false)
}

// FCHAStageTransition gates a move between screening stages.
func (e *Engine) FCHAStageTransition(ctx context.Context, marketID id.MarketID, t StageTransition) (compliance.GateResult, error) {
	return e.evaluate(ctx, GateFCHAStageTransition.String(), marketID,
		[]checks.Check{checks.StageTransitionCheck{StageChange: t}}, false)
}

// FCHABackgroundCheck gates a request to run background checks at the
// application's current stage.
func (e *Engine) FCHABackgroundCheck(ctx context.Context, marketID id.MarketID, r BackgroundCheck) (compliance.GateResult, error) {
	if len(r.Checks) == 0 {
		return compliance.GateResult{}, dErrors.New(dErrors.CodeValidation, "checks must name at least one background check")
	}
	return e.evaluate(ctx, GateFCHABackgroundCheck.String(), marketID,
		[]checks.Check{checks.ScreeningOrderCheck{ScreeningRequest: r}}, false)
}

// DryRun runs an ad-hoc list of checks against marketID's pack outside any
// gated transition. Checks run concurrently; findings keep the input order.
func (e *Engine) DryRun(ctx context.Context, marketID id.MarketID, cs []checks.Check) (compliance.GateResult, error) {
	if len(cs) == 0 {
		return compliance.GateResult{}, dErrors.New(dErrors.CodeValidation, "at least one check is required")
	}
	return e.evaluate(ctx, dryRun, marketID, cs, true)
}

// evaluate validates every check, then runs them against the resolved pack.
// Validation errors are returned before any checker runs.
func (e *Engine) evaluate(ctx context.Context, gate string, marketID id.MarketID, cs []checks.Check, parallel bool) (compliance.GateResult, error) {
	for _, c := range cs {
		if err := c.Validate(); err != nil {
			return compliance.GateResult{}, err
		}
	}

	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "gate."+gate, trace.WithAttributes(
		attribute.String("gate", gate),
		attribute.String("market.requested", marketID.String()),
	))
	defer span.End()

	pack, findings := e.resolve(ctx, gate, marketID)
	env := checks.Env{Pack: pack, CPI: e.cpi}

	results, err := e.run(ctx, env, cs, parallel)
	if err != nil {
		span.RecordError(err)
		return compliance.GateResult{}, err
	}
	performed := make([]string, len(cs))
	for i, c := range cs {
		performed[i] = string(c.Kind())
		findings.Merge(results[i])
	}

	decision := compliance.NewDecision(compliance.PackRef{
		ID:      pack.ID.String(),
		Version: marketpack.PackVersion(pack),
	}, performed, findings)
	result := compliance.NewGateResult(decision)

	span.SetAttributes(
		attribute.String("market.pack", pack.ID.String()),
		attribute.String("market.pack_version", decision.MarketPackVersion),
		attribute.Bool("gate.allowed", result.Allowed),
		attribute.Int("gate.violations", len(decision.Violations)),
	)
	e.record(ctx, gate, result, time.Since(start))
	return result, nil
}

// resolve looks up the pack. An unknown jurisdiction is evaluated against
// the default pack and the substitution is reported as a warning finding.
func (e *Engine) resolve(ctx context.Context, gate string, marketID id.MarketID) (marketpack.Pack, compliance.Findings) {
	var findings compliance.Findings
	pack, ok := e.registry.Lookup(marketID)
	if ok {
		return pack, findings
	}

	e.metrics.IncrementDefaultPack()
	e.logger.WarnContext(ctx, "no market pack for jurisdiction, applying default",
		"gate", gate,
		"market", marketID,
		"market_pack", pack.ID,
	)
	findings.Add(compliance.Violation{
		Code:     checks.CodeMarketPackDefaulted,
		Message:  fmt.Sprintf("No market pack exists for jurisdiction %q; the conservative %s pack was applied", marketID, pack.ID),
		Severity: compliance.SeverityWarning,
		Evidence: compliance.Evidence{
			"requested_market": compliance.String(marketID.String()),
			"applied_pack":     compliance.String(pack.ID.String()),
		},
	}, nil)
	return pack, findings
}

func (e *Engine) run(ctx context.Context, env checks.Env, cs []checks.Check, parallel bool) ([]compliance.Findings, error) {
	results := make([]compliance.Findings, len(cs))
	if !parallel || len(cs) == 1 {
		for i, c := range cs {
			f, err := checks.Run(ctx, c, env)
			if err != nil {
				return nil, err
			}
			results[i] = f
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range cs {
		g.Go(func() error {
			f, err := checks.Run(gctx, c, env)
			if err != nil {
				return err
			}
			results[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) record(ctx context.Context, gate string, result compliance.GateResult, d time.Duration) {
	decision := result.Decision
	e.metrics.ObserveGate(gate, decision.MarketPack, result.Allowed, d)
	for _, v := range decision.Violations {
		e.metrics.IncrementViolation(string(v.Code), v.Severity.String())
	}

	attrs := []any{
		"gate", gate,
		"market_pack", decision.MarketPack,
		"market_pack_version", decision.MarketPackVersion,
		"allowed", result.Allowed,
		"violations", len(decision.Violations),
		"duration_ms", d.Milliseconds(),
	}
	if !result.Allowed {
		e.logger.InfoContext(ctx, "gate blocked", append(attrs, "blocked_reason", result.BlockedReason)...)
		return
	}
	e.logger.InfoContext(ctx, "gate evaluated", attrs...)
}
