// Package service files gate decisions. It runs a gate through the engine,
// persists the decision and writes its compliance audit event in one
// transaction. A decision whose audit event cannot be written is not
// returned: the caller must not act on it.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"marketgate/internal/compliance"
	"marketgate/internal/compliance/checks"
	"marketgate/internal/compliance/gate"
	"marketgate/internal/compliance/marketpack"
	"marketgate/internal/compliance/store"
	id "marketgate/pkg/domain"
	dErrors "marketgate/pkg/domain-errors"
	audit "marketgate/pkg/platform/audit"
	"marketgate/pkg/platform/sentinel"
	"marketgate/pkg/requestcontext"
)

// DecisionStore persists gate decisions.
type DecisionStore interface {
	Save(ctx context.Context, record store.DecisionRecord) error
	FindByID(ctx context.Context, decisionID id.DecisionID) (store.DecisionRecord, error)
	ListByEntity(ctx context.Context, entityType string, entityID id.EntityID) ([]store.DecisionRecord, error)
}

// AuditPublisher writes compliance events fail-closed.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// OpsTracker records best-effort operational events.
type OpsTracker interface {
	Track(ctx context.Context, event audit.OpsEvent)
}

// TxRunner runs fn in a transaction carried on ctx so the decision row and
// its audit outbox entry commit together.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Entity types a decision can be filed under.
const (
	EntityListing     = "listing"
	EntityLease       = "lease"
	EntityApplication = "application"
)

// EntityTypeFor returns the entity type decisions of g are filed under.
func EntityTypeFor(g gate.Gate) string {
	switch g {
	case gate.GateListingPublish:
		return EntityListing
	case gate.GateLeaseCreation, gate.GateRentIncrease:
		return EntityLease
	default:
		return EntityApplication
	}
}

// Evaluation is a filed gate decision.
type Evaluation struct {
	DecisionID  id.DecisionID         `json:"decision_id"`
	Gate        gate.Gate             `json:"gate"`
	EntityType  string                `json:"entity_type"`
	EntityID    id.EntityID           `json:"entity_id"`
	EvaluatedAt time.Time             `json:"evaluated_at"`
	Result      compliance.GateResult `json:"result"`
}

// Service files gate decisions.
type Service struct {
	engine *gate.Engine
	store  DecisionStore
	audit  AuditPublisher
	ops    OpsTracker
	tx     TxRunner
	logger *slog.Logger
	newID  func() id.DecisionID
}

type Option func(*Service)

func WithOpsTracker(t OpsTracker) Option {
	return func(s *Service) {
		if t != nil {
			s.ops = t
		}
	}
}

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service. The engine, store and audit publisher are
// required.
func New(engine *gate.Engine, decisions DecisionStore, publisher AuditPublisher, opts ...Option) (*Service, error) {
	if engine == nil {
		return nil, errors.New("gate engine is required")
	}
	if decisions == nil {
		return nil, errors.New("decision store is required")
	}
	if publisher == nil {
		return nil, errors.New("compliance audit publisher is required")
	}
	s := &Service{
		engine: engine,
		store:  decisions,
		audit:  publisher,
		ops:    noopTracker{},
		tx:     passthroughTx{},
		logger: slog.Default(),
		newID:  id.NewDecisionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ListingPublish evaluates and files the listing_publish gate.
func (s *Service) ListingPublish(ctx context.Context, entityID id.EntityID, marketID id.MarketID, l gate.Listing) (Evaluation, error) {
	return s.file(ctx, gate.GateListingPublish, entityID, marketID, l, func(ctx context.Context) (compliance.GateResult, error) {
		return s.engine.ListingPublish(ctx, marketID, l)
	})
}

// LeaseCreation evaluates and files the lease_creation gate.
func (s *Service) LeaseCreation(ctx context.Context, entityID id.EntityID, marketID id.MarketID, l gate.Lease) (Evaluation, error) {
	return s.file(ctx, gate.GateLeaseCreation, entityID, marketID, l, func(ctx context.Context) (compliance.GateResult, error) {
		return s.engine.LeaseCreation(ctx, marketID, l)
	})
}

// RentIncrease evaluates and files the rent_increase gate.
func (s *Service) RentIncrease(ctx context.Context, entityID id.EntityID, marketID id.MarketID, r gate.RentIncrease) (Evaluation, error) {
	return s.file(ctx, gate.GateRentIncrease, entityID, marketID, r, func(ctx context.Context) (compliance.GateResult, error) {
		return s.engine.RentIncrease(ctx, marketID, r)
	})
}

// FCHAStageTransition evaluates and files the fcha_stage_transition gate.
func (s *Service) FCHAStageTransition(ctx context.Context, entityID id.EntityID, marketID id.MarketID, t gate.StageTransition) (Evaluation, error) {
	return s.file(ctx, gate.GateFCHAStageTransition, entityID, marketID, t, func(ctx context.Context) (compliance.GateResult, error) {
		return s.engine.FCHAStageTransition(ctx, marketID, t)
	})
}

// FCHABackgroundCheck evaluates and files the fcha_background_check gate.
func (s *Service) FCHABackgroundCheck(ctx context.Context, entityID id.EntityID, marketID id.MarketID, r gate.BackgroundCheck) (Evaluation, error) {
	return s.file(ctx, gate.GateFCHABackgroundCheck, entityID, marketID, r, func(ctx context.Context) (compliance.GateResult, error) {
		return s.engine.FCHABackgroundCheck(ctx, marketID, r)
	})
}

// DryRun evaluates ad-hoc checks without filing a decision.
func (s *Service) DryRun(ctx context.Context, marketID id.MarketID, cs []checks.Check) (compliance.GateResult, error) {
	result, err := s.engine.DryRun(ctx, marketID, cs)
	if err != nil {
		return compliance.GateResult{}, err
	}
	s.ops.Track(ctx, audit.OpsEvent{
		Timestamp:  requestcontext.Now(ctx),
		Action:     string(audit.EventDryRunEvaluated),
		Subject:    marketID.String(),
		MarketPack: result.Decision.MarketPack,
		Decision:   decisionLabel(result.Allowed),
		RequestID:  requestcontext.RequestID(ctx),
		ActorID:    requestcontext.Actor(ctx).String(),
	})
	return result, nil
}

// MarketPack returns the pack applied to marketID and whether the market has
// its own pack.
func (s *Service) MarketPack(ctx context.Context, marketID id.MarketID) (marketpack.Pack, bool) {
	pack, found := s.engine.ResolvePack(marketID)
	s.ops.Track(ctx, audit.OpsEvent{
		Timestamp:  requestcontext.Now(ctx),
		Action:     string(audit.EventMarketPackViewed),
		Subject:    marketID.String(),
		MarketPack: pack.ID.String(),
		RequestID:  requestcontext.RequestID(ctx),
		ActorID:    requestcontext.Actor(ctx).String(),
	})
	return pack, found
}

// Markets lists the jurisdictions with their own pack.
func (s *Service) Markets() []id.MarketID {
	return s.engine.Markets()
}

// Decision returns a filed decision.
func (s *Service) Decision(ctx context.Context, decisionID id.DecisionID) (Evaluation, error) {
	record, err := s.store.FindByID(ctx, decisionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Evaluation{}, dErrors.New(dErrors.CodeNotFound, "decision not found")
		}
		return Evaluation{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load decision")
	}
	s.ops.Track(ctx, audit.OpsEvent{
		Timestamp:  requestcontext.Now(ctx),
		Action:     string(audit.EventDecisionRetrieved),
		Subject:    decisionID.String(),
		MarketPack: record.Result.Decision.MarketPack,
		Decision:   decisionLabel(record.Result.Allowed),
		RequestID:  requestcontext.RequestID(ctx),
		ActorID:    requestcontext.Actor(ctx).String(),
	})
	return toEvaluation(record), nil
}

// DecisionsForEntity returns the entity's filed decisions, most recent first.
func (s *Service) DecisionsForEntity(ctx context.Context, entityType string, entityID id.EntityID) ([]Evaluation, error) {
	records, err := s.store.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list decisions")
	}
	out := make([]Evaluation, 0, len(records))
	for _, r := range records {
		out = append(out, toEvaluation(r))
	}
	return out, nil
}

func (s *Service) file(
	ctx context.Context,
	g gate.Gate,
	entityID id.EntityID,
	marketID id.MarketID,
	snapshot any,
	evaluate func(ctx context.Context) (compliance.GateResult, error),
) (Evaluation, error) {
	if entityID == "" {
		return Evaluation{}, dErrors.New(dErrors.CodeValidation, "entity_id is required")
	}
	result, err := evaluate(ctx)
	if err != nil {
		return Evaluation{}, err
	}

	before, err := json.Marshal(snapshot)
	if err != nil {
		return Evaluation{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode snapshot")
	}
	after, err := json.Marshal(result)
	if err != nil {
		return Evaluation{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode gate result")
	}

	record := store.DecisionRecord{
		ID:          s.newID(),
		EntityType:  EntityTypeFor(g),
		EntityID:    entityID,
		Gate:        g.String(),
		MarketID:    marketID,
		Result:      result,
		RequestID:   requestcontext.RequestID(ctx),
		ActorID:     requestcontext.Actor(ctx),
		EvaluatedAt: requestcontext.Now(ctx).UTC(),
	}
	event := audit.ComplianceEvent{
		Timestamp:         record.EvaluatedAt,
		Action:            string(audit.EventGateEvaluated),
		EntityType:        record.EntityType,
		EntityID:          entityID.String(),
		Gate:              record.Gate,
		DecisionID:        record.ID.String(),
		Decision:          decisionLabel(result.Allowed),
		Reason:            result.BlockedReason,
		MarketPack:        result.Decision.MarketPack,
		MarketPackVersion: result.Decision.MarketPackVersion,
		PolicyVersion:     result.Decision.PolicyVersion,
		Before:            before,
		After:             after,
		RequestID:         record.RequestID,
		ActorID:           record.ActorID.String(),
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Save(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save decision")
		}
		if err := s.audit.Emit(ctx, event); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit decision")
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "gate decision not filed",
			"gate", record.Gate,
			"entity_id", entityID,
			"decision_id", record.ID,
			"error", err,
		)
		return Evaluation{}, err
	}
	return toEvaluation(record), nil
}

func toEvaluation(r store.DecisionRecord) Evaluation {
	return Evaluation{
		DecisionID:  r.ID,
		Gate:        gate.Gate(r.Gate),
		EntityType:  r.EntityType,
		EntityID:    r.EntityID,
		EvaluatedAt: r.EvaluatedAt,
		Result:      r.Result,
	}
}

func decisionLabel(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "blocked"
}

type noopTracker struct{}

func (noopTracker) Track(context.Context, audit.OpsEvent) {}

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
