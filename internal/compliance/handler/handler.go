// Package handler exposes the compliance gates over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"marketgate/internal/compliance"
	"marketgate/internal/compliance/checks"
	"marketgate/internal/compliance/gate"
	"marketgate/internal/compliance/marketpack"
	"marketgate/internal/compliance/service"
	"marketgate/internal/platform/middleware"
	id "marketgate/pkg/domain"
	dErrors "marketgate/pkg/domain-errors"
	"marketgate/pkg/platform/httputil"
	"marketgate/pkg/platform/middleware/request"
	"marketgate/pkg/platform/middleware/requesttime"
	"marketgate/pkg/requestcontext"
)

// Service defines the compliance operations the handler exposes.
type Service interface {
	ListingPublish(ctx context.Context, entityID id.EntityID, marketID id.MarketID, l gate.Listing) (service.Evaluation, error)
	LeaseCreation(ctx context.Context, entityID id.EntityID, marketID id.MarketID, l gate.Lease) (service.Evaluation, error)
	RentIncrease(ctx context.Context, entityID id.EntityID, marketID id.MarketID, r gate.RentIncrease) (service.Evaluation, error)
	FCHAStageTransition(ctx context.Context, entityID id.EntityID, marketID id.MarketID, t gate.StageTransition) (service.Evaluation, error)
	FCHABackgroundCheck(ctx context.Context, entityID id.EntityID, marketID id.MarketID, r gate.BackgroundCheck) (service.Evaluation, error)
	DryRun(ctx context.Context, marketID id.MarketID, cs []checks.Check) (compliance.GateResult, error)
	MarketPack(ctx context.Context, marketID id.MarketID) (marketpack.Pack, bool)
	Markets() []id.MarketID
	Decision(ctx context.Context, decisionID id.DecisionID) (service.Evaluation, error)
	DecisionsForEntity(ctx context.Context, entityType string, entityID id.EntityID) ([]service.Evaluation, error)
}

// Handler handles compliance endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
	metrics *middleware.HTTPMetrics
	timeout time.Duration
}

// New creates a compliance Handler.
func New(svc Service, logger *slog.Logger, metrics *middleware.HTTPMetrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:  logger,
		service: svc,
		metrics: metrics,
		timeout: 10 * time.Second,
	}
}

// Register registers the compliance routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/compliance", func(cr chi.Router) {
		cr.Use(middleware.Recovery(h.logger))
		cr.Use(request.RequestID)
		cr.Use(request.Actor)
		cr.Use(requesttime.Middleware)
		cr.Use(middleware.Logger(h.logger))
		cr.Use(chimw.Timeout(h.timeout))
		cr.Use(middleware.ContentTypeJSON)
		cr.Use(middleware.Latency(h.metrics))

		cr.Post("/gates/{gate}", h.handleEvaluateGate)
		cr.Post("/checks", h.handleDryRun)
		cr.Get("/markets", h.handleListMarkets)
		cr.Get("/markets/{marketID}", h.handleGetMarketPack)
		cr.Get("/decisions/{decisionID}", h.handleGetDecision)
		cr.Get("/entities/{entityType}/{entityID}/decisions", h.handleListEntityDecisions)
	})
}

// handleEvaluateGate evaluates and files one gate decision. A blocked
// decision is a successful evaluation and returns 200.
func (h *Handler) handleEvaluateGate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	g, err := gate.ParseGate(chi.URLParam(r, "gate"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[GateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	eval, err := h.evaluate(ctx, g, req)
	if err != nil {
		h.writeServiceError(ctx, w, "gate evaluation failed", err,
			"gate", g,
			"entity_id", req.entityID,
		)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eval)
}

func (h *Handler) evaluate(ctx context.Context, g gate.Gate, req *GateRequest) (service.Evaluation, error) {
	switch g {
	case gate.GateListingPublish:
		snapshot, err := decodeSnapshot[gate.Listing](req.Snapshot)
		if err != nil {
			return service.Evaluation{}, err
		}
		return h.service.ListingPublish(ctx, req.entityID, req.marketID, snapshot)
	case gate.GateLeaseCreation:
		snapshot, err := decodeSnapshot[gate.Lease](req.Snapshot)
		if err != nil {
			return service.Evaluation{}, err
		}
		return h.service.LeaseCreation(ctx, req.entityID, req.marketID, snapshot)
	case gate.GateRentIncrease:
		snapshot, err := decodeSnapshot[gate.RentIncrease](req.Snapshot)
		if err != nil {
			return service.Evaluation{}, err
		}
		return h.service.RentIncrease(ctx, req.entityID, req.marketID, snapshot)
	case gate.GateFCHAStageTransition:
		snapshot, err := decodeSnapshot[gate.StageTransition](req.Snapshot)
		if err != nil {
			return service.Evaluation{}, err
		}
		return h.service.FCHAStageTransition(ctx, req.entityID, req.marketID, snapshot)
	case gate.GateFCHABackgroundCheck:
		snapshot, err := decodeSnapshot[gate.BackgroundCheck](req.Snapshot)
		if err != nil {
			return service.Evaluation{}, err
		}
		return h.service.FCHABackgroundCheck(ctx, req.entityID, req.marketID, snapshot)
	default:
		return service.Evaluation{}, dErrors.New(dErrors.CodeNotFound, "unknown gate: "+g.String())
	}
}

// handleDryRun runs ad-hoc checks without filing a decision.
func (h *Handler) handleDryRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[DryRunRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.DryRun(ctx, req.marketID, req.checks)
	if err != nil {
		h.writeServiceError(ctx, w, "dry run failed", err, "market_id", req.marketID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

type marketPackResponse struct {
	RequestedMarket id.MarketID     `json:"requested_market"`
	DefaultApplied  bool            `json:"default_applied"`
	Pack            marketpack.Pack `json:"pack"`
}

func (h *Handler) handleGetMarketPack(w http.ResponseWriter, r *http.Request) {
	marketID, err := id.ParseMarketID(chi.URLParam(r, "marketID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	pack, found := h.service.MarketPack(r.Context(), marketID)
	httputil.WriteJSON(w, http.StatusOK, marketPackResponse{
		RequestedMarket: marketID,
		DefaultApplied:  !found,
		Pack:            pack,
	})
}

func (h *Handler) handleListMarkets(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"markets": h.service.Markets()})
}

func (h *Handler) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	decisionID, err := id.ParseDecisionID(chi.URLParam(r, "decisionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	eval, err := h.service.Decision(ctx, decisionID)
	if err != nil {
		h.writeServiceError(ctx, w, "decision lookup failed", err, "decision_id", decisionID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eval)
}

func (h *Handler) handleListEntityDecisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityType := chi.URLParam(r, "entityType")
	switch entityType {
	case service.EntityListing, service.EntityLease, service.EntityApplication:
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown entity type: "+entityType))
		return
	}
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	evals, err := h.service.DecisionsForEntity(ctx, entityType, entityID)
	if err != nil {
		h.writeServiceError(ctx, w, "decision listing failed", err, "entity_id", entityID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"decisions": evals})
}

// writeServiceError logs server-side failures at error level and client
// mistakes at warn level, then writes the mapped response.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if httputil.StatusFor(dErrors.GetCode(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
