package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"marketgate/internal/compliance"
	"marketgate/internal/compliance/checks"
	"marketgate/internal/compliance/gate"
	"marketgate/internal/compliance/handler/mocks"
	"marketgate/internal/compliance/marketpack"
	"marketgate/internal/compliance/screening"
	"marketgate/internal/compliance/service"
	id "marketgate/pkg/domain"
	dErrors "marketgate/pkg/domain-errors"
	"marketgate/pkg/platform/middleware/request"
	"marketgate/pkg/requestcontext"
	"marketgate/pkg/testutil"
)

type ComplianceHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestComplianceHandlerSuite(t *testing.T) {
	suite.Run(t, new(ComplianceHandlerSuite))
}

func (s *ComplianceHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.service, logger, nil).Register(s.router)
}

func blockedResult() compliance.GateResult {
	var f compliance.Findings
	f.Add(compliance.Violation{
		Code:     "FEE_TENANT_PAID_PROHIBITED",
		Message:  "tenant-paid broker fees are prohibited",
		Severity: compliance.SeverityCritical,
	}, &compliance.RecommendedFix{Code: "SHIFT_BROKER_FEE_TO_LANDLORD", Description: "have the landlord pay"})
	return compliance.NewGateResult(compliance.NewDecision(
		compliance.PackRef{ID: "nyc", Version: "2025.2"}, []string{"fee_disclosure"}, f))
}

func (s *ComplianceHandlerSuite) TestEvaluateGate() {
	s.Run("listing publish returns the filed decision", func() {
		decisionID := id.NewDecisionID()
		s.service.EXPECT().ListingPublish(gomock.Any(), id.EntityID("listing-42"), id.MarketID("nyc"), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ id.EntityID, _ id.MarketID, l gate.Listing) (service.Evaluation, error) {
				s.Equal(checks.PayerTenant, l.PaidBy)
				s.Equal(3200.0, l.MonthlyRent)
				s.Equal("agent-7", requestcontext.Actor(ctx).String())
				s.Equal("req-abc", requestcontext.RequestID(ctx))
				return service.Evaluation{
					DecisionID:  decisionID,
					Gate:        gate.GateListingPublish,
					EntityType:  service.EntityListing,
					EntityID:    "listing-42",
					EvaluatedAt: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
					Result:      blockedResult(),
				}, nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/compliance/gates/listing_publish", map[string]any{
			"entity_id": "listing-42",
			"market_id": "NYC",
			"snapshot": map[string]any{
				"monthly_rent":         3200,
				"security_deposit":     3200,
				"has_broker_fee":       true,
				"broker_fee_amount":    3200,
				"broker_fee_paid_by":   "tenant",
				"broker_fee_disclosed": true,
			},
		})
		req.Header.Set(request.HeaderActorID, "agent-7")
		req.Header.Set(request.HeaderRequestID, "req-abc")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Equal("req-abc", rr.Header().Get(request.HeaderRequestID))
		resp := testutil.UnmarshalResponse[service.Evaluation](s.T(), rr)
		s.Equal(decisionID, resp.DecisionID)
		s.False(resp.Result.Allowed)
		s.Equal("tenant-paid broker fees are prohibited", resp.Result.BlockedReason)
		s.Equal(compliance.SeverityCritical, resp.Result.Decision.Violations[0].Severity)
	})

	s.Run("background check snapshot", func() {
		s.service.EXPECT().FCHABackgroundCheck(gomock.Any(), id.EntityID("app-1"), id.MarketID("nyc"), gate.BackgroundCheck{
			CurrentStage: screening.StageApplicationReview,
			Checks:       []checks.ScreeningCheck{checks.ScreeningCriminal},
		}).Return(service.Evaluation{Result: blockedResult()}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/compliance/gates/fcha_background_check", map[string]any{
			"entity_id": "app-1",
			"market_id": "nyc",
			"snapshot":  map[string]any{"current_stage": "application_review", "checks": []string{"criminal"}},
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})

	s.Run("unknown gate is not found", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/compliance/gates/teleport", map[string]any{
			"entity_id": "x", "market_id": "nyc", "snapshot": map[string]any{},
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})

	s.Run("unknown snapshot field is rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/compliance/gates/rent_increase", map[string]any{
			"entity_id": "lease-1", "market_id": "nyc", "snapshot": map[string]any{"current_rent": 2000, "surprise": true},
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("omitted broker fee flag reaches the service as unset and is rejected", func() {
		s.service.EXPECT().ListingPublish(gomock.Any(), id.EntityID("listing-43"), id.MarketID("nyc"), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ id.EntityID, _ id.MarketID, l gate.Listing) (service.Evaluation, error) {
				s.Nil(l.HasBrokerFee)
				return service.Evaluation{}, l.BrokerFee.Validate()
			})

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/compliance/gates/listing_publish", map[string]any{
			"entity_id": "listing-43",
			"market_id": "nyc",
			"snapshot": map[string]any{
				"monthly_rent":       3200,
				"security_deposit":   3200,
				"broker_fee_amount":  3200,
				"broker_fee_paid_by": "tenant",
			},
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
		body := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Contains(body["error_description"], "has_broker_fee is required")
	})

	s.Run("missing snapshot is rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/compliance/gates/lease_creation", map[string]any{
			"entity_id": "lease-1", "market_id": "nyc",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("malformed body", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/compliance/gates/lease_creation", "{"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("audit failure surfaces as internal error", func() {
		s.service.EXPECT().LeaseCreation(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(service.Evaluation{}, dErrors.New(dErrors.CodeInternal, "failed to audit decision"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/compliance/gates/lease_creation", map[string]any{
			"entity_id": "lease-1", "market_id": "nyc", "snapshot": map[string]any{"monthly_rent": 2000, "security_deposit": 2000},
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
		body := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Equal(string(dErrors.CodeInternal), body["error"])
		s.NotContains(body, "error_description")
	})
}

func (s *ComplianceHandlerSuite) TestDryRun() {
	s.Run("decodes every check in order", func() {
		s.service.EXPECT().DryRun(gomock.Any(), id.MarketID("us_ca_sf"), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ id.MarketID, cs []checks.Check) (compliance.GateResult, error) {
				s.Require().Len(cs, 2)
				s.Equal(checks.KindSecurityDeposit, cs[0].Kind())
				s.Equal(checks.KindStageTransition, cs[1].Kind())
				return blockedResult(), nil
			})

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/compliance/checks", map[string]any{
			"market_id": "us_ca_sf",
			"checks": []map[string]any{
				{"check_type": "security_deposit", "input": map[string]any{"monthly_rent": 3000, "security_deposit": 3000}},
				{"check_type": "stage_transition", "input": map[string]any{"current_stage": "initial_inquiry", "target_stage": "application_submitted"}},
			},
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		testutil.AssertJSONContains(s.T(), rr, "allowed", false)
	})

	s.Run("unknown check type names its index", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/compliance/checks", map[string]any{
			"market_id": "nyc",
			"checks":    []map[string]any{{"check_type": "astrology", "input": map[string]any{}}},
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		body := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Contains(body["error_description"], "checks[0]")
	})

	s.Run("empty check list", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/compliance/checks", map[string]any{
			"market_id": "nyc", "checks": []any{},
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func (s *ComplianceHandlerSuite) TestGetMarketPack() {
	s.Run("own pack", func() {
		s.service.EXPECT().MarketPack(gomock.Any(), id.MarketID("nyc")).
			Return(marketpack.Pack{ID: "nyc", Version: "2025.2", EarliestScreeningStage: screening.StageConditionalOffer}, true)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/compliance/markets/nyc"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[marketPackResponse](s.T(), rr)
		s.False(resp.DefaultApplied)
		s.Equal("2025.2", resp.Pack.Version)
	})

	s.Run("unknown market reports the default", func() {
		s.service.EXPECT().MarketPack(gomock.Any(), id.MarketID("us_tx_austin")).
			Return(marketpack.Pack{ID: "us_standard", Version: "2025.1", EarliestScreeningStage: screening.StageConditionalOffer}, false)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/compliance/markets/us_tx_austin"))
		resp := testutil.UnmarshalResponse[marketPackResponse](s.T(), rr)
		s.True(resp.DefaultApplied)
		s.Equal(id.MarketID("us_tx_austin"), resp.RequestedMarket)
		s.Equal(id.MarketID("us_standard"), resp.Pack.ID)
	})

	s.Run("lists markets", func() {
		s.service.EXPECT().Markets().Return([]id.MarketID{"nyc", "us_ca_sf", "us_standard"})
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/compliance/markets"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		testutil.AssertJSONContains(s.T(), rr, "markets", []any{"nyc", "us_ca_sf", "us_standard"})
	})
}

func (s *ComplianceHandlerSuite) TestGetDecision() {
	s.Run("found", func() {
		decisionID := id.NewDecisionID()
		s.service.EXPECT().Decision(gomock.Any(), decisionID).
			Return(service.Evaluation{DecisionID: decisionID, Result: blockedResult()}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/compliance/decisions/"+decisionID.String()))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		testutil.AssertJSONContains(s.T(), rr, "decision_id", decisionID.String())
	})

	s.Run("not found", func() {
		s.service.EXPECT().Decision(gomock.Any(), gomock.Any()).
			Return(service.Evaluation{}, dErrors.New(dErrors.CodeNotFound, "decision not found"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/compliance/decisions/"+id.NewDecisionID().String()))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})

	s.Run("malformed id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/compliance/decisions/not-a-uuid"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})
}

func (s *ComplianceHandlerSuite) TestListEntityDecisions() {
	s.Run("lists", func() {
		s.service.EXPECT().DecisionsForEntity(gomock.Any(), service.EntityLease, id.EntityID("lease-1")).
			Return([]service.Evaluation{{DecisionID: id.NewDecisionID()}}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/compliance/entities/lease/lease-1/decisions"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		testutil.AssertJSONHasKey(s.T(), rr, "decisions")
	})

	s.Run("unknown entity type", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/compliance/entities/building/b-1/decisions"))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})
}

func (s *ComplianceHandlerSuite) TestRejectsNonJSONBody() {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/compliance/checks", "market_id=nyc")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusUnsupportedMediaType)
}
