package gate

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"marketgate/internal/compliance"
	"marketgate/internal/compliance/checks"
	"marketgate/internal/compliance/cpi"
	"marketgate/internal/compliance/marketpack"
	"marketgate/internal/compliance/metrics"
	"marketgate/internal/compliance/screening"
	id "marketgate/pkg/domain"
	dErrors "marketgate/pkg/domain-errors"
)

var effective = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

type EngineSuite struct {
	suite.Suite
	engine  *Engine
	metrics *metrics.Metrics
	ctx     context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	registry, err := marketpack.NewBuiltinRegistry()
	s.Require().NoError(err)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.engine, err = New(registry,
		WithCPIProvider(liveCPI(3.3)),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.ctx = context.Background()
}

func liveCPI(v float64) cpi.Provider {
	return cpi.ProviderFunc(func(_ context.Context, asOf time.Time) (cpi.Reading, error) {
		return cpi.Reading{Value: v, Source: cpi.SourceLive, AsOf: asOf}, nil
	})
}

func compliantNYCListing() Listing {
	return Listing{
		DepositTerms: checks.DepositTerms{MonthlyRent: 3200, SecurityDeposit: 3200},
		BrokerFee: checks.BrokerFee{
			HasBrokerFee: flag(true),
			Amount:       3200,
			PaidBy:       checks.PayerLandlord,
			Disclosed:    true,
		},
		DisclosureStatus: checks.DisclosureStatus{
			Delivered:    []string{"fare_act_fee_disclosure"},
			Acknowledged: []string{"fare_act_fee_disclosure"},
		},
	}
}

func nycLeaseDisclosures() checks.DisclosureStatus {
	types := []string{"lead_paint", "bedbug_history", "flood_history", "good_cause_rights_notice"}
	return checks.DisclosureStatus{Delivered: types, Acknowledged: types}
}

func flag(b bool) *bool {
	return &b
}

func codesOf(d compliance.Decision) []compliance.Code {
	out := make([]compliance.Code, len(d.Violations))
	for i, v := range d.Violations {
		out[i] = v.Code
	}
	return out
}

func (s *EngineSuite) TestListingPublish() {
	s.Run("compliant listing is allowed", func() {
		result, err := s.engine.ListingPublish(s.ctx, marketpack.MarketNYC, compliantNYCListing())
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Empty(result.BlockedReason)
		s.Empty(result.Decision.Violations)
		s.Equal([]string{"fee_disclosure", "disclosure", "security_deposit"}, result.Decision.ChecksPerformed)
		s.Equal("nyc", result.Decision.MarketPack)
		s.Equal("2025.2", result.Decision.MarketPackVersion)
		s.Equal(compliance.PolicyVersion, result.Decision.PolicyVersion)
	})

	s.Run("tenant-paid broker fee in nyc is blocked", func() {
		listing := compliantNYCListing()
		listing.PaidBy = checks.PayerTenant

		result, err := s.engine.ListingPublish(s.ctx, marketpack.MarketNYC, listing)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal([]compliance.Code{checks.CodeTenantBrokerFeeProhibited}, codesOf(result.Decision))
		s.True(result.Decision.HasSeverity(compliance.SeverityCritical))
		s.Equal(result.Decision.Violations[0].Message, result.BlockedReason)
		s.Require().NotEmpty(result.Decision.RecommendedFixes)
		s.Equal(checks.FixShiftBrokerFee, result.Decision.RecommendedFixes[0].Code)
	})

	s.Run("findings from every checker are kept", func() {
		listing := compliantNYCListing()
		listing.PaidBy = ""
		listing.SecurityDeposit = 6400
		listing.Delivered = nil

		result, err := s.engine.ListingPublish(s.ctx, marketpack.MarketNYC, listing)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal([]compliance.Code{
			checks.CodeTenantBrokerFeeProhibited,
			checks.CodeDisclosureMissing,
			checks.CodeDepositExceedsCap,
		}, codesOf(result.Decision))
		s.Equal(
			result.Decision.Violations[0].Message+"; "+result.Decision.Violations[1].Message,
			result.BlockedReason,
		)
	})

	s.Run("listing without a broker fee flag is rejected", func() {
		listing := compliantNYCListing()
		listing.HasBrokerFee = nil
		listing.PaidBy = checks.PayerTenant

		_, err := s.engine.ListingPublish(s.ctx, marketpack.MarketNYC, listing)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "has_broker_fee is required")
	})

	s.Run("invalid snapshot fails before any checker runs", func() {
		listing := compliantNYCListing()
		listing.MonthlyRent = -1
		before := testutil.ToFloat64(s.metrics.Violations.WithLabelValues(string(checks.CodeTenantBrokerFeeProhibited), "critical"))
		listing.PaidBy = checks.PayerTenant

		_, err := s.engine.ListingPublish(s.ctx, marketpack.MarketNYC, listing)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		after := testutil.ToFloat64(s.metrics.Violations.WithLabelValues(string(checks.CodeTenantBrokerFeeProhibited), "critical"))
		s.Equal(before, after)
	})
}

func (s *EngineSuite) TestUnknownMarketUsesDefaultPack() {
	listing := Listing{
		DepositTerms: checks.DepositTerms{MonthlyRent: 1500, SecurityDeposit: 1500},
		BrokerFee:    checks.BrokerFee{HasBrokerFee: flag(false)},
		DisclosureStatus: checks.DisclosureStatus{
			Delivered:    []string{"broker_fee_disclosure"},
			Acknowledged: []string{"broker_fee_disclosure"},
		},
	}

	result, err := s.engine.ListingPublish(s.ctx, id.MarketID("us_tx_austin"), listing)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal("us_standard", result.Decision.MarketPack)
	s.Require().Len(result.Decision.Violations, 1)
	v := result.Decision.Violations[0]
	s.Equal(checks.CodeMarketPackDefaulted, v.Code)
	s.Equal(compliance.SeverityWarning, v.Severity)
	requested, _ := v.Evidence.Get("requested_market")
	s.Equal("us_tx_austin", requested.Text())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.DefaultPackApplied))
}

func (s *EngineSuite) TestLeaseCreation() {
	legal := 2100.0

	s.Run("stabilized unit with legal rent and disclosures", func() {
		result, err := s.engine.LeaseCreation(s.ctx, marketpack.MarketNYC, Lease{
			MonthlyRent:      2000,
			SecurityDeposit:  2000,
			IsRentStabilized: flag(true),
			LegalRent:        &legal,
			DisclosureStatus: nycLeaseDisclosures(),
		})
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal([]string{"security_deposit", "rent_stabilization", "disclosure"}, result.Decision.ChecksPerformed)
	})

	s.Run("lease without a stabilization flag is rejected", func() {
		_, err := s.engine.LeaseCreation(s.ctx, marketpack.MarketNYC, Lease{
			MonthlyRent:      2000,
			SecurityDeposit:  2000,
			LegalRent:        &legal,
			DisclosureStatus: nycLeaseDisclosures(),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "is_rent_stabilized is required")
	})

	s.Run("missing legal rent blocks", func() {
		result, err := s.engine.LeaseCreation(s.ctx, marketpack.MarketNYC, Lease{
			MonthlyRent:      2000,
			SecurityDeposit:  2000,
			IsRentStabilized: flag(true),
			DisclosureStatus: nycLeaseDisclosures(),
		})
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal([]compliance.Code{checks.CodeLegalRentMissing}, codesOf(result.Decision))
	})

	s.Run("unacknowledged disclosures warn but pass", func() {
		status := nycLeaseDisclosures()
		status.Acknowledged = nil
		result, err := s.engine.LeaseCreation(s.ctx, marketpack.MarketNYC, Lease{
			MonthlyRent:      2000,
			SecurityDeposit:  1000,
			IsRentStabilized: flag(false),
			DisclosureStatus: status,
		})
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Len(result.Decision.ViolationsWithCode(checks.CodeDisclosureUnacked), 4)
		s.Len(result.Decision.RecommendedFixes, 4)
	})
}

func (s *EngineSuite) TestRentIncrease() {
	s.Run("within cap", func() {
		result, err := s.engine.RentIncrease(s.ctx, marketpack.MarketNYC, RentIncrease{
			CurrentRent: 2000, ProposedRent: 2166, NoticeDays: 90, EffectiveDate: effective,
		})
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Empty(result.Decision.Violations)
	})

	s.Run("above cap is blocked", func() {
		result, err := s.engine.RentIncrease(s.ctx, marketpack.MarketNYC, RentIncrease{
			CurrentRent: 2000, ProposedRent: 2300, NoticeDays: 90, EffectiveDate: effective,
		})
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal([]compliance.Code{checks.CodeRentIncreaseOverCap}, codesOf(result.Decision))
		s.Contains(result.BlockedReason, "$2166.00")
	})

	s.Run("short notice warns", func() {
		result, err := s.engine.RentIncrease(s.ctx, marketpack.MarketNYC, RentIncrease{
			CurrentRent: 2000, ProposedRent: 2050, NoticeDays: 10, EffectiveDate: effective,
		})
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.True(result.Decision.HasSeverity(compliance.SeverityWarning))
	})

	s.Run("missing effective date is rejected", func() {
		_, err := s.engine.RentIncrease(s.ctx, marketpack.MarketNYC, RentIncrease{
			CurrentRent: 2000, ProposedRent: 2050, NoticeDays: 90,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *EngineSuite) TestRentIncreaseCPITimeout() {
	registry, err := marketpack.NewBuiltinRegistry()
	s.Require().NoError(err)
	hanging := cpi.ProviderFunc(func(ctx context.Context, _ time.Time) (cpi.Reading, error) {
		<-ctx.Done()
		return cpi.Reading{}, ctx.Err()
	})
	engine, err := New(registry, WithCPIProvider(hanging))
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(s.ctx, 50*time.Millisecond)
	defer cancel()
	result, err := engine.RentIncrease(ctx, marketpack.MarketNYC, RentIncrease{
		CurrentRent: 2000, ProposedRent: 2100, NoticeDays: 90, EffectiveDate: effective,
	})
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Require().Equal([]compliance.Code{checks.CodeCPIFallbackUsed}, codesOf(result.Decision))
	reason, _ := result.Decision.Violations[0].Evidence.Get("reason")
	s.Equal("timeout", reason.Text())
}

func (s *EngineSuite) TestFCHAStageTransition() {
	cases := []struct {
		name    string
		from    screening.Stage
		to      screening.Stage
		allowed bool
		code    compliance.Code
	}{
		{"advance one stage", screening.StageConditionalOffer, screening.StageBackgroundCheck, true, ""},
		{"stall", screening.StageApplicationReview, screening.StageApplicationReview, true, ""},
		{"bypass conditional offer", screening.StageInitialInquiry, screening.StageBackgroundCheck, false, checks.CodeScreeningBypassed},
		{"review straight to final approval", screening.StageApplicationReview, screening.StageFinalApproval, false, checks.CodeScreeningBypassed},
		{"backward", screening.StageBackgroundCheck, screening.StageApplicationSubmitted, false, checks.CodeBackwardTransition},
		{"skip before offer", screening.StageInitialInquiry, screening.StageApplicationReview, false, checks.CodeStageSkipped},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			result, err := s.engine.FCHAStageTransition(s.ctx, marketpack.MarketNYC, StageTransition{
				CurrentStage: tc.from,
				TargetStage:  tc.to,
			})
			s.Require().NoError(err)
			s.Equal(tc.allowed, result.Allowed)
			if tc.code != "" {
				s.Equal([]compliance.Code{tc.code}, codesOf(result.Decision))
			}
		})
	}
}

func (s *EngineSuite) TestFCHABackgroundCheck() {
	s.Run("before conditional offer", func() {
		result, err := s.engine.FCHABackgroundCheck(s.ctx, marketpack.MarketNYC, BackgroundCheck{
			CurrentStage: screening.StageApplicationSubmitted,
			Checks:       []checks.ScreeningCheck{checks.ScreeningCredit},
		})
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal([]compliance.Code{checks.CodePrematureScreening}, codesOf(result.Decision))
	})

	s.Run("at conditional offer", func() {
		result, err := s.engine.FCHABackgroundCheck(s.ctx, marketpack.MarketNYC, BackgroundCheck{
			CurrentStage: screening.StageConditionalOffer,
			Checks:       []checks.ScreeningCheck{checks.ScreeningCredit, checks.ScreeningCriminal},
		})
		s.Require().NoError(err)
		s.True(result.Allowed)
	})

	s.Run("no checks requested", func() {
		_, err := s.engine.FCHABackgroundCheck(s.ctx, marketpack.MarketNYC, BackgroundCheck{
			CurrentStage: screening.StageConditionalOffer,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *EngineSuite) TestDryRun() {
	s.Run("findings keep input order", func() {
		result, err := s.engine.DryRun(s.ctx, marketpack.MarketNYC, []checks.Check{
			checks.SecurityDepositCheck{DepositTerms: checks.DepositTerms{MonthlyRent: 1000, SecurityDeposit: 3000}},
			checks.StageTransitionCheck{StageChange: checks.StageChange{
				CurrentStage: screening.StageBackgroundCheck,
				TargetStage:  screening.StageInitialInquiry,
			}},
			checks.RentIncreaseCheck{RentIncrease: checks.RentIncrease{
				CurrentRent: 1000, ProposedRent: 1500, NoticeDays: 90, EffectiveDate: effective,
			}},
		})
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal([]string{"security_deposit", "stage_transition", "rent_increase"}, result.Decision.ChecksPerformed)
		s.Equal([]compliance.Code{
			checks.CodeDepositExceedsCap,
			checks.CodeBackwardTransition,
			checks.CodeRentIncreaseOverCap,
		}, codesOf(result.Decision))
	})

	s.Run("empty check list", func() {
		_, err := s.engine.DryRun(s.ctx, marketpack.MarketNYC, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("one invalid check rejects the run", func() {
		_, err := s.engine.DryRun(s.ctx, marketpack.MarketNYC, []checks.Check{
			checks.SecurityDepositCheck{DepositTerms: checks.DepositTerms{MonthlyRent: 1000, SecurityDeposit: 100}},
			checks.SecurityDepositCheck{DepositTerms: checks.DepositTerms{MonthlyRent: 0, SecurityDeposit: 100}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *EngineSuite) TestMetricsRecorded() {
	listing := compliantNYCListing()
	listing.PaidBy = checks.PayerTenant
	_, err := s.engine.ListingPublish(s.ctx, marketpack.MarketNYC, listing)
	s.Require().NoError(err)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.GateOutcome.WithLabelValues("listing_publish", "nyc", "false")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Violations.WithLabelValues(string(checks.CodeTenantBrokerFeeProhibited), "critical")))
}

func TestGatesAreIdempotent(t *testing.T) {
	registry, err := marketpack.NewBuiltinRegistry()
	require.NoError(t, err)
	engine, err := New(registry, WithCPIProvider(liveCPI(4.1)))
	require.NoError(t, err)

	listing := compliantNYCListing()
	listing.PaidBy = checks.PayerTenant
	listing.Acknowledged = nil
	increase := RentIncrease{CurrentRent: 2450, ProposedRent: 2700, NoticeDays: 30, EffectiveDate: effective}

	evaluate := func() []byte {
		a, err := engine.ListingPublish(context.Background(), "nyc", listing)
		require.NoError(t, err)
		b, err := engine.RentIncrease(context.Background(), "nyc", increase)
		require.NoError(t, err)
		out, err := json.Marshal([]compliance.GateResult{a, b})
		require.NoError(t, err)
		return out
	}

	first := evaluate()
	for range 5 {
		assert.Equal(t, string(first), string(evaluate()))
	}
}

func TestGatesAreSafeForConcurrentUse(t *testing.T) {
	registry, err := marketpack.NewBuiltinRegistry()
	require.NoError(t, err)
	engine, err := New(registry, WithCPIProvider(liveCPI(3.3)), WithMetrics(metrics.New(prometheus.NewRegistry())))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]compliance.GateResult, 32)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := engine.RentIncrease(context.Background(), "nyc", RentIncrease{
				CurrentRent: 2000, ProposedRent: 2200, NoticeDays: 90, EffectiveDate: effective,
			})
			assert.NoError(t, err)
			results[i] = r
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.False(t, r.Allowed)
		assert.Equal(t, results[0].BlockedReason, r.BlockedReason)
	}
}

func TestNew_RequiresRegistry(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestParseGate(t *testing.T) {
	for _, g := range Gates() {
		parsed, err := ParseGate(string(g))
		require.NoError(t, err)
		assert.Equal(t, g, parsed)
	}
	_, err := ParseGate("listing_archive")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
