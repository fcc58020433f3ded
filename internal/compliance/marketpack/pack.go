// Package marketpack holds the versioned, jurisdiction-specific policy
// parameters the rule checkers evaluate against.
//
// A Pack is a value: the registry hands out copies, so callers may read a
// pack concurrently without locking and can never edit a loaded regulation
// in place. A new regulation version is a new pack with a higher Version.
package marketpack

import (
	"slices"
	"strconv"
	"strings"

	"marketgate/internal/compliance/screening"
	id "marketgate/pkg/domain"
	dErrors "marketgate/pkg/domain-errors"
)

// Transition tags the state change a disclosure must precede.
type Transition string

const (
	TransitionListingPublish Transition = "listing_publish"
	TransitionLeaseSigning   Transition = "lease_signing"
	TransitionRentIncrease   Transition = "rent_increase"
)

func (t Transition) IsValid() bool {
	switch t {
	case TransitionListingPublish, TransitionLeaseSigning, TransitionRentIncrease:
		return true
	}
	return false
}

// Disclosure is a document the landlord must deliver before a transition.
type Disclosure struct {
	Type           string     `json:"type"`
	RequiredBefore Transition `json:"required_before"`
}

// RentIncreaseCap parameterizes the maximum permissible increase:
// min(BasePercent + CPI * CPIMultiplier, MaxPercent), in percent.
type RentIncreaseCap struct {
	BasePercent   float64 `json:"base_percent"`
	CPIMultiplier float64 `json:"cpi_multiplier"`
	MaxPercent    float64 `json:"max_percent"`
}

// Percent evaluates the cap for an annual CPI change given in percent.
// The result is never negative and never above MaxPercent.
func (c RentIncreaseCap) Percent(cpiPercent float64) float64 {
	p := c.BasePercent + cpiPercent*c.CPIMultiplier
	if p > c.MaxPercent {
		p = c.MaxPercent
	}
	if p < 0 {
		p = 0
	}
	return p
}

// Pack is one immutable version of a jurisdiction's rule parameters.
type Pack struct {
	ID      id.MarketID `json:"market_pack_id"`
	Version string      `json:"version"`
	Name    string      `json:"name"`

	// DepositCapRatio caps the security deposit as a multiple of monthly rent.
	DepositCapRatio float64 `json:"deposit_cap_ratio"`

	RentIncreaseCap RentIncreaseCap `json:"rent_increase_cap"`
	// MinNoticeDays is the minimum notice before a rent increase takes effect.
	MinNoticeDays int `json:"min_notice_days"`
	// FallbackCPIPercent substitutes for the live CPI feed when it is unavailable.
	FallbackCPIPercent float64 `json:"fallback_cpi_percent"`

	BrokerFeeTenantPayProhibited bool `json:"broker_fee_tenant_pay_prohibited"`
	BrokerFeeDisclosureRequired  bool `json:"broker_fee_disclosure_required"`

	// EarliestScreeningStage is the first stage at which credit, criminal
	// and eviction-history checks may run.
	EarliestScreeningStage screening.Stage `json:"earliest_screening_stage"`

	Disclosures []Disclosure `json:"disclosures"`
}

// PackVersion returns the version used to stamp decisions.
func PackVersion(p Pack) string {
	return p.Version
}

// DisclosuresBefore returns the disclosures required before t, in pack order.
func (p Pack) DisclosuresBefore(t Transition) []Disclosure {
	var out []Disclosure
	for _, d := range p.Disclosures {
		if d.RequiredBefore == t {
			out = append(out, d)
		}
	}
	return out
}

func (p Pack) clone() Pack {
	p.Disclosures = slices.Clone(p.Disclosures)
	return p
}

// Validate checks the pack's internal consistency.
func (p Pack) Validate() error {
	if parsed, err := id.ParseMarketID(string(p.ID)); err != nil || parsed != p.ID {
		return dErrors.New(dErrors.CodeInvalidInput, "market pack id is invalid: "+string(p.ID))
	}
	if _, err := parseVersion(p.Version); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "market pack "+string(p.ID)+" has an invalid version")
	}
	if p.DepositCapRatio <= 0 {
		return packError(p, "deposit_cap_ratio must be positive")
	}
	c := p.RentIncreaseCap
	if c.BasePercent < 0 || c.CPIMultiplier < 0 || c.MaxPercent <= 0 {
		return packError(p, "rent increase cap must have non-negative base and multiplier and a positive max")
	}
	if p.MinNoticeDays < 0 {
		return packError(p, "min_notice_days must not be negative")
	}
	if p.FallbackCPIPercent < 0 {
		return packError(p, "fallback_cpi_percent must not be negative")
	}
	if !p.EarliestScreeningStage.IsValid() {
		return packError(p, "earliest screening stage is invalid: "+string(p.EarliestScreeningStage))
	}
	if !p.EarliestScreeningStage.AtLeast(screening.StageConditionalOffer) {
		return packError(p, "earliest screening stage must not precede "+string(screening.StageConditionalOffer))
	}
	seen := make(map[Disclosure]struct{}, len(p.Disclosures))
	for _, d := range p.Disclosures {
		if strings.TrimSpace(d.Type) == "" {
			return packError(p, "disclosure type is required")
		}
		if !d.RequiredBefore.IsValid() {
			return packError(p, "disclosure "+d.Type+" has invalid required_before: "+string(d.RequiredBefore))
		}
		if _, dup := seen[d]; dup {
			return packError(p, "duplicate disclosure "+d.Type)
		}
		seen[d] = struct{}{}
	}
	return nil
}

func packError(p Pack, msg string) error {
	return dErrors.New(dErrors.CodeInvalidInput, "market pack "+string(p.ID)+": "+msg)
}

// CompareVersions orders two pack versions of the form "N(.N)*".
// It returns -1, 0 or 1; an unparsable version sorts first.
func CompareVersions(a, b string) int {
	pa, errA := parseVersion(a)
	pb, errB := parseVersion(b)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	for i := 0; i < max(len(pa), len(pb)); i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

func parseVersion(v string) ([]int, error) {
	if v == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "version is empty")
	}
	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "version component is not a non-negative integer: "+v)
		}
		out[i] = n
	}
	return out, nil
}
