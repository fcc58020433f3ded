package checks

import (
	"math"
	"strings"
	"time"

	"marketgate/internal/compliance/marketpack"
	"marketgate/internal/compliance/screening"
	dErrors "marketgate/pkg/domain-errors"
)

// Payer is the party paying a broker fee.
type Payer string

const (
	PayerTenant   Payer = "tenant"
	PayerLandlord Payer = "landlord"
)

// Resolve returns the effective payer. An unset payer is treated as the
// tenant, the conservative reading for fee-prohibition rules.
func (p Payer) Resolve() Payer {
	if p == "" {
		return PayerTenant
	}
	return p
}

func (p Payer) IsValid() bool {
	switch p {
	case "", PayerTenant, PayerLandlord:
		return true
	}
	return false
}

// BrokerFee is the fee-disclosure checker's input. HasBrokerFee must be
// stated explicitly; a listing that omits it is rejected, not read as "no fee".
type BrokerFee struct {
	HasBrokerFee *bool   `json:"has_broker_fee"`
	Amount       float64 `json:"broker_fee_amount"`
	PaidBy       Payer   `json:"broker_fee_paid_by,omitempty"`
	Disclosed    bool    `json:"broker_fee_disclosed"`
}

func (f BrokerFee) Validate() error {
	if f.HasBrokerFee == nil {
		return invalid("has_broker_fee", "is required")
	}
	if err := nonNegative("broker_fee_amount", f.Amount); err != nil {
		return err
	}
	if f.Amount > 0 && !*f.HasBrokerFee {
		return invalid("broker_fee_amount", "must be zero when has_broker_fee is false")
	}
	if !f.PaidBy.IsValid() {
		return invalid("broker_fee_paid_by", "must be tenant or landlord")
	}
	return nil
}

func (f BrokerFee) charged() bool {
	return f.HasBrokerFee != nil && *f.HasBrokerFee
}

// DepositTerms is the security-deposit checker's input.
type DepositTerms struct {
	MonthlyRent     float64 `json:"monthly_rent"`
	SecurityDeposit float64 `json:"security_deposit"`
}

func (d DepositTerms) Validate() error {
	if err := positive("monthly_rent", d.MonthlyRent); err != nil {
		return err
	}
	return nonNegative("security_deposit", d.SecurityDeposit)
}

// Stabilization is the rent-stabilization checker's input. LegalRent is the
// registered legal regulated rent; PreferentialRent is a lower rent actually
// charged, when one is offered. IsRentStabilized must be stated explicitly.
type Stabilization struct {
	IsRentStabilized *bool    `json:"is_rent_stabilized"`
	MonthlyRent      float64  `json:"monthly_rent"`
	LegalRent        *float64 `json:"legal_rent,omitempty"`
	PreferentialRent *float64 `json:"preferential_rent,omitempty"`
}

func (s Stabilization) Validate() error {
	if s.IsRentStabilized == nil {
		return invalid("is_rent_stabilized", "is required")
	}
	if err := positive("monthly_rent", s.MonthlyRent); err != nil {
		return err
	}
	if s.LegalRent != nil {
		if err := positive("legal_rent", *s.LegalRent); err != nil {
			return err
		}
	}
	if s.PreferentialRent != nil {
		if err := positive("preferential_rent", *s.PreferentialRent); err != nil {
			return err
		}
	}
	return nil
}

func (s Stabilization) stabilized() bool {
	return s.IsRentStabilized != nil && *s.IsRentStabilized
}

// DisclosureStatus lists the disclosure types delivered to and acknowledged
// by the tenant.
type DisclosureStatus struct {
	Delivered    []string `json:"delivered_disclosures"`
	Acknowledged []string `json:"acknowledged_disclosures"`
}

func (d DisclosureStatus) Validate() error {
	for _, t := range d.Delivered {
		if strings.TrimSpace(t) == "" {
			return invalid("delivered_disclosures", "must not contain empty types")
		}
	}
	for _, t := range d.Acknowledged {
		if strings.TrimSpace(t) == "" {
			return invalid("acknowledged_disclosures", "must not contain empty types")
		}
	}
	return nil
}

// RentIncrease is the rent-increase checker's input. EffectiveDate selects
// the CPI reading, so equal inputs always evaluate against the same month.
type RentIncrease struct {
	CurrentRent   float64   `json:"current_rent"`
	ProposedRent  float64   `json:"proposed_rent"`
	NoticeDays    int       `json:"notice_days"`
	EffectiveDate time.Time `json:"effective_date"`
}

func (r RentIncrease) Validate() error {
	if err := positive("current_rent", r.CurrentRent); err != nil {
		return err
	}
	if err := positive("proposed_rent", r.ProposedRent); err != nil {
		return err
	}
	if r.NoticeDays < 0 {
		return invalid("notice_days", "must not be negative")
	}
	if r.EffectiveDate.IsZero() {
		return invalid("effective_date", "is required")
	}
	return nil
}

// ScreeningCheck is a kind of tenant background check.
type ScreeningCheck string

const (
	ScreeningCredit          ScreeningCheck = "credit"
	ScreeningCriminal        ScreeningCheck = "criminal"
	ScreeningEvictionHistory ScreeningCheck = "eviction_history"
)

func (c ScreeningCheck) IsValid() bool {
	switch c {
	case ScreeningCredit, ScreeningCriminal, ScreeningEvictionHistory:
		return true
	}
	return false
}

// ScreeningRequest is the screening-order checker's input: the checks an
// application wants to run at its current stage.
type ScreeningRequest struct {
	CurrentStage screening.Stage  `json:"current_stage"`
	Checks       []ScreeningCheck `json:"checks"`
}

func (r ScreeningRequest) Validate() error {
	if !r.CurrentStage.IsValid() {
		return invalid("current_stage", "must be a known screening stage")
	}
	for _, c := range r.Checks {
		if !c.IsValid() {
			return invalid("checks", "unknown screening check: "+string(c))
		}
	}
	return nil
}

// StageChange is the stage-transition checker's input.
type StageChange struct {
	CurrentStage screening.Stage `json:"current_stage"`
	TargetStage  screening.Stage `json:"target_stage"`
}

func (s StageChange) Validate() error {
	if !s.CurrentStage.IsValid() {
		return invalid("current_stage", "must be a known screening stage")
	}
	if !s.TargetStage.IsValid() {
		return invalid("target_stage", "must be a known screening stage")
	}
	return nil
}

func (s StageChange) transition() screening.Transition {
	return screening.Transition{From: s.CurrentStage, To: s.TargetStage}
}

func validTransition(t marketpack.Transition) error {
	if !t.IsValid() {
		return invalid("transition", "unknown transition: "+string(t))
	}
	return nil
}

func positive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return invalid(field, "must be a positive amount")
	}
	return nil
}

func nonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return invalid(field, "must not be negative")
	}
	return nil
}

func invalid(field, msg string) error {
	return dErrors.New(dErrors.CodeValidation, field+" "+msg)
}
