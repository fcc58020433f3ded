// Package checks implements the rule checkers. Each checker is a pure
// function of its typed input and a market pack (the rent-increase checker
// also consults a CPI provider) returning violations and fixes.
//
// Checkers can run standalone through the closed Check union: every kind
// carries its own typed input, so adding a regulation means adding a type
// that implements Check rather than a new string to dispatch on.
package checks

import (
	"bytes"
	"context"
	"encoding/json"

	"marketgate/internal/compliance"
	"marketgate/internal/compliance/cpi"
	"marketgate/internal/compliance/marketpack"
	dErrors "marketgate/pkg/domain-errors"
)

// Kind names a checker. Kinds appear in Decision.ChecksPerformed.
type Kind string

const (
	KindFeeDisclosure     Kind = "fee_disclosure"
	KindScreeningOrder    Kind = "screening_order"
	KindRentIncrease      Kind = "rent_increase"
	KindSecurityDeposit   Kind = "security_deposit"
	KindRentStabilization Kind = "rent_stabilization"
	KindDisclosure        Kind = "disclosure"
	KindStageTransition   Kind = "stage_transition"
)

var kinds = []Kind{
	KindFeeDisclosure,
	KindScreeningOrder,
	KindRentIncrease,
	KindSecurityDeposit,
	KindRentStabilization,
	KindDisclosure,
	KindStageTransition,
}

// Kinds lists every checker kind.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// ParseKind parses a checker kind. An unknown kind is a caller bug and is
// rejected rather than treated as an empty checklist.
func ParseKind(v string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == v {
			return k, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown check type: "+v)
}

// Env is what a check runs against.
type Env struct {
	Pack marketpack.Pack
	CPI  cpi.Provider
}

// Check is one standalone checker invocation. The set of implementations is
// closed to this package.
type Check interface {
	Kind() Kind
	Validate() error
	run(ctx context.Context, env Env) compliance.Findings
}

// Run validates c and runs it.
func Run(ctx context.Context, c Check, env Env) (compliance.Findings, error) {
	if err := c.Validate(); err != nil {
		return compliance.Findings{}, err
	}
	return c.run(ctx, env), nil
}

type FeeDisclosureCheck struct {
	BrokerFee
}

func (FeeDisclosureCheck) Kind() Kind { return KindFeeDisclosure }

func (c FeeDisclosureCheck) run(_ context.Context, env Env) compliance.Findings {
	return CheckFeeDisclosure(c.BrokerFee, env.Pack)
}

type ScreeningOrderCheck struct {
	ScreeningRequest
}

func (ScreeningOrderCheck) Kind() Kind { return KindScreeningOrder }

func (c ScreeningOrderCheck) run(_ context.Context, env Env) compliance.Findings {
	return CheckScreeningOrder(c.ScreeningRequest, env.Pack)
}

type RentIncreaseCheck struct {
	RentIncrease
}

func (RentIncreaseCheck) Kind() Kind { return KindRentIncrease }

func (c RentIncreaseCheck) run(ctx context.Context, env Env) compliance.Findings {
	return CheckRentIncrease(ctx, c.RentIncrease, env.Pack, env.CPI)
}

type SecurityDepositCheck struct {
	DepositTerms
}

func (SecurityDepositCheck) Kind() Kind { return KindSecurityDeposit }

func (c SecurityDepositCheck) run(_ context.Context, env Env) compliance.Findings {
	return CheckSecurityDeposit(c.DepositTerms, env.Pack)
}

type RentStabilizationCheck struct {
	Stabilization
}

func (RentStabilizationCheck) Kind() Kind { return KindRentStabilization }

func (c RentStabilizationCheck) run(_ context.Context, env Env) compliance.Findings {
	return CheckRentStabilization(c.Stabilization, env.Pack)
}

// DisclosureCheck checks the disclosures due before Transition.
type DisclosureCheck struct {
	Transition marketpack.Transition `json:"transition"`
	DisclosureStatus
}

func (DisclosureCheck) Kind() Kind { return KindDisclosure }

func (c DisclosureCheck) Validate() error {
	if err := validTransition(c.Transition); err != nil {
		return err
	}
	return c.DisclosureStatus.Validate()
}

func (c DisclosureCheck) run(_ context.Context, env Env) compliance.Findings {
	return CheckDisclosures(c.DisclosureStatus, c.Transition, env.Pack)
}

type StageTransitionCheck struct {
	StageChange
}

func (StageTransitionCheck) Kind() Kind { return KindStageTransition }

func (c StageTransitionCheck) run(_ context.Context, _ Env) compliance.Findings {
	return CheckStageTransition(c.StageChange)
}

// Decode builds the Check for kind from its JSON input. Unknown kinds and
// unknown input fields are validation errors.
func Decode(kind string, input json.RawMessage) (Check, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	var c Check
	switch k {
	case KindFeeDisclosure:
		c, err = decodeInto[FeeDisclosureCheck](input)
	case KindScreeningOrder:
		c, err = decodeInto[ScreeningOrderCheck](input)
	case KindRentIncrease:
		c, err = decodeInto[RentIncreaseCheck](input)
	case KindSecurityDeposit:
		c, err = decodeInto[SecurityDepositCheck](input)
	case KindRentStabilization:
		c, err = decodeInto[RentStabilizationCheck](input)
	case KindDisclosure:
		c, err = decodeInto[DisclosureCheck](input)
	case KindStageTransition:
		c, err = decodeInto[StageTransitionCheck](input)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func decodeInto[T Check](input json.RawMessage) (Check, error) {
	var c T
	if len(bytes.TrimSpace(input)) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "check input is required")
	}
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid input for check")
	}
	return c, nil
}
