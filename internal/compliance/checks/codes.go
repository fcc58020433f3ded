package checks

import (
	"math"
	"strings"

	"marketgate/internal/compliance"
)

// Violation codes. They are persisted with decisions and must not change.
const (
	CodeTenantBrokerFeeProhibited compliance.Code = "FARE_ACT_TENANT_BROKER_FEE_PROHIBITED"
	CodeBrokerFeeNotDisclosed     compliance.Code = "FARE_ACT_BROKER_FEE_NOT_DISCLOSED"

	CodePrematureScreening compliance.Code = "FCHA_PREMATURE_SCREENING"
	CodeScreeningBypassed  compliance.Code = "FCHA_SCREENING_STAGE_BYPASSED"
	CodeBackwardTransition compliance.Code = "FCHA_BACKWARD_TRANSITION"
	CodeStageSkipped       compliance.Code = "FCHA_STAGE_SKIPPED"

	CodeRentIncreaseOverCap compliance.Code = "GOOD_CAUSE_RENT_INCREASE_EXCEEDS_CAP"
	CodeInsufficientNotice  compliance.Code = "GOOD_CAUSE_INSUFFICIENT_NOTICE"
	CodeCPIFallbackUsed     compliance.Code = "GOOD_CAUSE_CPI_FALLBACK_USED"

	CodeDepositExceedsCap compliance.Code = "DEPOSIT_EXCEEDS_CAP"
	CodeLegalRentMissing  compliance.Code = "RENT_STABILIZED_LEGAL_RENT_MISSING"
	CodeRentExceedsLegal  compliance.Code = "RENT_STABILIZED_RENT_EXCEEDS_LEGAL"
	CodeDisclosureMissing compliance.Code = "DISCLOSURE_NOT_DELIVERED"
	CodeDisclosureUnacked compliance.Code = "DISCLOSURE_NOT_ACKNOWLEDGED"

	CodeMarketPackDefaulted compliance.Code = "MARKET_PACK_DEFAULT_APPLIED"
)

// Remediation codes.
const (
	FixShiftBrokerFee      compliance.Code = "SHIFT_BROKER_FEE_TO_LANDLORD"
	FixDiscloseBrokerFee   compliance.Code = "DISCLOSE_BROKER_FEE"
	FixDeferScreening      compliance.Code = "DEFER_SCREENING_UNTIL_CONDITIONAL_OFFER"
	FixIssueConditional    compliance.Code = "ISSUE_CONDITIONAL_OFFER_FIRST"
	FixAdvanceOneStage     compliance.Code = "ADVANCE_ONE_STAGE_AT_A_TIME"
	FixLowerRentIncrease   compliance.Code = "LOWER_PROPOSED_RENT"
	FixExtendNotice        compliance.Code = "EXTEND_NOTICE_PERIOD"
	FixReduceDeposit       compliance.Code = "REDUCE_SECURITY_DEPOSIT"
	FixRecordLegalRent     compliance.Code = "RECORD_LEGAL_REGULATED_RENT"
	FixLowerStabilizedRent compliance.Code = "LOWER_RENT_TO_LEGAL_RENT"
)

const (
	fixDeliverPrefix     = "DELIVER_DISCLOSURE_"
	fixAcknowledgePrefix = "OBTAIN_ACKNOWLEDGMENT_"
)

func fix(code compliance.Code, description string) *compliance.RecommendedFix {
	return &compliance.RecommendedFix{Code: code, Description: description}
}

// disclosureFixCode derives a per-type fix code so fixes for different
// documents survive code-based deduplication.
func disclosureFixCode(prefix, disclosureType string) compliance.Code {
	return compliance.Code(prefix + strings.ToUpper(normalizeDisclosure(disclosureType)))
}

func normalizeDisclosure(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// cents converts a dollar amount to whole cents.
func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func dollars(c int64) float64 {
	return float64(c) / 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
