package checks

import (
	"fmt"

	"marketgate/internal/compliance"
	"marketgate/internal/compliance/marketpack"
)

// CheckFeeDisclosure applies the broker-fee allocation rules. A tenant-paid
// fee in a market that prohibits it is critical. Where tenants may pay, an
// undisclosed tenant-paid fee in a market requiring disclosure is a violation.
func CheckFeeDisclosure(f BrokerFee, p marketpack.Pack) compliance.Findings {
	var out compliance.Findings
	if !f.charged() {
		return out
	}
	payer := f.PaidBy.Resolve()
	evidence := compliance.Evidence{
		"broker_fee_amount":  compliance.Number(round2(f.Amount)),
		"broker_fee_paid_by": compliance.String(string(payer)),
		"payer_defaulted":    compliance.Bool(f.PaidBy == ""),
		"market_pack":        compliance.String(string(p.ID)),
	}

	if payer == PayerTenant && p.BrokerFeeTenantPayProhibited {
		out.Add(compliance.Violation{
			Code:     CodeTenantBrokerFeeProhibited,
			Message:  fmt.Sprintf("Tenant-paid broker fees are prohibited in %s", p.ID),
			Severity: compliance.SeverityCritical,
			Evidence: evidence,
		}, fix(FixShiftBrokerFee,
			"Shift the broker fee to the landlord who engaged the broker, or remove it and disclose any remaining tenant-paid fees"))
	}

	if payer == PayerTenant && !p.BrokerFeeTenantPayProhibited && p.BrokerFeeDisclosureRequired && !f.Disclosed {
		out.Add(compliance.Violation{
			Code:     CodeBrokerFeeNotDisclosed,
			Message:  "Broker fee must be disclosed in the listing before it is published",
			Severity: compliance.SeverityViolation,
			Evidence: compliance.Evidence{
				"broker_fee_amount":  compliance.Number(round2(f.Amount)),
				"broker_fee_paid_by": compliance.String(string(payer)),
			},
		}, fix(FixDiscloseBrokerFee, "Disclose the broker fee amount and who pays it in the listing"))
	}
	return out
}
