package checks

import (
	"fmt"

	"marketgate/internal/compliance"
	"marketgate/internal/compliance/marketpack"
)

// CheckRentStabilization verifies a stabilized unit's rent against its legal
// regulated rent. Without a recorded legal rent legality cannot be verified,
// which is critical.
func CheckRentStabilization(s Stabilization, _ marketpack.Pack) compliance.Findings {
	var out compliance.Findings
	if !s.stabilized() {
		return out
	}
	if s.LegalRent == nil {
		out.Add(compliance.Violation{
			Code:     CodeLegalRentMissing,
			Message:  "Rent-stabilized unit has no legal regulated rent on record",
			Severity: compliance.SeverityCritical,
			Evidence: compliance.Evidence{
				"monthly_rent": compliance.Number(round2(s.MonthlyRent)),
			},
		}, fix(FixRecordLegalRent, "Record the unit's legal regulated rent from its registration before executing the lease"))
		return out
	}

	legal := cents(*s.LegalRent)
	charged := []struct {
		field  string
		amount *float64
	}{
		{"monthly_rent", &s.MonthlyRent},
		{"preferential_rent", s.PreferentialRent},
	}
	for _, c := range charged {
		if c.amount == nil || cents(*c.amount) <= legal {
			continue
		}
		msg := fmt.Sprintf("%s $%.2f exceeds the legal regulated rent $%.2f",
			c.field, round2(*c.amount), dollars(legal))
		out.Add(compliance.Violation{
			Code:     CodeRentExceedsLegal,
			Message:  msg,
			Severity: compliance.SeverityViolation,
			Evidence: compliance.Evidence{
				"rent_field":  compliance.String(c.field),
				"rent_amount": compliance.Number(round2(*c.amount)),
				"legal_rent":  compliance.Number(dollars(legal)),
			},
		}, fix(FixLowerStabilizedRent, fmt.Sprintf("Lower the rent to at most the legal regulated rent of $%.2f", dollars(legal))))
	}
	return out
}
