package checks

import (
	"fmt"

	"marketgate/internal/compliance"
	"marketgate/internal/compliance/marketpack"
)

// CheckSecurityDeposit flags a deposit above MonthlyRent * DepositCapRatio.
// Amounts are compared in whole cents.
func CheckSecurityDeposit(d DepositTerms, p marketpack.Pack) compliance.Findings {
	var out compliance.Findings
	maxDeposit := cents(d.MonthlyRent * p.DepositCapRatio)
	if cents(d.SecurityDeposit) <= maxDeposit {
		return out
	}
	msg := fmt.Sprintf("Security deposit $%.2f exceeds the $%.2f cap (%g x monthly rent)",
		round2(d.SecurityDeposit), dollars(maxDeposit), p.DepositCapRatio)
	out.Add(compliance.Violation{
		Code:     CodeDepositExceedsCap,
		Message:  msg,
		Severity: compliance.SeverityViolation,
		Evidence: compliance.Evidence{
			"security_deposit":  compliance.Number(round2(d.SecurityDeposit)),
			"monthly_rent":      compliance.Number(round2(d.MonthlyRent)),
			"deposit_cap_ratio": compliance.Number(p.DepositCapRatio),
			"max_deposit":       compliance.Number(dollars(maxDeposit)),
		},
	}, fix(FixReduceDeposit, fmt.Sprintf("Reduce the security deposit to at most $%.2f", dollars(maxDeposit))))
	return out
}
