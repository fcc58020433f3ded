package checks

import (
	"context"
	"fmt"

	"marketgate/internal/compliance"
	"marketgate/internal/compliance/cpi"
	"marketgate/internal/compliance/marketpack"
)

// CheckRentIncrease applies the good-cause rent-increase rules. The maximum
// new rent is CurrentRent * (1 + cap/100), where cap is the pack's
// RentIncreaseCap evaluated at the CPI for EffectiveDate. When the CPI
// provider fails or reports a fallback reading, the fallback value is still
// applied and an info finding records why.
func CheckRentIncrease(ctx context.Context, r RentIncrease, p marketpack.Pack, provider cpi.Provider) compliance.Findings {
	var out compliance.Findings

	reading := cpi.Resolve(ctx, provider, r.EffectiveDate, p.FallbackCPIPercent)
	capPercent := p.RentIncreaseCap.Percent(reading.Percent)
	maxRent := cents(r.CurrentRent * (1 + capPercent/100))

	if cents(r.ProposedRent) > maxRent {
		increase := (r.ProposedRent - r.CurrentRent) / r.CurrentRent * 100
		msg := fmt.Sprintf("Proposed rent $%.2f exceeds the maximum $%.2f allowed by the %.2f%% cap",
			round2(r.ProposedRent), dollars(maxRent), capPercent)
		out.Add(compliance.Violation{
			Code:     CodeRentIncreaseOverCap,
			Message:  msg,
			Severity: compliance.SeverityViolation,
			Evidence: compliance.Evidence{
				"current_rent":      compliance.Number(round2(r.CurrentRent)),
				"proposed_rent":     compliance.Number(round2(r.ProposedRent)),
				"max_rent":          compliance.Number(dollars(maxRent)),
				"increase_percent":  compliance.Number(round2(increase)),
				"cap_percent":       compliance.Number(round2(capPercent)),
				"cpi_percent":       compliance.Number(reading.Percent),
				"cpi_source":        compliance.String(string(reading.Source)),
				"cpi_fallback_used": compliance.Bool(reading.Fallback),
			},
		}, fix(FixLowerRentIncrease, fmt.Sprintf("Lower the proposed rent to at most $%.2f", dollars(maxRent))))
	}

	if r.NoticeDays < p.MinNoticeDays {
		out.Add(compliance.Violation{
			Code:     CodeInsufficientNotice,
			Message:  fmt.Sprintf("Rent increase notice of %d days is below the required %d days", r.NoticeDays, p.MinNoticeDays),
			Severity: compliance.SeverityWarning,
			Evidence: compliance.Evidence{
				"notice_days":          compliance.Int(r.NoticeDays),
				"required_notice_days": compliance.Int(p.MinNoticeDays),
			},
		}, fix(FixExtendNotice, fmt.Sprintf("Give at least %d days written notice before the increase takes effect", p.MinNoticeDays)))
	}

	if reading.Fallback {
		out.Add(compliance.Violation{
			Code:     CodeCPIFallbackUsed,
			Message:  "Live CPI data was unavailable; the rent cap was computed from a fallback CPI value",
			Severity: compliance.SeverityInfo,
			Evidence: compliance.Evidence{
				"reason":      compliance.String(reading.Reason),
				"cpi_source":  compliance.String(string(reading.Source)),
				"cpi_percent": compliance.Number(reading.Percent),
				"cpi_month":   compliance.String(cpi.Month(reading.AsOf)),
			},
		}, nil)
	}
	return out
}
