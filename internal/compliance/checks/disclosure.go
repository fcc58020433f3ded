package checks

import (
	"fmt"

	"marketgate/internal/compliance"
	"marketgate/internal/compliance/marketpack"
	"marketgate/pkg/platform/dedupe"
)

// CheckDisclosures verifies every disclosure the pack requires before
// transition. Undelivered is critical; delivered but unacknowledged is a
// warning. Types match case-insensitively.
func CheckDisclosures(d DisclosureStatus, transition marketpack.Transition, p marketpack.Pack) compliance.Findings {
	var out compliance.Findings
	delivered := typeSet(d.Delivered)
	acknowledged := typeSet(d.Acknowledged)

	for _, req := range p.DisclosuresBefore(transition) {
		key := normalizeDisclosure(req.Type)
		evidence := compliance.Evidence{
			"disclosure_type": compliance.String(req.Type),
			"required_before": compliance.String(string(req.RequiredBefore)),
		}
		if _, ok := delivered[key]; !ok {
			out.Add(compliance.Violation{
				Code:     CodeDisclosureMissing,
				Message:  fmt.Sprintf("Required %s disclosure has not been delivered", req.Type),
				Severity: compliance.SeverityCritical,
				Evidence: evidence,
			}, fix(disclosureFixCode(fixDeliverPrefix, req.Type),
				fmt.Sprintf("Deliver the %s disclosure to the tenant before %s", req.Type, req.RequiredBefore)))
			continue
		}
		if _, ok := acknowledged[key]; !ok {
			out.Add(compliance.Violation{
				Code:     CodeDisclosureUnacked,
				Message:  fmt.Sprintf("The %s disclosure was delivered but not acknowledged", req.Type),
				Severity: compliance.SeverityWarning,
				Evidence: evidence,
			}, fix(disclosureFixCode(fixAcknowledgePrefix, req.Type),
				fmt.Sprintf("Obtain the tenant's written acknowledgment of the %s disclosure", req.Type)))
		}
	}
	return out
}

func typeSet(types []string) map[string]struct{} {
	set := make(map[string]struct{}, len(types))
	for _, t := range dedupe.TrimmedLower(types) {
		set[t] = struct{}{}
	}
	return set
}
