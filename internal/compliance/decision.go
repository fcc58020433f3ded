package compliance

import (
	"strings"

	"marketgate/pkg/platform/dedupe"
)

// PolicyVersion versions the engine's rule logic, independently of the
// market pack parameters it is evaluated against.
const PolicyVersion = "2025.10"

// PackRef stamps a decision with the market pack it was evaluated against.
type PackRef struct {
	ID      string
	Version string
}

// Decision is the aggregate outcome of every checker a gate ran.
//
// Invariant: Passed is true iff no violation blocks (see Severity.Blocks).
// ChecksPerformed lists every checker that ran, including those that found
// nothing.
type Decision struct {
	Passed            bool             `json:"passed"`
	Violations        []Violation      `json:"violations"`
	RecommendedFixes  []RecommendedFix `json:"recommended_fixes"`
	PolicyVersion     string           `json:"policy_version"`
	MarketPack        string           `json:"market_pack"`
	MarketPackVersion string           `json:"market_pack_version"`
	ChecksPerformed   []string         `json:"checks_performed"`
}

// NewDecision aggregates findings into a decision. Violations are kept in
// checker order and never deduplicated; fixes are deduplicated by code since
// several violations may share one remediation.
func NewDecision(pack PackRef, checksPerformed []string, findings Findings) Decision {
	violations := make([]Violation, 0, len(findings.Violations))
	violations = append(violations, findings.Violations...)

	fixes := dedupe.By(findings.Fixes, func(f RecommendedFix) Code { return f.Code })

	checks := make([]string, 0, len(checksPerformed))
	checks = append(checks, checksPerformed...)

	return Decision{
		Passed:            !MaxSeverity(violations).Blocks(),
		Violations:        violations,
		RecommendedFixes:  fixes,
		PolicyVersion:     PolicyVersion,
		MarketPack:        pack.ID,
		MarketPackVersion: pack.Version,
		ChecksPerformed:   checks,
	}
}

// HasSeverity reports whether any violation has exactly severity s.
func (d Decision) HasSeverity(s Severity) bool {
	for _, v := range d.Violations {
		if v.Severity == s {
			return true
		}
	}
	return false
}

// ViolationsWithCode returns the violations carrying code, in order.
func (d Decision) ViolationsWithCode(code Code) []Violation {
	var out []Violation
	for _, v := range d.Violations {
		if v.Code == code {
			out = append(out, v)
		}
	}
	return out
}

// GateResult is what a gate returns to its caller.
//
// Invariant: Allowed == Decision.Passed, and BlockedReason is set iff
// !Allowed.
type GateResult struct {
	Allowed       bool     `json:"allowed"`
	Decision      Decision `json:"decision"`
	BlockedReason string   `json:"blocked_reason,omitempty"`
}

// NewGateResult applies the fail-closed policy to a decision.
func NewGateResult(decision Decision) GateResult {
	result := GateResult{
		Allowed:  decision.Passed,
		Decision: decision,
	}
	if !result.Allowed {
		result.BlockedReason = BlockedReason(decision.Violations)
	}
	return result
}

// BlockedReason summarizes the highest-severity violations, joined in the
// order the checkers reported them.
func BlockedReason(violations []Violation) string {
	max := MaxSeverity(violations)
	if !max.Blocks() {
		return ""
	}
	var msgs []string
	for _, v := range violations {
		if v.Severity == max {
			msgs = append(msgs, v.Message)
		}
	}
	return strings.Join(msgs, "; ")
}
