// Package compliance defines the decision model shared by the market pack
// registry, the rule checkers and the gates: severities, violations,
// recommended fixes, and the aggregate decision a gate returns.
package compliance

import (
	"encoding/json"
	"fmt"

	dErrors "marketgate/pkg/domain-errors"
)

// Severity ranks a finding. The order is total: info < warning < violation < critical.
type Severity int

const (
	SeverityInfo Severity = iota + 1
	SeverityWarning
	SeverityViolation
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityInfo:      "info",
	SeverityWarning:   "warning",
	SeverityViolation: "violation",
	SeverityCritical:  "critical",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// IsValid reports whether s is one of the four defined levels.
func (s Severity) IsValid() bool {
	_, ok := severityNames[s]
	return ok
}

// Blocks reports whether a finding of this severity fails the decision.
// Critical findings cannot be undone after the transition; violation-level
// findings are remediable before it. Both block.
func (s Severity) Blocks() bool {
	return s >= SeverityViolation
}

// ParseSeverity parses the wire name of a severity.
func ParseSeverity(v string) (Severity, error) {
	for s, name := range severityNames {
		if name == v {
			return s, nil
		}
	}
	return 0, dErrors.New(dErrors.CodeInvalidInput, "unknown severity: "+v)
}

func (s Severity) MarshalJSON() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("cannot marshal %s", s)
	}
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseSeverity(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Code identifies a rule finding. Codes are stable across releases because
// persisted decisions and audit rows reference them.
type Code string

// Violation is one rule finding.
type Violation struct {
	Code     Code     `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Evidence Evidence `json:"evidence,omitempty"`
}

// RecommendedFix is a human-actionable remediation for one or more violations.
type RecommendedFix struct {
	Code        Code   `json:"code"`
	Description string `json:"description"`
}

// Findings is what a single checker returns.
type Findings struct {
	Violations []Violation
	Fixes      []RecommendedFix
}

// Add appends a violation and, when fix is non-nil, its remediation.
func (f *Findings) Add(v Violation, fix *RecommendedFix) {
	f.Violations = append(f.Violations, v)
	if fix != nil {
		f.Fixes = append(f.Fixes, *fix)
	}
}

// Merge appends other's findings after f's.
func (f *Findings) Merge(other Findings) {
	f.Violations = append(f.Violations, other.Violations...)
	f.Fixes = append(f.Fixes, other.Fixes...)
}

// MaxSeverity returns the highest severity present, or zero when there are
// no violations.
func MaxSeverity(violations []Violation) Severity {
	var max Severity
	for _, v := range violations {
		if v.Severity > max {
			max = v.Severity
		}
	}
	return max
}
