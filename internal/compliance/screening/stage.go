// Package screening defines the ordered tenant-screening stages and the
// legality of moving an application between them.
package screening

import (
	"encoding/json"
	"slices"

	dErrors "marketgate/pkg/domain-errors"
)

// Stage is a step in the tenant-screening process. Stages are totally
// ordered; see Ordinal.
type Stage string

const (
	StageInitialInquiry       Stage = "initial_inquiry"
	StageApplicationSubmitted Stage = "application_submitted"
	StageApplicationReview    Stage = "application_review"
	StageConditionalOffer     Stage = "conditional_offer"
	StageBackgroundCheck      Stage = "background_check"
	StageFinalApproval        Stage = "final_approval"
	StageLeaseSigning         Stage = "lease_signing"
)

// stages is the single source of truth for stage order.
var stages = []Stage{
	StageInitialInquiry,
	StageApplicationSubmitted,
	StageApplicationReview,
	StageConditionalOffer,
	StageBackgroundCheck,
	StageFinalApproval,
	StageLeaseSigning,
}

// Stages returns the stages in order.
func Stages() []Stage {
	return slices.Clone(stages)
}

// ParseStage constructs a Stage from external input.
//
// Errors: returns CodeValidation when the value is empty or unknown.
func ParseStage(s string) (Stage, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "screening stage is required")
	}
	st := Stage(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown screening stage: "+s)
	}
	return st, nil
}

// IsValid reports whether s is one of the defined stages.
func (s Stage) IsValid() bool {
	return slices.Contains(stages, s)
}

// Ordinal returns the zero-based position of s, or -1 when s is unknown.
func (s Stage) Ordinal() int {
	return slices.Index(stages, s)
}

// AtLeast reports whether s is at or after other.
func (s Stage) AtLeast(other Stage) bool {
	return s.Ordinal() >= other.Ordinal()
}

func (s Stage) String() string { return string(s) }

func (s *Stage) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseStage(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
