package checks

import (
	"fmt"

	"marketgate/internal/compliance"
	"marketgate/internal/compliance/marketpack"
	"marketgate/internal/compliance/screening"
)

// CheckScreeningOrder flags each background check requested before the
// pack's earliest permitted stage, and never earlier than conditional_offer.
// Running such a check cannot be undone, so each is critical.
func CheckScreeningOrder(r ScreeningRequest, p marketpack.Pack) compliance.Findings {
	var out compliance.Findings
	earliest := p.EarliestScreeningStage
	if !earliest.AtLeast(screening.StageConditionalOffer) {
		earliest = screening.StageConditionalOffer
	}
	if r.CurrentStage.AtLeast(earliest) {
		return out
	}
	for _, c := range r.Checks {
		msg := fmt.Sprintf("%s check requested at %s; screening is not permitted before %s",
			c, r.CurrentStage, earliest)
		out.Add(compliance.Violation{
			Code:     CodePrematureScreening,
			Message:  msg,
			Severity: compliance.SeverityCritical,
			Evidence: compliance.Evidence{
				"check_type":     compliance.String(string(c)),
				"current_stage":  compliance.String(string(r.CurrentStage)),
				"earliest_stage": compliance.String(string(earliest)),
			},
		}, fix(FixDeferScreening, fmt.Sprintf("Extend a conditional offer and wait until %s before running background checks", earliest)))
	}
	return out
}

// CheckStageTransition enforces the screening stage order. Stalls and single
// forward steps pass. Moving backward is critical, as is any move that
// reaches background_check without the application having reached
// conditional_offer. Other forward skips are violations.
func CheckStageTransition(s StageChange) compliance.Findings {
	var out compliance.Findings
	t := s.transition()
	evidence := compliance.Evidence{
		"current_stage": compliance.String(string(t.From)),
		"target_stage":  compliance.String(string(t.To)),
	}

	switch t.Movement() {
	case screening.MovementStall, screening.MovementAdvance:
		return out

	case screening.MovementBackward:
		out.Add(compliance.Violation{
			Code:     CodeBackwardTransition,
			Message:  fmt.Sprintf("Application cannot move backward from %s to %s", t.From, t.To),
			Severity: compliance.SeverityCritical,
			Evidence: evidence,
		}, nil)

	case screening.MovementSkip:
		if t.BypassesGate(screening.StageConditionalOffer, screening.StageBackgroundCheck) {
			out.Add(compliance.Violation{
				Code:     CodeScreeningBypassed,
				Message:  fmt.Sprintf("Application cannot reach %s from %s without a conditional offer", t.To, t.From),
				Severity: compliance.SeverityCritical,
				Evidence: evidence,
			}, fix(FixIssueConditional, "Issue a conditional offer before any background, credit or eviction-history check"))
			return out
		}
		skipped := t.Skipped()
		names := make([]string, len(skipped))
		for i, st := range skipped {
			names[i] = string(st)
		}
		out.Add(compliance.Violation{
			Code:     CodeStageSkipped,
			Message:  fmt.Sprintf("Application cannot skip from %s to %s", t.From, t.To),
			Severity: compliance.SeverityViolation,
			Evidence: compliance.Evidence{
				"current_stage":  compliance.String(string(t.From)),
				"target_stage":   compliance.String(string(t.To)),
				"skipped_stages": compliance.Int(len(names)),
				"next_stage":     compliance.String(names[0]),
			},
		}, fix(FixAdvanceOneStage, "Advance the application one stage at a time"))
	}
	return out
}
