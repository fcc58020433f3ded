// Package gate evaluates the compliance gates guarding listing, lease and
// screening transitions. The engine resolves the market pack, runs the rule
// checkers a gate needs and aggregates their findings into a GateResult. It
// never persists anything; callers own what happens to the result.
package gate

import dErrors "marketgate/pkg/domain-errors"

// Gate names a guarded transition.
type Gate string

const (
	GateListingPublish      Gate = "listing_publish"
	GateLeaseCreation       Gate = "lease_creation"
	GateRentIncrease        Gate = "rent_increase"
	GateFCHAStageTransition Gate = "fcha_stage_transition"
	GateFCHABackgroundCheck Gate = "fcha_background_check"
)

// dryRun labels ad-hoc check runs in logs and metrics.
const dryRun = "dry_run"

var gates = []Gate{
	GateListingPublish,
	GateLeaseCreation,
	GateRentIncrease,
	GateFCHAStageTransition,
	GateFCHABackgroundCheck,
}

// Gates lists every gate.
func Gates() []Gate {
	return append([]Gate(nil), gates...)
}

// ParseGate parses a gate name from external input.
func ParseGate(v string) (Gate, error) {
	for _, g := range gates {
		if string(g) == v {
			return g, nil
		}
	}
	return "", dErrors.New(dErrors.CodeNotFound, "unknown gate: "+v)
}

func (g Gate) String() string { return string(g) }
