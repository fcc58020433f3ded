package screening

// Movement classifies a requested stage change.
type Movement int

const (
	// MovementStall re-affirms the current stage; it is a no-op.
	MovementStall Movement = iota
	// MovementAdvance moves exactly one stage forward.
	MovementAdvance
	// MovementSkip moves more than one stage forward.
	MovementSkip
	// MovementBackward moves to an earlier stage.
	MovementBackward
)

func (m Movement) String() string {
	switch m {
	case MovementStall:
		return "stall"
	case MovementAdvance:
		return "advance"
	case MovementSkip:
		return "skip"
	case MovementBackward:
		return "backward"
	default:
		return "unknown"
	}
}

// Transition is a requested move between two valid stages.
type Transition struct {
	From Stage
	To   Stage
}

// Movement classifies the transition. Both stages must be valid.
func (t Transition) Movement() Movement {
	delta := t.To.Ordinal() - t.From.Ordinal()
	switch {
	case delta == 0:
		return MovementStall
	case delta == 1:
		return MovementAdvance
	case delta > 1:
		return MovementSkip
	default:
		return MovementBackward
	}
}

// Skipped returns the stages jumped over by a forward skip, in order.
func (t Transition) Skipped() []Stage {
	from, to := t.From.Ordinal(), t.To.Ordinal()
	if to-from <= 1 {
		return nil
	}
	return Stages()[from+1 : to]
}

// BypassesGate reports whether the transition reaches gate or later without
// the application having first reached prerequisite. This is the move the
// screening-order rules forbid: entering screening stages before an offer.
func (t Transition) BypassesGate(prerequisite, gate Stage) bool {
	return !t.From.AtLeast(prerequisite) && t.To.AtLeast(gate)
}
