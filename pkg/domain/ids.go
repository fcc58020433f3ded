package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "marketgate/pkg/domain-errors"
)

// MarketID identifies a jurisdiction whose rules a market pack encodes.
// Values are lower-case slugs such as "nyc" or "us_standard".
//
// Usage: construct via ParseMarketID at trust boundaries; the registry
// resolves any MarketID, including unknown ones, to a pack.
type MarketID string

// EntityID identifies the listing, lease or application a gate decision is
// about. The engine never interprets it; callers use it to file decisions.
type EntityID string

// ActorID identifies who requested a gated transition.
type ActorID string

// DecisionID identifies a persisted compliance decision record.
type DecisionID uuid.UUID

const maxIDLength = 128

// ParseMarketID normalizes and validates a market identifier.
//
// Errors: returns CodeInvalidInput when the value is empty, not UTF-8, too
// long, or contains characters outside [a-z0-9_-].
func ParseMarketID(s string) (MarketID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if err := validateSlug("market id", s); err != nil {
		return "", err
	}
	return MarketID(s), nil
}

func (m MarketID) String() string { return string(m) }

// ParseEntityID validates an opaque entity identifier.
func ParseEntityID(s string) (EntityID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "entity id cannot be empty")
	}
	if !utf8.ValidString(s) || len(s) > maxIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "entity id is malformed")
	}
	return EntityID(s), nil
}

func (e EntityID) String() string { return string(e) }

func (a ActorID) String() string { return string(a) }

// NewDecisionID returns a fresh random decision identifier.
func NewDecisionID() DecisionID {
	return DecisionID(uuid.New())
}

// ParseDecisionID parses a decision identifier from its UUID form.
func ParseDecisionID(s string) (DecisionID, error) {
	if s == "" {
		return DecisionID{}, dErrors.New(dErrors.CodeInvalidInput, "decision id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return DecisionID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid decision id")
	}
	if u == uuid.Nil {
		return DecisionID{}, dErrors.New(dErrors.CodeInvalidInput, "decision id cannot be nil")
	}
	return DecisionID(u), nil
}

func (d DecisionID) String() string { return uuid.UUID(d).String() }

func (d DecisionID) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *DecisionID) UnmarshalText(text []byte) error {
	parsed, err := ParseDecisionID(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsNil reports whether the identifier is the zero UUID.
func (d DecisionID) IsNil() bool { return uuid.UUID(d) == uuid.Nil }

func validateSlug(field, s string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeInvalidInput, field+" cannot be empty")
	}
	if !utf8.ValidString(s) || len(s) > maxIDLength {
		return dErrors.New(dErrors.CodeInvalidInput, field+" is malformed")
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return dErrors.New(dErrors.CodeInvalidInput, field+" contains invalid characters")
		}
	}
	return nil
}
