package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"marketgate/internal/compliance/checks"
	id "marketgate/pkg/domain"
	dErrors "marketgate/pkg/domain-errors"
)

// GateRequest is the body of POST /compliance/gates/{gate}. Snapshot is
// decoded against the gate's input type once the gate is known.
type GateRequest struct {
	EntityID string          `json:"entity_id"`
	MarketID string          `json:"market_id"`
	Snapshot json.RawMessage `json:"snapshot"`

	entityID id.EntityID
	marketID id.MarketID
}

func (r *GateRequest) Validate() error {
	entityID, err := id.ParseEntityID(r.EntityID)
	if err != nil {
		return err
	}
	marketID, err := id.ParseMarketID(r.MarketID)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(r.Snapshot)) == 0 || bytes.Equal(bytes.TrimSpace(r.Snapshot), []byte("null")) {
		return dErrors.New(dErrors.CodeValidation, "snapshot is required")
	}
	r.entityID = entityID
	r.marketID = marketID
	return nil
}

// CheckInput is one entry of a dry run.
type CheckInput struct {
	CheckType string          `json:"check_type"`
	Input     json.RawMessage `json:"input"`
}

// DryRunRequest is the body of POST /compliance/checks.
type DryRunRequest struct {
	MarketID string       `json:"market_id"`
	Checks   []CheckInput `json:"checks"`

	marketID id.MarketID
	checks   []checks.Check
}

func (r *DryRunRequest) Validate() error {
	marketID, err := id.ParseMarketID(r.MarketID)
	if err != nil {
		return err
	}
	if len(r.Checks) == 0 {
		return dErrors.New(dErrors.CodeValidation, "checks must contain at least one check")
	}
	decoded := make([]checks.Check, 0, len(r.Checks))
	for i, c := range r.Checks {
		check, err := checks.Decode(strings.TrimSpace(c.CheckType), c.Input)
		if err != nil {
			return dErrors.Wrap(err, dErrors.GetCode(err), fmt.Sprintf("checks[%d]: %s", i, dErrors.MessageOf(err)))
		}
		decoded = append(decoded, check)
	}
	r.marketID = marketID
	r.checks = decoded
	return nil
}

func decodeSnapshot[T any](raw json.RawMessage) (T, error) {
	var v T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, dErrors.Wrap(err, dErrors.CodeValidation, "invalid snapshot for gate")
	}
	return v, nil
}
