package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches and external data
// sources return these (optionally wrapped) so services can translate them
// into domain errors or fallback decisions.
//
// They describe the state of a resource, not a validation failure:
// - ErrNotFound: record does not exist in the store or cache
// - ErrConflict: record already exists with a different payload
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
