// Package cpi supplies the annual cost-of-living change that caps rent
// increases, and degrades to documented fallbacks when the live feed is slow
// or unavailable.
package cpi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Source records where a reading came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceCache    Source = "cache"
	SourceStatic   Source = "static"
	SourceFallback Source = "pack_fallback"
)

// Reading is one CPI observation. Value is the annual change in percent.
type Reading struct {
	Value  float64   `json:"value"`
	Source Source    `json:"source"`
	AsOf   time.Time `json:"as_of"`
	// Fallback is set when the value did not come from the live feed.
	Fallback bool   `json:"fallback"`
	Reason   string `json:"reason,omitempty"`
}

// Provider returns the CPI reading applicable on asOf.
type Provider interface {
	CurrentIndex(ctx context.Context, asOf time.Time) (Reading, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, asOf time.Time) (Reading, error)

func (f ProviderFunc) CurrentIndex(ctx context.Context, asOf time.Time) (Reading, error) {
	return f(ctx, asOf)
}

// maxPlausiblePercent bounds what a feed may report before the value is
// treated as bad data.
const maxPlausiblePercent = 100

func (r Reading) validate() error {
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return errors.New("cpi value is not finite")
	}
	if math.Abs(r.Value) > maxPlausiblePercent {
		return fmt.Errorf("cpi value %.2f%% is implausible", r.Value)
	}
	return nil
}

// Month truncates asOf to the calendar month CPI is published for.
func Month(asOf time.Time) string {
	return asOf.UTC().Format("2006-01")
}

// ErrorCategory is the normalized failure taxonomy of CPI sources.
type ErrorCategory string

const (
	ErrorTimeout     ErrorCategory = "timeout"
	ErrorOutage      ErrorCategory = "outage"
	ErrorBadData     ErrorCategory = "bad_data"
	ErrorCircuitOpen ErrorCategory = "circuit_open"
	ErrorNoProvider  ErrorCategory = "no_provider"
	ErrorInternal    ErrorCategory = "internal"
)

// SourceError wraps a CPI source failure with its category.
type SourceError struct {
	Category   ErrorCategory
	SourceID   string
	Message    string
	Underlying error
}

func (e *SourceError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("cpi source %s [%s]: %s: %v", e.SourceID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("cpi source %s [%s]: %s", e.SourceID, e.Category, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Underlying
}

// NewSourceError creates a categorized source error.
func NewSourceError(category ErrorCategory, sourceID, message string, underlying error) *SourceError {
	return &SourceError{
		Category:   category,
		SourceID:   sourceID,
		Message:    message,
		Underlying: underlying,
	}
}

// GetCategory extracts the category from err. Deadline and cancellation
// errors without a category count as timeouts.
func GetCategory(err error) ErrorCategory {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Category
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorTimeout
	}
	return ErrorInternal
}
