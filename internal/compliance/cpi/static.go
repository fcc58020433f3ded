package cpi

import (
	"context"
	"time"
)

// StaticSource returns a configured value. It stands in for the live feed in
// deployments without one, and every reading it returns is marked as a
// fallback so decisions record that no live data was used.
type StaticSource struct {
	Percent float64
}

func (s StaticSource) CurrentIndex(_ context.Context, asOf time.Time) (Reading, error) {
	return Reading{
		Value:    s.Percent,
		Source:   SourceStatic,
		AsOf:     asOf.UTC(),
		Fallback: true,
		Reason:   "static_source",
	}, nil
}
