package cpi

import (
	"context"
	"time"
)

// MaxWait is the longest Resolve waits on a provider, whatever the provider
// does with its context.
const MaxWait = 5 * time.Second

// Resolution is the CPI figure a rent-increase evaluation uses. It is never
// empty: when no usable reading exists the fallback percent is applied.
type Resolution struct {
	Percent  float64
	Source   Source
	AsOf     time.Time
	Fallback bool
	Reason   string
}

// Resolve asks provider for the reading on asOf. On error, timeout, an
// implausible value, or a nil provider it returns fallbackPercent with
// Source SourceFallback and the reason. A reading the provider itself marks
// as a fallback is used as-is with Fallback set.
func Resolve(ctx context.Context, provider Provider, asOf time.Time, fallbackPercent float64) Resolution {
	fallback := func(reason ErrorCategory) Resolution {
		return Resolution{
			Percent:  fallbackPercent,
			Source:   SourceFallback,
			AsOf:     asOf.UTC(),
			Fallback: true,
			Reason:   string(reason),
		}
	}
	if provider == nil {
		return fallback(ErrorNoProvider)
	}

	ctx, cancel := context.WithTimeout(ctx, MaxWait)
	defer cancel()

	type result struct {
		reading Reading
		err     error
	}
	done := make(chan result, 1)
	go func() {
		r, err := provider.CurrentIndex(ctx, asOf)
		done <- result{reading: r, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		return fallback(ErrorTimeout)
	}

	if res.err != nil {
		return fallback(GetCategory(res.err))
	}
	if err := res.reading.validate(); err != nil {
		return fallback(ErrorBadData)
	}

	r := res.reading
	out := Resolution{
		Percent: r.Value,
		Source:  r.Source,
		AsOf:    r.AsOf,
	}
	if out.Source == "" {
		out.Source = SourceLive
	}
	if out.AsOf.IsZero() {
		out.AsOf = asOf.UTC()
	}
	if r.Fallback {
		out.Fallback = true
		out.Reason = r.Reason
		if out.Reason == "" {
			out.Reason = "provider_fallback"
		}
	}
	return out
}
