package marketpack

import (
	"fmt"
	"sort"

	id "marketgate/pkg/domain"
	dErrors "marketgate/pkg/domain-errors"
)

// DefaultMarketID names the conservative pack applied to jurisdictions
// without their own pack.
const DefaultMarketID id.MarketID = "us_standard"

// Registry maps jurisdictions to packs. It is immutable after construction
// and safe for concurrent use.
type Registry struct {
	packs     map[id.MarketID]Pack
	defaultID id.MarketID
}

// NewRegistry builds a registry from packs. One of them must carry
// defaultID. Each jurisdiction may appear once.
func NewRegistry(defaultID id.MarketID, packs ...Pack) (*Registry, error) {
	r := &Registry{
		packs:     make(map[id.MarketID]Pack, len(packs)),
		defaultID: defaultID,
	}
	for _, p := range packs {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.packs[p.ID]; dup {
			return nil, dErrors.New(dErrors.CodeConflict, "market pack registered twice: "+string(p.ID))
		}
		r.packs[p.ID] = p.clone()
	}
	if _, ok := r.packs[defaultID]; !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "default market pack missing: "+string(defaultID))
	}
	return r, nil
}

// NewBuiltinRegistry returns a registry over the compiled-in packs.
func NewBuiltinRegistry() (*Registry, error) {
	packs, err := Builtin()
	if err != nil {
		return nil, err
	}
	return NewRegistry(DefaultMarketID, packs...)
}

// WithOverrides returns a new registry in which each override replaces the
// pack for its jurisdiction, or adds a jurisdiction. A replacement must carry
// a strictly higher version: regulation versions only move forward.
func (r *Registry) WithOverrides(overrides ...Pack) (*Registry, error) {
	next := make([]Pack, 0, len(r.packs)+len(overrides))
	merged := make(map[id.MarketID]Pack, len(r.packs))
	for k, p := range r.packs {
		merged[k] = p
	}
	for _, o := range overrides {
		if current, ok := merged[o.ID]; ok && CompareVersions(o.Version, current.Version) <= 0 {
			return nil, dErrors.New(dErrors.CodeConflict, fmt.Sprintf(
				"market pack %s version %s does not supersede %s", o.ID, o.Version, current.Version))
		}
		merged[o.ID] = o
	}
	for _, p := range merged {
		next = append(next, p)
	}
	return NewRegistry(r.defaultID, next...)
}

// Resolve returns the pack for marketID, or the default pack when the
// jurisdiction has none. It never returns an empty pack.
func (r *Registry) Resolve(marketID id.MarketID) Pack {
	p, _ := r.Lookup(marketID)
	return p
}

// Lookup is Resolve that also reports whether marketID had its own pack.
func (r *Registry) Lookup(marketID id.MarketID) (Pack, bool) {
	if p, ok := r.packs[marketID]; ok {
		return p.clone(), true
	}
	return r.packs[r.defaultID].clone(), false
}

// Default returns the conservative default pack.
func (r *Registry) Default() Pack {
	return r.packs[r.defaultID].clone()
}

// Markets lists the jurisdictions with their own pack, sorted.
func (r *Registry) Markets() []id.MarketID {
	out := make([]id.MarketID, 0, len(r.packs))
	for k := range r.packs {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
