package ops

import (
	"math/rand/v2"
	"sync"
)

// Sampler decides which ops events are kept. Rates range from 0 (keep
// nothing) to 1 (keep everything) and can be overridden per action, e.g. to
// thin out market_pack_viewed while keeping every decision lookup.
type Sampler struct {
	mu           sync.RWMutex
	defaultRate  float64
	rateByAction map[string]float64
	draw         func() float64
}

// NewSampler creates a sampler with the given default rate.
func NewSampler(defaultRate float64) *Sampler {
	return &Sampler{
		defaultRate:  clampRate(defaultRate),
		rateByAction: make(map[string]float64),
		draw:         rand.Float64,
	}
}

// ShouldSample reports whether an event for action should be kept.
func (s *Sampler) ShouldSample(action string) bool {
	rate := s.rateFor(action)
	switch rate {
	case 0:
		return false
	case 1:
		return true
	}
	return s.draw() < rate
}

// SetRate overrides the rate for one action.
func (s *Sampler) SetRate(action string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateByAction[action] = clampRate(rate)
}

func (s *Sampler) rateFor(action string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rate, ok := s.rateByAction[action]; ok {
		return rate
	}
	return s.defaultRate
}

func clampRate(rate float64) float64 {
	return max(0, min(1, rate))
}
