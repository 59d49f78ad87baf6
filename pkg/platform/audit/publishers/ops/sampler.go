package ops

import (
	"math/rand/v2"
	"sync"

	audit "refunds/pkg/platform/audit"
)

// Sampler keeps a fraction of events per action. Rates are clamped to [0, 1].
type Sampler struct {
	mu           sync.RWMutex
	defaultRate  float64
	rateByAction map[audit.AuditEvent]float64
	random       func() float64
}

func NewSampler(defaultRate float64) *Sampler {
	return &Sampler{
		defaultRate:  clamp(defaultRate),
		rateByAction: make(map[audit.AuditEvent]float64),
		random:       rand.Float64,
	}
}

// Keep reports whether an event for action should be forwarded.
func (s *Sampler) Keep(action audit.AuditEvent) bool {
	rate := s.rateFor(action)
	switch rate {
	case 0:
		return false
	case 1:
		return true
	}
	return s.random() < rate
}

// SetRate overrides the default for one action.
func (s *Sampler) SetRate(action audit.AuditEvent, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateByAction[action] = clamp(rate)
}

func (s *Sampler) rateFor(action audit.AuditEvent) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rate, ok := s.rateByAction[action]; ok {
		return rate
	}
	return s.defaultRate
}

func clamp(rate float64) float64 {
	return min(max(rate, 0), 1)
}
