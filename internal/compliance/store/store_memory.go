// Package store persists compliance rules.
package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"refunds/internal/compliance/models"
)

// InMemoryStore keeps every version of every rule.
type InMemoryStore struct {
	mu    sync.RWMutex
	rules map[string][]*models.Rule // rule id -> versions, ascending
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rules: make(map[string][]*models.Rule)}
}

// Insert stores r as a new version of its rule id. A zero Version becomes the
// next number.
func (s *InMemoryStore) Insert(_ context.Context, r *models.Rule) error {
	if err := validateForInsert(r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.rules[r.RuleID]
	latest := 0
	if n := len(versions); n > 0 {
		latest = versions[n-1].Version
		if prev := versions[n-1]; prev.ProviderType != r.ProviderType || prev.EntityType != r.EntityType || prev.EntityID != r.EntityID {
			return fmt.Errorf("rule %s cannot change scope", r.RuleID)
		}
	}
	cp := *r
	if cp.Version == 0 {
		cp.Version = latest + 1
	}
	if cp.Version <= latest {
		return fmt.Errorf("rule %s version %d is not greater than %d", r.RuleID, cp.Version, latest)
	}
	s.rules[r.RuleID] = append(versions, &cp)
	r.Version = cp.Version
	return nil
}

func (s *InMemoryStore) FindActiveRules(_ context.Context, providerType models.ProviderType, entityType models.EntityType, entityID string, asOf time.Time) ([]*models.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Rule
	for _, versions := range s.rules {
		current := currentVersion(versions, asOf)
		if current == nil || !current.Active {
			continue
		}
		if current.ProviderType != providerType || current.EntityType != entityType || !strings.EqualFold(current.EntityID, entityID) {
			continue
		}
		cp := *current
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.Rule) int {
		return strings.Compare(a.RuleID, b.RuleID)
	})
	return out, nil
}

// ListAll returns the current version of every rule at asOf, active or not.
func (s *InMemoryStore) ListAll(_ context.Context, asOf time.Time) ([]*models.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Rule, 0, len(s.rules))
	for _, versions := range s.rules {
		if current := currentVersion(versions, asOf); current != nil {
			cp := *current
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Rule) int {
		return strings.Compare(a.RuleID, b.RuleID)
	})
	return out, nil
}

// currentVersion is the greatest version already in effect at asOf.
func currentVersion(versions []*models.Rule, asOf time.Time) *models.Rule {
	for i := len(versions) - 1; i >= 0; i-- {
		if !versions[i].EffectiveDate.After(asOf) {
			return versions[i]
		}
	}
	return nil
}

func validateForInsert(r *models.Rule) error {
	switch {
	case r == nil:
		return fmt.Errorf("rule is required")
	case r.RuleID == "":
		return fmt.Errorf("rule id is required")
	case !r.ProviderType.IsValid():
		return fmt.Errorf("rule %s: unknown provider type %q", r.RuleID, r.ProviderType)
	case r.EntityType == "":
		return fmt.Errorf("rule %s: entity type is required", r.RuleID)
	case r.EntityID == "":
		return fmt.Errorf("rule %s: entity id is required", r.RuleID)
	case r.ViolationCode == "":
		return fmt.Errorf("rule %s: violation code is required", r.RuleID)
	}
	return nil
}
