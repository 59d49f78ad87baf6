package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"refunds/internal/parameter/models"
)

type key struct {
	name       string
	entityType models.EntityType
	entityID   string
}

// InMemoryStore keeps every version of every parameter. Versions are
// append-only; nothing is mutated after insertion.
type InMemoryStore struct {
	mu       sync.RWMutex
	versions map[key][]*models.Parameter
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{versions: make(map[key][]*models.Parameter)}
}

func keyOf(name string, entityType models.EntityType, entityID string) key {
	if entityType == models.EntitySystem {
		entityID = ""
	}
	return key{name: name, entityType: entityType, entityID: entityID}
}

// Insert stores p as a new version. A zero Version is assigned the next number;
// an explicit Version must be greater than every existing one.
func (s *InMemoryStore) Insert(_ context.Context, p *models.Parameter) error {
	if err := validateForInsert(p); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := keyOf(p.Name, p.EntityType, p.EntityID)
	existing := s.versions[k]
	latest := 0
	if n := len(existing); n > 0 {
		latest = existing[n-1].Version
	}
	cp := *p
	if cp.EntityType == models.EntitySystem {
		cp.EntityID = ""
	}
	if cp.Version == 0 {
		cp.Version = latest + 1
	}
	if cp.Version <= latest {
		return fmt.Errorf("parameter %s version %d is not greater than %d", p.Name, cp.Version, latest)
	}
	s.versions[k] = append(existing, &cp)
	p.Version = cp.Version
	return nil
}

func (s *InMemoryStore) FindActiveParameter(_ context.Context, name string, entityType models.EntityType, entityID string, asOf time.Time) (*models.Parameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.versions[keyOf(name, entityType, entityID)]
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].ActiveAt(asOf) {
			cp := *versions[i]
			return &cp, nil
		}
	}
	return nil, nil
}

// ListVersions returns every version of one scoped parameter, oldest first.
func (s *InMemoryStore) ListVersions(_ context.Context, name string, entityType models.EntityType, entityID string) ([]*models.Parameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.versions[keyOf(name, entityType, entityID)]
	out := make([]*models.Parameter, 0, len(versions))
	for _, v := range versions {
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

func validateForInsert(p *models.Parameter) error {
	if p == nil {
		return fmt.Errorf("parameter is required")
	}
	if p.Name == "" {
		return fmt.Errorf("parameter name is required")
	}
	if !p.EntityType.IsValid() {
		return fmt.Errorf("unknown entity type %q", p.EntityType)
	}
	if p.EntityType != models.EntitySystem && p.EntityID == "" {
		return fmt.Errorf("entity id is required for %s", p.EntityType)
	}
	if p.ExpirationDate != nil && !p.ExpirationDate.After(p.EffectiveDate) {
		return fmt.Errorf("expiration must be after effective date")
	}
	return nil
}
