//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// Package ports defines the collaborators compliance evaluation consumes.
package ports

import (
	"context"
	"time"

	"refunds/internal/compliance/models"
)

// RuleStore reads compliance rules.
type RuleStore interface {
	// FindActiveRules returns the rules stored for one provider scope whose
	// current version is active and in effect at asOf, ordered by rule id.
	FindActiveRules(ctx context.Context, providerType models.ProviderType, entityType models.EntityType, entityID string, asOf time.Time) ([]*models.Rule, error)
}
