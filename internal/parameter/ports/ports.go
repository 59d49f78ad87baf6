//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// Package ports defines the collaborators the parameter resolver consumes.
package ports

import (
	"context"
	"time"

	"refunds/internal/parameter/models"
)

// Store reads immutable parameter versions.
type Store interface {
	// FindActiveParameter returns the greatest version of (name, entityType, entityID)
	// whose [EffectiveDate, ExpirationDate) contains asOf.
	// Returns nil, nil when no version is active.
	FindActiveParameter(ctx context.Context, name string, entityType models.EntityType, entityID string, asOf time.Time) (*models.Parameter, error)
}

// MerchantDirectory resolves a merchant's place in the hierarchy.
type MerchantDirectory interface {
	// GetAncestry returns sentinel.ErrNotFound (wrapped) for unknown merchants.
	GetAncestry(ctx context.Context, merchantID string) (models.Ancestry, error)
}
