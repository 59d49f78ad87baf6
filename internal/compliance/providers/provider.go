// Package providers supplies the compliance rules that apply to a refund.
// Providers only retrieve rules; they never evaluate them.
package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"refunds/internal/compliance/models"
	"refunds/internal/compliance/ports"
)

// Provider fetches the superset of rules one source contributes to an evaluation.
type Provider interface {
	Type() models.ProviderType
	FetchApplicableRules(ctx context.Context, c *models.Context, asOf time.Time) ([]*models.Rule, error)
}

// scopeFunc maps an evaluation context to the stored scope to query.
// ok is false when the provider has nothing to contribute for c.
type scopeFunc func(c *models.Context) (entityType models.EntityType, entityID string, ok bool)

// StoreProvider reads one provider's rules from a RuleStore.
type StoreProvider struct {
	providerType models.ProviderType
	store        ports.RuleStore
	scope        scopeFunc
}

// NewCardNetwork serves rules for the transaction's card network, such as VISA.
func NewCardNetwork(store ports.RuleStore) *StoreProvider {
	return &StoreProvider{
		providerType: models.ProviderCardNetwork,
		store:        store,
		scope: func(c *models.Context) (models.EntityType, string, bool) {
			network := strings.ToUpper(strings.TrimSpace(c.Transaction.CardNetwork))
			return models.EntityCardNetwork, network, network != ""
		},
	}
}

// NewRegulatory serves the global regulatory rules.
func NewRegulatory(store ports.RuleStore) *StoreProvider {
	return &StoreProvider{
		providerType: models.ProviderRegulatory,
		store:        store,
		scope: func(*models.Context) (models.EntityType, string, bool) {
			return models.EntityRegulatory, models.GlobalScope, true
		},
	}
}

// NewMerchant serves rules a merchant has configured for itself.
func NewMerchant(store ports.RuleStore) *StoreProvider {
	return &StoreProvider{
		providerType: models.ProviderMerchant,
		store:        store,
		scope: func(c *models.Context) (models.EntityType, string, bool) {
			return models.EntityMerchant, c.MerchantID, c.MerchantID != ""
		},
	}
}

func (p *StoreProvider) Type() models.ProviderType {
	return p.providerType
}

func (p *StoreProvider) FetchApplicableRules(ctx context.Context, c *models.Context, asOf time.Time) ([]*models.Rule, error) {
	entityType, entityID, ok := p.scope(c)
	if !ok {
		return nil, nil
	}
	rules, err := p.store.FindActiveRules(ctx, p.providerType, entityType, entityID, asOf)
	if err != nil {
		return nil, Classify(p.providerType, fmt.Errorf("find %s rules for %s: %w", entityType, entityID, err))
	}

	applicable := make([]*models.Rule, 0, len(rules))
	for _, r := range rules {
		if r == nil || !r.ApplicableAt(asOf) {
			continue
		}
		applicable = append(applicable, r)
	}
	return applicable, nil
}
