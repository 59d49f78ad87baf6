// Package adapters holds in-process implementations of the collaborators the
// parameter resolver and refund validator depend on.
package adapters

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	cmodels "refunds/internal/compliance/models"
	pmodels "refunds/internal/parameter/models"
	"refunds/pkg/platform/sentinel"
)

// Merchant is one entry in the directory.
type Merchant struct {
	ID       string
	Ancestry pmodels.Ancestry
	// Balances are keyed by upper-case ISO currency.
	Balances         map[string]decimal.Decimal
	Accounts         []cmodels.BankAccount
	DefaultAccountID string
}

// MerchantDirectory is an in-memory merchant registry. It serves hierarchy
// lookups for parameter resolution, balances and payout accounts.
type MerchantDirectory struct {
	mu        sync.RWMutex
	merchants map[string]*Merchant
}

func NewMerchantDirectory() *MerchantDirectory {
	return &MerchantDirectory{merchants: make(map[string]*Merchant)}
}

// Put adds or replaces a merchant.
func (d *MerchantDirectory) Put(m Merchant) error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("merchant id is required")
	}
	balances := make(map[string]decimal.Decimal, len(m.Balances))
	for currency, amount := range m.Balances {
		balances[strings.ToUpper(currency)] = amount
	}
	m.Balances = balances
	if m.DefaultAccountID == "" && len(m.Accounts) > 0 {
		m.DefaultAccountID = m.Accounts[0].ID
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.merchants[m.ID] = &m
	return nil
}

func (d *MerchantDirectory) get(merchantID string) (*Merchant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.merchants[merchantID]
	if !ok {
		return nil, fmt.Errorf("merchant %s: %w", merchantID, sentinel.ErrNotFound)
	}
	return m, nil
}

// GetAncestry implements the parameter resolver's merchant directory.
func (d *MerchantDirectory) GetAncestry(_ context.Context, merchantID string) (pmodels.Ancestry, error) {
	m, err := d.get(merchantID)
	if err != nil {
		return pmodels.Ancestry{}, err
	}
	return m.Ancestry, nil
}

// HasSufficientBalance reports whether the merchant holds at least amount in currency.
func (d *MerchantDirectory) HasSufficientBalance(_ context.Context, merchantID string, amount decimal.Decimal, currency string) (bool, error) {
	m, err := d.get(merchantID)
	if err != nil {
		return false, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	balance, ok := m.Balances[strings.ToUpper(currency)]
	if !ok {
		return false, nil
	}
	return balance.GreaterThanOrEqual(amount), nil
}

// GetDefaultAccount returns nil, nil for unknown merchants and merchants without accounts.
func (d *MerchantDirectory) GetDefaultAccount(_ context.Context, merchantID string) (*cmodels.BankAccount, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.merchants[merchantID]
	if !ok {
		return nil, nil
	}
	return findAccount(m, m.DefaultAccountID), nil
}

// FindAccount returns nil, nil when the merchant has no account with that id.
func (d *MerchantDirectory) FindAccount(_ context.Context, merchantID, accountID string) (*cmodels.BankAccount, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.merchants[merchantID]
	if !ok {
		return nil, nil
	}
	return findAccount(m, accountID), nil
}

func findAccount(m *Merchant, accountID string) *cmodels.BankAccount {
	if accountID == "" {
		return nil
	}
	for _, a := range m.Accounts {
		if a.ID == accountID {
			account := a
			return &account
		}
	}
	return nil
}
