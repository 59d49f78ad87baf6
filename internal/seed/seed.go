// Package seed loads parameters, compliance rules and merchants from a YAML
// document into the configured stores.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"refunds/internal/compliance/evaluator"
	cmodels "refunds/internal/compliance/models"
	pmodels "refunds/internal/parameter/models"
	"refunds/internal/refund/adapters"
)

// ParameterWriter accepts new parameter versions.
type ParameterWriter interface {
	Insert(ctx context.Context, p *pmodels.Parameter) error
}

// RuleWriter accepts new rule versions.
type RuleWriter interface {
	Insert(ctx context.Context, r *cmodels.Rule) error
}

// MerchantWriter registers merchants.
type MerchantWriter interface {
	Put(m adapters.Merchant) error
}

// Document is the on-disk seed format.
type Document struct {
	Merchants  []MerchantDoc  `yaml:"merchants"`
	Parameters []ParameterDoc `yaml:"parameters"`
	Rules      []RuleDoc      `yaml:"rules"`
}

type MerchantDoc struct {
	ID               string            `yaml:"id"`
	OrganizationID   string            `yaml:"organization_id"`
	ProgramID        string            `yaml:"program_id"`
	BankID           string            `yaml:"bank_id"`
	Balances         map[string]string `yaml:"balances"`
	DefaultAccountID string            `yaml:"default_account_id"`
	Accounts         []struct {
		ID                 string `yaml:"id"`
		Status             string `yaml:"status"`
		VerificationStatus string `yaml:"verification_status"`
	} `yaml:"accounts"`
}

type ParameterDoc struct {
	Name        string     `yaml:"name"`
	Level       string     `yaml:"level"`
	EntityID    string     `yaml:"entity_id"`
	DataType    string     `yaml:"data_type"`
	Value       any        `yaml:"value"`
	Effective   time.Time  `yaml:"effective"`
	Expires     *time.Time `yaml:"expires"`
	Overridable *bool      `yaml:"overridable"`
	Description string     `yaml:"description"`
}

type RuleDoc struct {
	ID          string    `yaml:"id"`
	Type        string    `yaml:"type"`
	Provider    string    `yaml:"provider"`
	EntityType  string    `yaml:"entity_type"`
	EntityID    string    `yaml:"entity_id"`
	Evaluation  any       `yaml:"evaluation"`
	Condition   any       `yaml:"condition"`
	Code        string    `yaml:"code"`
	Message     string    `yaml:"message"`
	Severity    string    `yaml:"severity"`
	Remediation string    `yaml:"remediation"`
	Description string    `yaml:"description"`
	Effective   time.Time `yaml:"effective"`
	Active      *bool     `yaml:"active"`
}

// Stats counts what a load wrote.
type Stats struct {
	Merchants  int
	Parameters int
	Rules      int
}

// Loader writes a Document into stores. Any writer may be nil, in which case
// that section is skipped.
type Loader struct {
	Parameters ParameterWriter
	Rules      RuleWriter
	Merchants  MerchantWriter
	// CreatedBy is recorded on seeded parameters.
	CreatedBy string
}

// LoadFile reads and applies the seed document at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return l.Load(ctx, f)
}

// Load decodes a document from r and applies it. Loading stops at the first
// invalid entry; entries already written stay written.
func (l *Loader) Load(ctx context.Context, r io.Reader) (Stats, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return Stats{}, fmt.Errorf("decode seed document: %w", err)
	}
	return l.Apply(ctx, &doc)
}

func (l *Loader) Apply(ctx context.Context, doc *Document) (Stats, error) {
	var stats Stats
	if l.Merchants != nil {
		for i, md := range doc.Merchants {
			m, err := md.toModel()
			if err != nil {
				return stats, fmt.Errorf("merchants[%d]: %w", i, err)
			}
			if err := l.Merchants.Put(m); err != nil {
				return stats, fmt.Errorf("merchants[%d]: %w", i, err)
			}
			stats.Merchants++
		}
	}
	if l.Parameters != nil {
		for i, pd := range doc.Parameters {
			p, err := pd.toModel(l.CreatedBy)
			if err != nil {
				return stats, fmt.Errorf("parameters[%d] %s: %w", i, pd.Name, err)
			}
			if err := l.Parameters.Insert(ctx, p); err != nil {
				return stats, fmt.Errorf("parameters[%d] %s: %w", i, pd.Name, err)
			}
			stats.Parameters++
		}
	}
	if l.Rules != nil {
		for i, rd := range doc.Rules {
			r, err := rd.toModel()
			if err != nil {
				return stats, fmt.Errorf("rules[%d] %s: %w", i, rd.ID, err)
			}
			if err := l.Rules.Insert(ctx, r); err != nil {
				return stats, fmt.Errorf("rules[%d] %s: %w", i, rd.ID, err)
			}
			stats.Rules++
		}
	}
	return stats, nil
}

func (d MerchantDoc) toModel() (adapters.Merchant, error) {
	m := adapters.Merchant{
		ID: d.ID,
		Ancestry: pmodels.Ancestry{
			OrganizationID: d.OrganizationID,
			ProgramID:      d.ProgramID,
			BankID:         d.BankID,
		},
		Balances:         make(map[string]decimal.Decimal, len(d.Balances)),
		DefaultAccountID: d.DefaultAccountID,
	}
	for currency, raw := range d.Balances {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return m, fmt.Errorf("balance %s: %w", currency, err)
		}
		m.Balances[currency] = amount
	}
	for _, a := range d.Accounts {
		m.Accounts = append(m.Accounts, cmodels.BankAccount{
			ID:                 a.ID,
			Status:             strings.ToUpper(a.Status),
			VerificationStatus: strings.ToUpper(a.VerificationStatus),
		})
	}
	return m, nil
}

func (d ParameterDoc) toModel(createdBy string) (*pmodels.Parameter, error) {
	level, err := pmodels.ParseEntityType(strings.ToUpper(d.Level))
	if err != nil {
		return nil, err
	}
	dataType := pmodels.DataType(strings.ToUpper(d.DataType))
	raw, err := toJSON(d.Value)
	if err != nil {
		return nil, err
	}
	// Reject values that would only fail later, at resolution time.
	if _, err := pmodels.DecodeValue(dataType, raw); err != nil {
		return nil, err
	}
	overridable := true
	if d.Overridable != nil {
		overridable = *d.Overridable
	}
	return &pmodels.Parameter{
		Name:           d.Name,
		EntityType:     level,
		EntityID:       d.EntityID,
		DataType:       dataType,
		Value:          raw,
		EffectiveDate:  d.Effective.UTC(),
		ExpirationDate: utcPtr(d.Expires),
		Overridable:    overridable,
		Description:    d.Description,
		CreatedBy:      createdBy,
	}, nil
}

func (d RuleDoc) toModel() (*cmodels.Rule, error) {
	evaluation, err := toJSON(d.Evaluation)
	if err != nil {
		return nil, fmt.Errorf("evaluation: %w", err)
	}
	var condition json.RawMessage
	if d.Condition != nil {
		if condition, err = toJSON(d.Condition); err != nil {
			return nil, fmt.Errorf("condition: %w", err)
		}
	}
	ruleType := cmodels.RuleType(strings.ToUpper(d.Type))
	if _, err := evaluator.Parse(ruleType, evaluation); err != nil {
		return nil, err
	}
	entityType := cmodels.EntityType(strings.ToUpper(d.EntityType))
	entityID := d.EntityID
	if entityType == "" {
		entityType, entityID = defaultScope(cmodels.ProviderType(strings.ToUpper(d.Provider)), entityID)
	}
	active := true
	if d.Active != nil {
		active = *d.Active
	}
	return &cmodels.Rule{
		RuleID:           d.ID,
		RuleType:         ruleType,
		ProviderType:     cmodels.ProviderType(strings.ToUpper(d.Provider)),
		EntityType:       entityType,
		EntityID:         entityID,
		Evaluation:       evaluation,
		Condition:        condition,
		ViolationCode:    d.Code,
		ViolationMessage: d.Message,
		Severity:         cmodels.Severity(strings.ToUpper(d.Severity)),
		Remediation:      d.Remediation,
		Description:      d.Description,
		EffectiveDate:    d.Effective.UTC(),
		Active:           active,
	}, nil
}

// defaultScope fills the scope a provider queries when the document omits it.
func defaultScope(p cmodels.ProviderType, entityID string) (cmodels.EntityType, string) {
	switch p {
	case cmodels.ProviderRegulatory:
		if entityID == "" {
			entityID = cmodels.GlobalScope
		}
		return cmodels.EntityRegulatory, entityID
	case cmodels.ProviderMerchant:
		return cmodels.EntityMerchant, entityID
	}
	return cmodels.EntityCardNetwork, strings.ToUpper(entityID)
}

func toJSON(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, fmt.Errorf("value is required")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
