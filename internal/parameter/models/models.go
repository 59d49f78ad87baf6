package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntityType is a level of the organizational hierarchy a parameter can be scoped to.
type EntityType string

const (
	EntitySystem       EntityType = "SYSTEM"
	EntityBank         EntityType = "BANK"
	EntityOrganization EntityType = "ORGANIZATION"
	EntityProgram      EntityType = "PROGRAM"
	EntityMerchant     EntityType = "MERCHANT"
)

// Precedence lists levels from most to least specific.
var Precedence = []EntityType{
	EntityMerchant,
	EntityOrganization,
	EntityProgram,
	EntityBank,
	EntitySystem,
}

// IsValid reports whether t is a known level.
func (t EntityType) IsValid() bool {
	switch t {
	case EntitySystem, EntityBank, EntityOrganization, EntityProgram, EntityMerchant:
		return true
	}
	return false
}

// ParseEntityType validates a stored or user-supplied level name.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}

// Parameter is one immutable version of a named configuration value at one scope.
type Parameter struct {
	Name       string
	EntityType EntityType
	// EntityID is empty for SYSTEM.
	EntityID string
	DataType DataType
	// Value is the stored JSON payload. It is decoded against DataType at read time.
	Value          json.RawMessage
	Version        int
	EffectiveDate  time.Time
	ExpirationDate *time.Time
	Overridable    bool
	Description    string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ActiveAt reports whether t lies in [EffectiveDate, ExpirationDate).
func (p *Parameter) ActiveAt(t time.Time) bool {
	if t.Before(p.EffectiveDate) {
		return false
	}
	if p.ExpirationDate != nil && !t.Before(*p.ExpirationDate) {
		return false
	}
	return true
}

// Decode returns the typed value, or ErrMalformedValue if the payload does not
// match DataType.
func (p *Parameter) Decode() (Value, error) {
	return DecodeValue(p.DataType, p.Value)
}

// Ancestry is a merchant's position in the hierarchy, as reported by the
// merchant directory. Missing levels are empty.
type Ancestry struct {
	OrganizationID string
	ProgramID      string
	BankID         string
}

// Scope is the concrete entity chain a parameter is resolved against.
type Scope struct {
	MerchantID string
	Ancestry
}

// EntityID returns the id that identifies this scope at level t.
// SYSTEM always resolves; other levels return "" when unknown.
func (s Scope) EntityID(t EntityType) string {
	switch t {
	case EntityMerchant:
		return s.MerchantID
	case EntityOrganization:
		return s.OrganizationID
	case EntityProgram:
		return s.ProgramID
	case EntityBank:
		return s.BankID
	default:
		return ""
	}
}

// Resolution is the outcome of walking the hierarchy for one parameter.
type Resolution struct {
	Name  string
	Value Value
	// Parameter is the winning version.
	Parameter *Parameter
	// Level is where the winning value came from.
	Level EntityType
	// Locked is true when a non-overridable ancestor displaced a more specific value.
	Locked bool
	// Candidates are the active versions found at each level, most specific first.
	Candidates []*Parameter
	AsOf       time.Time
}
