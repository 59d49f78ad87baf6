// Package models holds compliance rules and the per-evaluation context and result.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ProviderType names the source responsible for surfacing a rule.
type ProviderType string

const (
	ProviderCardNetwork ProviderType = "CARD_NETWORK"
	ProviderRegulatory  ProviderType = "REGULATORY"
	ProviderMerchant    ProviderType = "MERCHANT"
)

// ProviderOrder is the order violations are reported in.
var ProviderOrder = []ProviderType{ProviderCardNetwork, ProviderRegulatory, ProviderMerchant}

// Rank returns the position of p in ProviderOrder; unknown providers sort last.
func (p ProviderType) Rank() int {
	for i, t := range ProviderOrder {
		if t == p {
			return i
		}
	}
	return len(ProviderOrder)
}

func (p ProviderType) IsValid() bool {
	return p.Rank() < len(ProviderOrder)
}

// EntityType is the kind of scope a rule is attached to.
type EntityType string

const (
	EntityCardNetwork EntityType = "CARD_NETWORK"
	EntityRegulatory  EntityType = "REGULATORY"
	EntityMerchant    EntityType = "MERCHANT"
)

// GlobalScope is the entity id regulatory rules are stored under.
const GlobalScope = "global"

type RuleType string

const (
	RuleTimeframe     RuleType = "TIMEFRAME"
	RuleAmount        RuleType = "AMOUNT"
	RuleMethod        RuleType = "METHOD"
	RuleDocumentation RuleType = "DOCUMENTATION"
)

type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

func (s Severity) IsValid() bool {
	return s == SeverityError || s == SeverityWarning
}

// Rule is one stored compliance constraint. Evaluation is decoded per RuleType
// at evaluation time; Condition is an optional JSON-logic guard.
type Rule struct {
	RuleID           string          `json:"ruleId"`
	RuleType         RuleType        `json:"ruleType"`
	ProviderType     ProviderType    `json:"providerType"`
	EntityType       EntityType      `json:"entityType"`
	EntityID         string          `json:"entityId"`
	Evaluation       json.RawMessage `json:"evaluation"`
	Condition        json.RawMessage `json:"condition,omitempty"`
	ViolationCode    string          `json:"violationCode"`
	ViolationMessage string          `json:"violationMessage"`
	Severity         Severity        `json:"severity"`
	Remediation      string          `json:"remediation"`
	Description      string          `json:"description,omitempty"`
	EffectiveDate    time.Time       `json:"effectiveDate"`
	Active           bool            `json:"active"`
	Version          int             `json:"version"`
}

// ApplicableAt reports whether the rule is active and already in effect at t.
func (r *Rule) ApplicableAt(t time.Time) bool {
	return r.Active && !r.EffectiveDate.After(t)
}

// RefundMethod is how money goes back to the customer.
type RefundMethod string

const (
	MethodOriginalPayment RefundMethod = "ORIGINAL_PAYMENT"
	MethodBalance         RefundMethod = "BALANCE"
	MethodOther           RefundMethod = "OTHER"
)

// MethodPreference is the order refund methods are tried in when none is chosen.
var MethodPreference = []RefundMethod{MethodOriginalPayment, MethodBalance, MethodOther}

func ParseRefundMethod(s string) (RefundMethod, error) {
	m := RefundMethod(s)
	switch m {
	case MethodOriginalPayment, MethodBalance, MethodOther:
		return m, nil
	}
	return "", fmt.Errorf("unknown refund method %q", s)
}

// PaymentMethod describes how the original transaction was paid.
type PaymentMethod struct {
	Type           string `json:"type"`
	SupportsRefund bool   `json:"supportsRefund"`
}

type Transaction struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	ProcessedAt   time.Time       `json:"processedAt"`
	CardNetwork   string          `json:"cardNetwork,omitempty"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
}

// BankAccount status values.
const (
	AccountStatusActive   = "ACTIVE"
	AccountStatusInactive = "INACTIVE"
	VerificationVerified  = "VERIFIED"
	VerificationPending   = "PENDING"
	VerificationFailed    = "FAILED"
)

type BankAccount struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	VerificationStatus string `json:"verificationStatus"`
}

// Usable reports whether the account can receive a refund.
func (a *BankAccount) Usable() bool {
	return a != nil && a.Status == AccountStatusActive && a.VerificationStatus == VerificationVerified
}

// Context is everything one evaluation needs. It is built per request and
// never persisted.
type Context struct {
	Transaction         Transaction     `json:"transaction"`
	MerchantID          string          `json:"merchantId"`
	RefundMethod        RefundMethod    `json:"refundMethod"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency"`
	SupportingDocuments []string        `json:"supportingDocuments,omitempty"`
	BankAccount         *BankAccount    `json:"bankAccount,omitempty"`
	// Parameters carries resolved merchant settings for rule conditions.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// RefundCurrency is the currency of the refund, defaulting to the transaction's.
func (c *Context) RefundCurrency() string {
	if c.Currency != "" {
		return c.Currency
	}
	return c.Transaction.Currency
}

// Violation is the structured outcome of one failed rule.
type Violation struct {
	RuleID       string       `json:"ruleId"`
	RuleType     RuleType     `json:"ruleType"`
	ProviderType ProviderType `json:"providerType"`
	Code         string       `json:"code"`
	Message      string       `json:"message"`
	Severity     Severity     `json:"severity"`
	Remediation  string       `json:"remediation,omitempty"`
}

// Result is the aggregated verdict for one evaluation.
type Result struct {
	Compliant       bool                 `json:"compliant"`
	Violations      []Violation          `json:"violations"`
	EvaluationID    string               `json:"evaluationId"`
	EvaluatedAt     time.Time            `json:"evaluatedAt"`
	RulesEvaluated  int                  `json:"rulesEvaluated"`
	RulesByProvider map[ProviderType]int `json:"rulesByProvider"`
}

func (r *Result) HasErrors() bool {
	return r.countSeverity(SeverityError) > 0
}

func (r *Result) HasWarnings() bool {
	return r.countSeverity(SeverityWarning) > 0
}

// Codes lists violation codes in report order.
func (r *Result) Codes() []string {
	codes := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		codes = append(codes, v.Code)
	}
	return codes
}

func (r *Result) countSeverity(s Severity) int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == s {
			n++
		}
	}
	return n
}
