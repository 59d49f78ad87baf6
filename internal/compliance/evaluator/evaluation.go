// Package evaluator decides whether a single compliance rule is violated by a
// refund context. Every function here is pure.
package evaluator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"refunds/internal/compliance/models"
)

// RestrictionOriginalTransaction caps the refund at the original transaction amount.
const RestrictionOriginalTransaction = "original_transaction"

var (
	ErrUnknownRuleType   = errors.New("unknown rule type")
	ErrInvalidEvaluation = errors.New("invalid rule evaluation")
)

// Evaluation is the decoded payload of one rule. The set of implementations
// is closed: adding a rule type means adding a variant with its own check.
type Evaluation interface {
	RuleType() models.RuleType
	// Violated reports whether c breaks the rule at instant now.
	Violated(c *models.Context, now time.Time) bool
	sealed()
}

// Timeframe limits how long after processing a refund may be issued.
type Timeframe struct {
	TimeLimitDays int
}

// Amount caps the refund by an absolute threshold, by the original
// transaction amount, or both.
type Amount struct {
	Threshold *decimal.Decimal
	// Currency restricts Threshold to refunds in that currency.
	Currency    string
	Restriction string
}

// Method restricts which refund methods may be used.
type Method struct {
	AllowedMethods []models.RefundMethod
}

// Documentation requires supporting documents to be attached.
type Documentation struct {
	Required bool
	// Documents, when set, names document types that must all be present.
	Documents []string
}

func (Timeframe) RuleType() models.RuleType     { return models.RuleTimeframe }
func (Amount) RuleType() models.RuleType        { return models.RuleAmount }
func (Method) RuleType() models.RuleType        { return models.RuleMethod }
func (Documentation) RuleType() models.RuleType { return models.RuleDocumentation }

func (Timeframe) sealed()     {}
func (Amount) sealed()        {}
func (Method) sealed()        {}
func (Documentation) sealed() {}

func (e Timeframe) Violated(c *models.Context, now time.Time) bool {
	return DaysSince(c.Transaction.ProcessedAt, now) > e.TimeLimitDays
}

func (e Amount) Violated(c *models.Context, _ time.Time) bool {
	if e.Threshold != nil && e.currencyMatches(c.RefundCurrency()) && c.Amount.GreaterThan(*e.Threshold) {
		return true
	}
	if e.Restriction == RestrictionOriginalTransaction && c.Amount.GreaterThan(c.Transaction.Amount) {
		return true
	}
	return false
}

func (e Amount) currencyMatches(currency string) bool {
	return e.Currency == "" || strings.EqualFold(e.Currency, currency)
}

func (e Method) Violated(c *models.Context, _ time.Time) bool {
	return !slices.Contains(e.AllowedMethods, c.RefundMethod)
}

func (e Documentation) Violated(c *models.Context, _ time.Time) bool {
	if !e.Required {
		return false
	}
	if len(c.SupportingDocuments) == 0 {
		return true
	}
	for _, doc := range e.Documents {
		if !slices.ContainsFunc(c.SupportingDocuments, func(have string) bool {
			return strings.EqualFold(have, doc)
		}) {
			return true
		}
	}
	return false
}

// DaysSince counts whole days elapsed from t to now. Future instants count as zero.
func DaysSince(t, now time.Time) int {
	d := now.Sub(t)
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

type timeframePayload struct {
	TimeLimitDays *int `json:"timeLimitDays"`
}

type amountPayload struct {
	AmountThreshold   *decimal.Decimal `json:"amountThreshold"`
	Currency          string           `json:"currency"`
	AmountRestriction string           `json:"amountRestriction"`
}

type methodPayload struct {
	AllowedMethods []string `json:"allowedMethods"`
}

type documentationPayload struct {
	DocumentationRequired *bool    `json:"documentationRequired"`
	RequiredDocuments     []string `json:"requiredDocuments"`
}

// Parse decodes a stored evaluation payload for ruleType. Unknown types and
// payloads missing their defining field are errors.
func Parse(ruleType models.RuleType, raw json.RawMessage) (Evaluation, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidEvaluation)
	}
	switch ruleType {
	case models.RuleTimeframe:
		var p timeframePayload
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		if p.TimeLimitDays == nil || *p.TimeLimitDays < 0 {
			return nil, fmt.Errorf("%w: timeLimitDays must be a non-negative integer", ErrInvalidEvaluation)
		}
		return Timeframe{TimeLimitDays: *p.TimeLimitDays}, nil

	case models.RuleAmount:
		var p amountPayload
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		if p.AmountThreshold == nil && p.AmountRestriction == "" {
			return nil, fmt.Errorf("%w: amountThreshold or amountRestriction is required", ErrInvalidEvaluation)
		}
		if p.AmountThreshold != nil && p.AmountThreshold.IsNegative() {
			return nil, fmt.Errorf("%w: amountThreshold must not be negative", ErrInvalidEvaluation)
		}
		if p.AmountRestriction != "" && p.AmountRestriction != RestrictionOriginalTransaction {
			return nil, fmt.Errorf("%w: unsupported amountRestriction %q", ErrInvalidEvaluation, p.AmountRestriction)
		}
		return Amount{Threshold: p.AmountThreshold, Currency: p.Currency, Restriction: p.AmountRestriction}, nil

	case models.RuleMethod:
		var p methodPayload
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		if p.AllowedMethods == nil {
			return nil, fmt.Errorf("%w: allowedMethods is required", ErrInvalidEvaluation)
		}
		methods := make([]models.RefundMethod, 0, len(p.AllowedMethods))
		for _, m := range p.AllowedMethods {
			method, err := models.ParseRefundMethod(m)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidEvaluation, err)
			}
			methods = append(methods, method)
		}
		return Method{AllowedMethods: methods}, nil

	case models.RuleDocumentation:
		var p documentationPayload
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		if p.DocumentationRequired == nil {
			return nil, fmt.Errorf("%w: documentationRequired is required", ErrInvalidEvaluation)
		}
		return Documentation{Required: *p.DocumentationRequired, Documents: p.RequiredDocuments}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRuleType, ruleType)
	}
}

func decode(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvaluation, err)
	}
	return nil
}
