package evaluator

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/diegoholiveira/jsonlogic"
)

// conditionHolds applies a rule's JSON-logic guard to the subject. An absent
// condition always holds.
func (s *Subject) conditionHolds(condition json.RawMessage) (bool, error) {
	trimmed := bytes.TrimSpace(condition)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true, nil
	}
	if !json.Valid(trimmed) {
		return false, fmt.Errorf("invalid JSON-logic expression")
	}

	data, err := s.data()
	if err != nil {
		return false, err
	}

	var out bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(trimmed), bytes.NewReader(data), &out); err != nil {
		return false, err
	}

	var result any
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &result); err != nil {
		return false, fmt.Errorf("decode condition result: %w", err)
	}
	return truthy(result), nil
}

// data is the document conditions are evaluated against. Built once per subject.
func (s *Subject) data() ([]byte, error) {
	if s.conditionData != nil || s.conditionErr != nil {
		return s.conditionData, s.conditionErr
	}
	c := s.Context
	documents := c.SupportingDocuments
	if documents == nil {
		documents = []string{}
	}
	doc := map[string]any{
		"merchantId":   c.MerchantID,
		"refundMethod": string(c.RefundMethod),
		"amount":       c.Amount.InexactFloat64(),
		"currency":     c.RefundCurrency(),
		"documents":    documents,
		"transaction": map[string]any{
			"id":                 c.Transaction.ID,
			"amount":             c.Transaction.Amount.InexactFloat64(),
			"currency":           c.Transaction.Currency,
			"cardNetwork":        c.Transaction.CardNetwork,
			"paymentMethod":      c.Transaction.PaymentMethod.Type,
			"supportsRefund":     c.Transaction.PaymentMethod.SupportsRefund,
			"daysSinceProcessed": DaysSince(c.Transaction.ProcessedAt, s.Now),
		},
		"parameters": c.Parameters,
	}
	s.conditionData, s.conditionErr = json.Marshal(doc)
	return s.conditionData, s.conditionErr
}

// truthy follows JSON-logic truthiness.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	default:
		return true
	}
}
