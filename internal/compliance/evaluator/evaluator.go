package evaluator

import (
	"fmt"
	"time"

	"refunds/internal/compliance/models"
)

// CodeUnevaluable marks a stored rule that could not be evaluated. It is
// always reported with ERROR severity so a broken rule never passes silently.
const CodeUnevaluable = "RULE_UNEVALUABLE"

// Subject is a refund context prepared for evaluating many rules at one instant.
// It is not safe for concurrent use.
type Subject struct {
	Context *models.Context
	Now     time.Time

	conditionData []byte
	conditionErr  error
}

func NewSubject(c *models.Context, now time.Time) *Subject {
	return &Subject{Context: c, Now: now}
}

// Evaluate checks one rule and returns its violation, or nil when it passes
// or its condition does not apply. The payload is decoded before the
// condition runs, so a misconfigured rule is reported even when its
// condition is false.
func Evaluate(rule *models.Rule, s *Subject) *models.Violation {
	eval, err := Parse(rule.RuleType, rule.Evaluation)
	if err != nil {
		return unevaluable(rule, err)
	}

	applies, err := s.conditionHolds(rule.Condition)
	if err != nil {
		return unevaluable(rule, fmt.Errorf("condition: %w", err))
	}
	if !applies {
		return nil
	}
	if !eval.Violated(s.Context, s.Now) {
		return nil
	}
	return violation(rule)
}

func violation(rule *models.Rule) *models.Violation {
	severity := rule.Severity
	if !severity.IsValid() {
		severity = models.SeverityError
	}
	return &models.Violation{
		RuleID:       rule.RuleID,
		RuleType:     rule.RuleType,
		ProviderType: rule.ProviderType,
		Code:         rule.ViolationCode,
		Message:      rule.ViolationMessage,
		Severity:     severity,
		Remediation:  rule.Remediation,
	}
}

func unevaluable(rule *models.Rule, err error) *models.Violation {
	return &models.Violation{
		RuleID:       rule.RuleID,
		RuleType:     rule.RuleType,
		ProviderType: rule.ProviderType,
		Code:         CodeUnevaluable,
		Message:      fmt.Sprintf("rule %s could not be evaluated: %v", rule.RuleID, err),
		Severity:     models.SeverityError,
		Remediation:  "Correct the rule configuration before processing this refund.",
	}
}

// IsUnevaluable reports whether v was produced by a misconfigured rule.
func IsUnevaluable(v models.Violation) bool {
	return v.Code == CodeUnevaluable
}
