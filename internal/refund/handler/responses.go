package handler

import (
	"time"

	cmodels "refunds/internal/compliance/models"
	"refunds/internal/refund/models"
)

type ViolationResponse struct {
	RuleID       string `json:"rule_id"`
	RuleType     string `json:"rule_type"`
	ProviderType string `json:"provider_type"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	Severity     string `json:"severity"`
	Remediation  string `json:"remediation,omitempty"`
}

func fromViolations(vs []cmodels.Violation) []ViolationResponse {
	out := make([]ViolationResponse, len(vs))
	for i, v := range vs {
		out[i] = ViolationResponse{
			RuleID:       v.RuleID,
			RuleType:     string(v.RuleType),
			ProviderType: string(v.ProviderType),
			Code:         v.Code,
			Message:      v.Message,
			Severity:     string(v.Severity),
			Remediation:  v.Remediation,
		}
	}
	return out
}

// ComplianceResponse is the HTTP response for POST /compliance/evaluate.
type ComplianceResponse struct {
	Compliant       bool                `json:"compliant"`
	Violations      []ViolationResponse `json:"violations"`
	EvaluationID    string              `json:"evaluation_id"`
	EvaluatedAt     time.Time           `json:"evaluated_at"`
	RulesEvaluated  int                 `json:"rules_evaluated"`
	RulesByProvider map[string]int      `json:"rules_by_provider"`
}

func FromResult(r *cmodels.Result) *ComplianceResponse {
	byProvider := make(map[string]int, len(r.RulesByProvider))
	for p, n := range r.RulesByProvider {
		byProvider[string(p)] = n
	}
	return &ComplianceResponse{
		Compliant:       r.Compliant,
		Violations:      fromViolations(r.Violations),
		EvaluationID:    r.EvaluationID,
		EvaluatedAt:     r.EvaluatedAt,
		RulesEvaluated:  r.RulesEvaluated,
		RulesByProvider: byProvider,
	}
}

// OutcomeResponse is the HTTP response for POST /refunds/validate-method.
type OutcomeResponse struct {
	Decision          string              `json:"decision"`
	Method            string              `json:"method"`
	Reason            string              `json:"reason,omitempty"`
	Message           string              `json:"message,omitempty"`
	Violations        []ViolationResponse `json:"violations"`
	EvaluationID      string              `json:"evaluation_id,omitempty"`
	ApprovalRequestID string              `json:"approval_request_id,omitempty"`
}

func FromOutcome(o *models.ValidationOutcome) *OutcomeResponse {
	return &OutcomeResponse{
		Decision:          string(o.Decision),
		Method:            string(o.Method),
		Reason:            string(o.Reason),
		Message:           o.Message,
		Violations:        fromViolations(o.Violations),
		EvaluationID:      o.EvaluationID,
		ApprovalRequestID: o.ApprovalRequestID,
	}
}

type CheckResponse struct {
	Method  string `json:"method"`
	Passed  bool   `json:"passed"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// SelectionResponse is the HTTP response for POST /refunds/select-method.
type SelectionResponse struct {
	Method string          `json:"method"`
	Checks []CheckResponse `json:"checks"`
}

func FromSelection(s *models.Selection) *SelectionResponse {
	checks := make([]CheckResponse, len(s.Checks))
	for i, c := range s.Checks {
		checks[i] = CheckResponse{
			Method:  string(c.Method),
			Passed:  c.Passed,
			Reason:  string(c.Reason),
			Message: c.Message,
		}
	}
	return &SelectionResponse{Method: string(s.Method), Checks: checks}
}
