// Package models holds refund-method validation requests and outcomes.
package models

import (
	"github.com/shopspring/decimal"

	cmodels "refunds/internal/compliance/models"
)

// Decision is the verdict for a proposed refund method.
type Decision string

const (
	DecisionAllow           Decision = "ALLOW"
	DecisionRequireApproval Decision = "REQUIRE_APPROVAL"
	DecisionReject          Decision = "REJECT"
)

// Reason explains a non-ALLOW decision.
type Reason string

const (
	ReasonMethodNotAllowed      Reason = "METHOD_NOT_ALLOWED"
	ReasonNotRefundable         Reason = "PAYMENT_METHOD_NOT_REFUNDABLE"
	ReasonRefundWindowExpired   Reason = "REFUND_WINDOW_EXPIRED"
	ReasonInsufficientBalance   Reason = "INSUFFICIENT_BALANCE"
	ReasonBankAccountMissing    Reason = "BANK_ACCOUNT_MISSING"
	ReasonBankAccountInactive   Reason = "BANK_ACCOUNT_INACTIVE"
	ReasonBankAccountUnverified Reason = "BANK_ACCOUNT_UNVERIFIED"
	ReasonComplianceViolation   Reason = "COMPLIANCE_VIOLATION"
	ReasonComplianceReview      Reason = "COMPLIANCE_REVIEW"
	ReasonApprovalThreshold     Reason = "APPROVAL_THRESHOLD_EXCEEDED"
)

// ValidationRequest proposes refunding a transaction with a given method.
type ValidationRequest struct {
	Method      cmodels.RefundMethod
	Transaction cmodels.Transaction
	MerchantID  string
	// BankAccountID selects the destination for OTHER; empty means the merchant's default account.
	BankAccountID string
	// Amount is the refund amount. Zero means a full refund of the transaction.
	Amount              decimal.Decimal
	Currency            string
	SupportingDocuments []string
}

// ValidationOutcome is the verdict for one method. Business failures are
// reported here, never as errors.
type ValidationOutcome struct {
	Decision   Decision             `json:"decision"`
	Method     cmodels.RefundMethod `json:"method"`
	Reason     Reason               `json:"reason,omitempty"`
	Message    string               `json:"message,omitempty"`
	Violations []cmodels.Violation  `json:"violations"`
	// EvaluationID identifies the compliance evaluation, when one ran.
	EvaluationID      string `json:"evaluationId,omitempty"`
	ApprovalRequestID string `json:"approvalRequestId,omitempty"`
}

// Allowed reports whether the refund may proceed without escalation.
func (o *ValidationOutcome) Allowed() bool {
	return o.Decision == DecisionAllow
}

// MethodCheck is the result of the parameter gate and method-specific checks
// for one method, before compliance.
type MethodCheck struct {
	Method  cmodels.RefundMethod `json:"method"`
	Passed  bool                 `json:"passed"`
	Reason  Reason               `json:"reason,omitempty"`
	Message string               `json:"message,omitempty"`
}

// Selection is the outcome of trying methods in preference order.
type Selection struct {
	Method cmodels.RefundMethod `json:"method"`
	// Checks lists every method tried, in order, including the winner.
	Checks []MethodCheck `json:"checks"`
}

// ApprovalRequest escalates a refund that needs human review.
type ApprovalRequest struct {
	MerchantID    string
	TransactionID string
	Method        cmodels.RefundMethod
	Amount        decimal.Decimal
	Currency      string
	Reason        Reason
	Violations    []cmodels.Violation
	EvaluationID  string
}
