package handler

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	cmodels "refunds/internal/compliance/models"
	"refunds/internal/refund/models"
	dErrors "refunds/pkg/domain-errors"
	pstrings "refunds/pkg/platform/strings"
)

// TransactionRequest describes the original payment.
type TransactionRequest struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	ProcessedAt   time.Time       `json:"processed_at"`
	CardNetwork   string          `json:"card_network"`
	PaymentMethod struct {
		Type           string `json:"type"`
		SupportsRefund bool   `json:"supports_refund"`
	} `json:"payment_method"`
}

func (t TransactionRequest) toModel() cmodels.Transaction {
	return cmodels.Transaction{
		ID:          strings.TrimSpace(t.ID),
		Amount:      t.Amount,
		Currency:    strings.ToUpper(strings.TrimSpace(t.Currency)),
		ProcessedAt: t.ProcessedAt,
		CardNetwork: strings.ToUpper(strings.TrimSpace(t.CardNetwork)),
		PaymentMethod: cmodels.PaymentMethod{
			Type:           t.PaymentMethod.Type,
			SupportsRefund: t.PaymentMethod.SupportsRefund,
		},
	}
}

func (t TransactionRequest) validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "transaction.id is required")
	}
	if strings.TrimSpace(t.Currency) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "transaction.currency is required")
	}
	if t.ProcessedAt.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "transaction.processed_at is required")
	}
	return nil
}

// RefundRequest is the body for POST /refunds/validate-method and
// POST /refunds/select-method. Method is ignored by select-method.
type RefundRequest struct {
	MerchantID          string             `json:"merchant_id"`
	Method              string             `json:"method"`
	BankAccountID       string             `json:"bank_account_id"`
	Amount              *decimal.Decimal   `json:"amount"`
	Currency            string             `json:"currency"`
	SupportingDocuments []string           `json:"supporting_documents"`
	Transaction         TransactionRequest `json:"transaction"`
}

// Validate checks the fields common to both refund endpoints.
func (r *RefundRequest) Validate(requireMethod bool) error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.MerchantID = strings.TrimSpace(r.MerchantID)
	if r.MerchantID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "merchant_id is required")
	}
	if requireMethod {
		r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
		if _, err := cmodels.ParseRefundMethod(r.Method); err != nil {
			return dErrors.Wrap(err, dErrors.CodeBadRequest, "method must be one of ORIGINAL_PAYMENT, BALANCE, OTHER")
		}
	}
	return r.Transaction.validate()
}

func (r *RefundRequest) toModel() models.ValidationRequest {
	req := models.ValidationRequest{
		Method:              cmodels.RefundMethod(r.Method),
		Transaction:         r.Transaction.toModel(),
		MerchantID:          r.MerchantID,
		BankAccountID:       strings.TrimSpace(r.BankAccountID),
		Currency:            strings.ToUpper(strings.TrimSpace(r.Currency)),
		SupportingDocuments: pstrings.DedupeAndTrim(r.SupportingDocuments),
	}
	if r.Amount != nil {
		req.Amount = *r.Amount
	}
	return req
}

// EvaluateRequest is the body for POST /compliance/evaluate.
type EvaluateRequest struct {
	RefundRequest
	BankAccount *struct {
		ID                 string `json:"id"`
		Status             string `json:"status"`
		VerificationStatus string `json:"verification_status"`
	} `json:"bank_account"`
	Parameters map[string]any `json:"parameters"`
}

func (r *EvaluateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return r.RefundRequest.Validate(true)
}

func (r *EvaluateRequest) toContext() *cmodels.Context {
	req := r.RefundRequest.toModel()
	c := &cmodels.Context{
		Transaction:         req.Transaction,
		MerchantID:          req.MerchantID,
		RefundMethod:        req.Method,
		Amount:              req.Amount,
		Currency:            req.Currency,
		SupportingDocuments: req.SupportingDocuments,
		Parameters:          r.Parameters,
	}
	if c.Amount.IsZero() {
		c.Amount = c.Transaction.Amount
	}
	if ba := r.BankAccount; ba != nil {
		c.BankAccount = &cmodels.BankAccount{
			ID:                 ba.ID,
			Status:             strings.ToUpper(ba.Status),
			VerificationStatus: strings.ToUpper(ba.VerificationStatus),
		}
	}
	return c
}
