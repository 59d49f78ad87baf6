package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"refunds/internal/compliance/evaluator"
	cmodels "refunds/internal/compliance/models"
	paramservice "refunds/internal/parameter/service"
	"refunds/internal/refund/models"
	dErrors "refunds/pkg/domain-errors"
	"refunds/pkg/requestcontext"
)

// DefaultRefundTimeLimitDays applies when no level defines refundTimeLimit.
const DefaultRefundTimeLimitDays = 90

// settings are the merchant parameters one validation depends on.
type settings struct {
	allowedMethods    []cmodels.RefundMethod
	refundTimeLimit   int
	approvalThreshold *decimal.Decimal
}

func (v *Validator) loadSettings(ctx context.Context, merchantID string) (*settings, error) {
	allowed, err := v.allowedMethods(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	limit, err := paramservice.Int(ctx, v.params, paramservice.ParamRefundTimeLimit, merchantID, DefaultRefundTimeLimitDays)
	if err != nil {
		return nil, err
	}
	s := &settings{allowedMethods: allowed, refundTimeLimit: limit}

	threshold, found, err := paramservice.Decimal(ctx, v.params, paramservice.ParamApprovalThreshold, merchantID)
	if err != nil {
		return nil, err
	}
	if found {
		s.approvalThreshold = &threshold
	}
	return s, nil
}

// allowedMethods defaults to every method when no level defines the parameter.
func (v *Validator) allowedMethods(ctx context.Context, merchantID string) ([]cmodels.RefundMethod, error) {
	raw, found, err := paramservice.Strings(ctx, v.params, paramservice.ParamAllowedMethods, merchantID)
	if err != nil {
		return nil, err
	}
	if !found {
		return slices.Clone(cmodels.MethodPreference), nil
	}
	methods := make([]cmodels.RefundMethod, 0, len(raw))
	for _, s := range raw {
		m, err := cmodels.ParseRefundMethod(s)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidConfig, "allowedMethods lists an unknown refund method")
		}
		methods = append(methods, m)
	}
	return methods, nil
}

// checkMethod applies the parameter gate and the method-specific checks. For
// OTHER it also returns the destination account so compliance rules can see it.
func (v *Validator) checkMethod(ctx context.Context, req models.ValidationRequest, s *settings) (models.MethodCheck, *cmodels.BankAccount, error) {
	m := req.Method
	if !slices.Contains(s.allowedMethods, m) {
		return failed(m, models.ReasonMethodNotAllowed, fmt.Sprintf("refund method %s is not enabled for this merchant", m)), nil, nil
	}

	switch m {
	case cmodels.MethodOriginalPayment:
		return v.checkOriginalPayment(ctx, req, s), nil, nil
	case cmodels.MethodBalance:
		check, err := v.checkBalance(ctx, req)
		return check, nil, err
	case cmodels.MethodOther:
		return v.checkBankAccount(ctx, req)
	}
	return models.MethodCheck{}, nil, dErrors.New(dErrors.CodeBadRequest, "invalid refund method")
}

func (v *Validator) checkOriginalPayment(ctx context.Context, req models.ValidationRequest, s *settings) models.MethodCheck {
	m := cmodels.MethodOriginalPayment
	if !req.Transaction.PaymentMethod.SupportsRefund {
		return failed(m, models.ReasonNotRefundable,
			fmt.Sprintf("payment method %s does not support refunds", req.Transaction.PaymentMethod.Type))
	}
	days := evaluator.DaysSince(req.Transaction.ProcessedAt, requestcontext.Now(ctx))
	if days > s.refundTimeLimit {
		return failed(m, models.ReasonRefundWindowExpired,
			fmt.Sprintf("transaction is %d days old; refunds to the original payment are allowed for %d days", days, s.refundTimeLimit))
	}
	return passed(m)
}

func (v *Validator) checkBalance(ctx context.Context, req models.ValidationRequest) (models.MethodCheck, error) {
	m := cmodels.MethodBalance
	ok, err := v.balances.HasSufficientBalance(ctx, req.MerchantID, req.Amount, req.Currency)
	if err != nil {
		return models.MethodCheck{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "balance service unavailable")
	}
	if !ok {
		return failed(m, models.ReasonInsufficientBalance,
			fmt.Sprintf("merchant balance cannot cover %s %s", req.Amount, req.Currency)), nil
	}
	return passed(m), nil
}

func (v *Validator) checkBankAccount(ctx context.Context, req models.ValidationRequest) (models.MethodCheck, *cmodels.BankAccount, error) {
	m := cmodels.MethodOther
	var (
		account *cmodels.BankAccount
		err     error
	)
	if req.BankAccountID != "" {
		account, err = v.accounts.FindAccount(ctx, req.MerchantID, req.BankAccountID)
	} else {
		account, err = v.accounts.GetDefaultAccount(ctx, req.MerchantID)
	}
	if err != nil {
		return models.MethodCheck{}, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "bank account directory unavailable")
	}
	switch {
	case account == nil:
		return failed(m, models.ReasonBankAccountMissing, "merchant has no bank account on file"), nil, nil
	case account.Status != cmodels.AccountStatusActive:
		return failed(m, models.ReasonBankAccountInactive,
			fmt.Sprintf("bank account %s is %s", account.ID, account.Status)), account, nil
	case account.VerificationStatus != cmodels.VerificationVerified:
		return failed(m, models.ReasonBankAccountUnverified,
			fmt.Sprintf("bank account %s verification is %s", account.ID, account.VerificationStatus)), account, nil
	}
	return passed(m), account, nil
}

func passed(m cmodels.RefundMethod) models.MethodCheck {
	return models.MethodCheck{Method: m, Passed: true}
}

func failed(m cmodels.RefundMethod, reason models.Reason, msg string) models.MethodCheck {
	return models.MethodCheck{Method: m, Reason: reason, Message: msg}
}

// complianceContext exposes the request and resolved settings to rule conditions.
func complianceContext(req models.ValidationRequest, s *settings, account *cmodels.BankAccount) *cmodels.Context {
	allowed := make([]any, len(s.allowedMethods))
	for i, m := range s.allowedMethods {
		allowed[i] = string(m)
	}
	params := map[string]any{
		paramservice.ParamAllowedMethods:  allowed,
		paramservice.ParamRefundTimeLimit: s.refundTimeLimit,
	}
	if s.approvalThreshold != nil {
		params[paramservice.ParamApprovalThreshold] = s.approvalThreshold.InexactFloat64()
	}
	return &cmodels.Context{
		Transaction:         req.Transaction,
		MerchantID:          req.MerchantID,
		RefundMethod:        req.Method,
		Amount:              req.Amount,
		Currency:            req.Currency,
		SupportingDocuments: req.SupportingDocuments,
		BankAccount:         account,
		Parameters:          params,
	}
}
