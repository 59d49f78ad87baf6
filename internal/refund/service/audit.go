package service

import (
	"context"

	cmodels "refunds/internal/compliance/models"
	"refunds/internal/refund/models"
	"refunds/pkg/platform/audit"
	"refunds/pkg/requestcontext"
)

func (v *Validator) emitValidated(ctx context.Context, req models.ValidationRequest, outcome *models.ValidationOutcome) {
	v.emit(ctx, audit.Event{
		Action:         audit.EventRefundMethodValidated,
		MerchantID:     req.MerchantID,
		Subject:        req.Transaction.ID,
		Method:         string(outcome.Method),
		Decision:       string(outcome.Decision),
		Reason:         string(outcome.Reason),
		ViolationCodes: violationCodes(outcome.Violations),
		EvaluationID:   outcome.EvaluationID,
	})
}

func (v *Validator) emitSelected(ctx context.Context, req models.ValidationRequest, selection *models.Selection) {
	v.emit(ctx, audit.Event{
		Action:     audit.EventRefundMethodSelected,
		MerchantID: req.MerchantID,
		Subject:    req.Transaction.ID,
		Method:     string(selection.Method),
		Decision:   "SELECTED",
	})
}

func (v *Validator) emitEvaluated(ctx context.Context, c *cmodels.Context, result *cmodels.Result) {
	decision := "COMPLIANT"
	if !result.Compliant {
		decision = "NON_COMPLIANT"
	}
	v.emit(ctx, audit.Event{
		Action:         audit.EventComplianceEvaluated,
		MerchantID:     c.MerchantID,
		Subject:        c.Transaction.ID,
		Method:         string(c.RefundMethod),
		Decision:       decision,
		ViolationCodes: result.Codes(),
		EvaluationID:   result.EvaluationID,
	})
}

// emit never fails the caller; a decision already made stands.
func (v *Validator) emit(ctx context.Context, event audit.Event) {
	if v.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := v.auditor.Emit(ctx, event); err != nil {
		v.metrics.IncAuditFailure()
		v.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"merchant_id", event.MerchantID,
			"error", err,
		)
	}
}

func violationCodes(vs []cmodels.Violation) []string {
	if len(vs) == 0 {
		return nil
	}
	codes := make([]string, len(vs))
	for i, v := range vs {
		codes[i] = v.Code
	}
	return codes
}
