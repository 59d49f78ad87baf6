package service

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	cmodels "refunds/internal/compliance/models"
	"refunds/internal/refund/models"
	dErrors "refunds/pkg/domain-errors"
)

// SelectRefundMethod returns the first method, in preference order, that
// passes the parameter gate and its method-specific checks. Compliance is not
// evaluated here; callers validate the chosen method with ValidateMethod.
func (v *Validator) SelectRefundMethod(ctx context.Context, req models.ValidationRequest) (*models.Selection, error) {
	req, err := normalize(req, false)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "refund.SelectRefundMethod")
	defer span.End()
	span.SetAttributes(
		attribute.String("merchant.id", req.MerchantID),
		attribute.String("transaction.id", req.Transaction.ID),
	)

	s, err := v.loadSettings(ctx, req.MerchantID)
	if err != nil {
		return nil, err
	}

	selection := &models.Selection{Checks: make([]models.MethodCheck, 0, len(cmodels.MethodPreference))}
	for _, m := range cmodels.MethodPreference {
		req.Method = m
		check, _, err := v.checkMethod(ctx, req, s)
		if err != nil {
			return nil, err
		}
		selection.Checks = append(selection.Checks, check)
		if check.Passed {
			selection.Method = m
			break
		}
	}

	if selection.Method == "" {
		v.metrics.IncSelection("none")
		v.logger.InfoContext(ctx, "no refund method available",
			"merchant_id", req.MerchantID,
			"transaction_id", req.Transaction.ID,
			"checks", describeChecks(selection.Checks),
		)
		return nil, dErrors.Wrap(
			fmt.Errorf("%w: %s", ErrNoValidMethod, describeChecks(selection.Checks)),
			dErrors.CodeUnprocessable, "no refund method is available for this transaction")
	}

	span.SetAttributes(attribute.String("refund.method", string(selection.Method)))
	v.metrics.IncSelection(string(selection.Method))
	v.logger.InfoContext(ctx, "refund method selected",
		"merchant_id", req.MerchantID,
		"transaction_id", req.Transaction.ID,
		"method", selection.Method,
	)
	v.emitSelected(ctx, req, selection)
	return selection, nil
}

func describeChecks(checks []models.MethodCheck) string {
	parts := make([]string, 0, len(checks))
	for _, c := range checks {
		if c.Passed {
			parts = append(parts, string(c.Method)+"=OK")
			continue
		}
		parts = append(parts, string(c.Method)+"="+string(c.Reason))
	}
	return strings.Join(parts, ", ")
}
