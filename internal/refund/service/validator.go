// Package service decides whether a refund may be paid with a given method.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	cmodels "refunds/internal/compliance/models"
	"refunds/internal/platform/logger"
	"refunds/internal/refund/metrics"
	"refunds/internal/refund/models"
	"refunds/internal/refund/ports"
	dErrors "refunds/pkg/domain-errors"
	"refunds/pkg/requestcontext"
)

// ErrNoValidMethod means no refund method passed its checks.
var ErrNoValidMethod = errors.New("no valid refund method")

var tracer = otel.Tracer("refunds/refund")

// Type aliases for interfaces from ports package.
type (
	ParameterSource      = ports.ParameterSource
	ComplianceEvaluator  = ports.ComplianceEvaluator
	BalanceService       = ports.BalanceService
	BankAccountDirectory = ports.BankAccountDirectory
	ApprovalRequester    = ports.ApprovalRequester
	AuditPublisher       = ports.AuditPublisher
)

// Validator combines merchant configuration, method-specific checks and
// compliance evaluation into a single decision.
type Validator struct {
	params     ParameterSource
	compliance ComplianceEvaluator
	balances   BalanceService
	accounts   BankAccountDirectory
	approvals  ApprovalRequester
	auditor    AuditPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Validator)

func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Validator) {
		v.metrics = m
	}
}

// WithApprovalRequester escalates REQUIRE_APPROVAL outcomes.
func WithApprovalRequester(a ApprovalRequester) Option {
	return func(v *Validator) {
		v.approvals = a
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(v *Validator) {
		v.auditor = p
	}
}

func New(params ParameterSource, compliance ComplianceEvaluator, balances BalanceService, accounts BankAccountDirectory, opts ...Option) (*Validator, error) {
	if params == nil {
		return nil, errors.New("parameter source is required")
	}
	if compliance == nil {
		return nil, errors.New("compliance evaluator is required")
	}
	if balances == nil {
		return nil, errors.New("balance service is required")
	}
	if accounts == nil {
		return nil, errors.New("bank account directory is required")
	}
	v := &Validator{
		params:     params,
		compliance: compliance,
		balances:   balances,
		accounts:   accounts,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = logger.Discard()
	}
	return v, nil
}

// ValidateMethod decides whether req.Method may be used. Rejections and
// escalations are returned as outcomes; errors mean the decision could not be
// made.
func (v *Validator) ValidateMethod(ctx context.Context, req models.ValidationRequest) (*models.ValidationOutcome, error) {
	req, err := normalize(req, true)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "refund.ValidateMethod")
	defer span.End()
	span.SetAttributes(
		attribute.String("merchant.id", req.MerchantID),
		attribute.String("refund.method", string(req.Method)),
		attribute.String("transaction.id", req.Transaction.ID),
	)

	start := time.Now()
	defer func() { v.metrics.ObserveValidation(time.Since(start)) }()

	outcome, err := v.validate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		v.logger.WarnContext(ctx, "refund method validation failed",
			"merchant_id", req.MerchantID,
			"method", req.Method,
			"transaction_id", req.Transaction.ID,
			"error", err,
		)
		return nil, err
	}

	span.SetAttributes(attribute.String("refund.decision", string(outcome.Decision)))
	v.metrics.IncValidation(string(outcome.Method), string(outcome.Decision), string(outcome.Reason))
	v.logger.InfoContext(ctx, "refund method validated",
		"merchant_id", req.MerchantID,
		"method", outcome.Method,
		"transaction_id", req.Transaction.ID,
		"decision", outcome.Decision,
		"reason", outcome.Reason,
		"violations", len(outcome.Violations),
		"evaluation_id", outcome.EvaluationID,
		"request_id", requestcontext.RequestID(ctx),
	)
	v.emitValidated(ctx, req, outcome)
	return outcome, nil
}

func (v *Validator) validate(ctx context.Context, req models.ValidationRequest) (*models.ValidationOutcome, error) {
	s, err := v.loadSettings(ctx, req.MerchantID)
	if err != nil {
		return nil, err
	}

	check, account, err := v.checkMethod(ctx, req, s)
	if err != nil {
		return nil, err
	}
	if !check.Passed {
		return &models.ValidationOutcome{
			Decision:   models.DecisionReject,
			Method:     req.Method,
			Reason:     check.Reason,
			Message:    check.Message,
			Violations: []cmodels.Violation{},
		}, nil
	}

	result, err := v.compliance.Evaluate(ctx, complianceContext(req, s, account))
	if err != nil {
		return nil, err
	}

	outcome := decide(req, s, result)
	if outcome.Decision == models.DecisionRequireApproval {
		if err := v.escalate(ctx, req, outcome); err != nil {
			return nil, err
		}
	}
	return outcome, nil
}

// decide turns a compliance result into a decision. ERROR violations reject,
// WARNING violations and amounts above the approval threshold escalate.
func decide(req models.ValidationRequest, s *settings, result *cmodels.Result) *models.ValidationOutcome {
	outcome := &models.ValidationOutcome{
		Decision:     models.DecisionAllow,
		Method:       req.Method,
		Violations:   result.Violations,
		EvaluationID: result.EvaluationID,
	}
	switch {
	case result.HasErrors():
		outcome.Decision = models.DecisionReject
		outcome.Reason = models.ReasonComplianceViolation
		outcome.Message = fmt.Sprintf("refund violates %d compliance rule(s)", len(result.Violations))
	case result.HasWarnings():
		outcome.Decision = models.DecisionRequireApproval
		outcome.Reason = models.ReasonComplianceReview
		outcome.Message = "compliance warnings require approval"
	case s.approvalThreshold != nil && req.Amount.GreaterThan(*s.approvalThreshold):
		outcome.Decision = models.DecisionRequireApproval
		outcome.Reason = models.ReasonApprovalThreshold
		outcome.Message = fmt.Sprintf("refund amount %s exceeds approval threshold %s", req.Amount, s.approvalThreshold)
	}
	return outcome
}

func (v *Validator) escalate(ctx context.Context, req models.ValidationRequest, outcome *models.ValidationOutcome) error {
	if v.approvals == nil {
		return nil
	}
	id, err := v.approvals.RequestApproval(ctx, models.ApprovalRequest{
		MerchantID:    req.MerchantID,
		TransactionID: req.Transaction.ID,
		Method:        req.Method,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Reason:        outcome.Reason,
		Violations:    outcome.Violations,
		EvaluationID:  outcome.EvaluationID,
	})
	if err != nil {
		v.metrics.IncApproval("error")
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "approval workflow unavailable")
	}
	v.metrics.IncApproval("requested")
	outcome.ApprovalRequestID = id
	return nil
}

// EvaluateCompliance runs the compliance engine directly and records the evaluation.
func (v *Validator) EvaluateCompliance(ctx context.Context, c *cmodels.Context) (*cmodels.Result, error) {
	result, err := v.compliance.Evaluate(ctx, c)
	if err != nil {
		return nil, err
	}
	v.emitEvaluated(ctx, c, result)
	return result, nil
}

// normalize validates req and fills defaults: a zero amount refunds the whole
// transaction and an empty currency is the transaction's.
func normalize(req models.ValidationRequest, requireMethod bool) (models.ValidationRequest, error) {
	if strings.TrimSpace(req.MerchantID) == "" {
		return req, dErrors.New(dErrors.CodeBadRequest, "merchant id is required")
	}
	if requireMethod {
		if _, err := cmodels.ParseRefundMethod(string(req.Method)); err != nil {
			return req, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid refund method")
		}
	}
	if req.Transaction.ProcessedAt.IsZero() {
		return req, dErrors.New(dErrors.CodeBadRequest, "transaction processed date is required")
	}
	if req.Amount.IsNegative() {
		return req, dErrors.New(dErrors.CodeBadRequest, "refund amount must not be negative")
	}
	if req.Amount.IsZero() {
		req.Amount = req.Transaction.Amount
	}
	if req.Currency == "" {
		req.Currency = req.Transaction.Currency
	}
	return req, nil
}
