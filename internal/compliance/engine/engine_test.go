package engine

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"refunds/internal/compliance/evaluator"
	"refunds/internal/compliance/metrics"
	"refunds/internal/compliance/models"
	"refunds/internal/compliance/providers"
	dErrors "refunds/pkg/domain-errors"
	"refunds/pkg/testutil"
)

type stubProvider struct {
	providerType models.ProviderType
	rules        []*models.Rule
	err          error
	delay        time.Duration
	calls        atomic.Int32
}

func (p *stubProvider) Type() models.ProviderType { return p.providerType }

func (p *stubProvider) FetchApplicableRules(ctx context.Context, _ *models.Context, _ time.Time) ([]*models.Rule, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.delay):
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.rules, nil
}

type EngineSuite struct {
	suite.Suite
	card       *stubProvider
	regulatory *stubProvider
	merchant   *stubProvider
	engine     *Engine
	ctx        context.Context
	cc         *models.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.card = &stubProvider{providerType: models.ProviderCardNetwork}
	s.regulatory = &stubProvider{providerType: models.ProviderRegulatory}
	s.merchant = &stubProvider{providerType: models.ProviderMerchant}
	s.engine = s.newEngine()
	s.ctx = testutil.ContextAt(testutil.ReferenceTime)
	s.cc = &models.Context{
		Transaction: models.Transaction{
			ID:            "txn_1",
			Amount:        decimal.NewFromInt(50),
			Currency:      "USD",
			ProcessedAt:   testutil.DaysAgo(130),
			CardNetwork:   "VISA",
			PaymentMethod: models.PaymentMethod{Type: "card", SupportsRefund: true},
		},
		MerchantID:   "mer_123",
		RefundMethod: models.MethodOriginalPayment,
		Amount:       decimal.NewFromInt(50),
		Currency:     "USD",
	}
}

func (s *EngineSuite) newEngine(opts ...Option) *Engine {
	opts = append([]Option{
		WithMetrics(metrics.NewWithRegisterer(prometheus.NewRegistry())),
		WithIDGenerator(func() string { return "eval_1" }),
	}, opts...)
	e, err := New([]providers.Provider{s.merchant, s.regulatory, s.card}, opts...)
	s.Require().NoError(err)
	return e
}

func newRule(id string, provider models.ProviderType, ruleType models.RuleType, evaluation, code string, severity models.Severity) *models.Rule {
	return &models.Rule{
		RuleID:           id,
		RuleType:         ruleType,
		ProviderType:     provider,
		Evaluation:       json.RawMessage(evaluation),
		ViolationCode:    code,
		ViolationMessage: code + " message",
		Severity:         severity,
		Remediation:      code + " remediation",
		EffectiveDate:    testutil.DaysAgo(365),
		Active:           true,
	}
}

// =============================================================================
// Scenarios
// =============================================================================

func (s *EngineSuite) TestVisaTimeLimitExceeded() {
	s.card.rules = []*models.Rule{
		newRule("visa_timeframe", models.ProviderCardNetwork, models.RuleTimeframe,
			`{"timeLimitDays":120}`, "REFUND_TIME_LIMIT_EXCEEDED", models.SeverityError),
	}

	result, err := s.engine.Evaluate(s.ctx, s.cc)
	s.Require().NoError(err)
	s.False(result.Compliant)
	s.Require().Len(result.Violations, 1)
	s.Equal("REFUND_TIME_LIMIT_EXCEEDED", result.Violations[0].Code)
	s.Equal("visa_timeframe", result.Violations[0].RuleID)
	s.Equal("eval_1", result.EvaluationID)
	s.True(result.EvaluatedAt.Equal(testutil.ReferenceTime))
}

func (s *EngineSuite) TestRegulatoryKYCThreshold() {
	s.regulatory.rules = []*models.Rule{
		newRule("reg_kyc", models.ProviderRegulatory, models.RuleAmount,
			`{"amountThreshold":10000,"currency":"USD"}`, "KYC_AML_REQUIRED", models.SeverityError),
	}
	s.cc.Transaction.Amount = decimal.NewFromInt(20000)
	s.cc.Transaction.ProcessedAt = testutil.DaysAgo(2)
	s.cc.Amount = decimal.NewFromInt(15000)

	result, err := s.engine.Evaluate(s.ctx, s.cc)
	s.Require().NoError(err)
	s.Require().Len(result.Violations, 1)
	s.Equal("KYC_AML_REQUIRED", result.Violations[0].Code)
	s.Equal(models.SeverityError, result.Violations[0].Severity)
	s.True(result.HasErrors())
}

func (s *EngineSuite) TestCompliantWhenNoRuleViolated() {
	s.card.rules = []*models.Rule{
		newRule("visa_timeframe", models.ProviderCardNetwork, models.RuleTimeframe,
			`{"timeLimitDays":180}`, "REFUND_TIME_LIMIT_EXCEEDED", models.SeverityError),
	}
	result, err := s.engine.Evaluate(s.ctx, s.cc)
	s.Require().NoError(err)
	s.True(result.Compliant)
	s.Empty(result.Violations)
	s.Equal(1, result.RulesEvaluated)
	s.Equal(1, result.RulesByProvider[models.ProviderCardNetwork])
	s.Equal(0, result.RulesByProvider[models.ProviderMerchant])
}

// =============================================================================
// Aggregation and ordering
// =============================================================================

func (s *EngineSuite) TestAggregatesAcrossProviders() {
	s.merchant.rules = []*models.Rule{
		newRule("mer_amount", models.ProviderMerchant, models.RuleAmount,
			`{"amountThreshold":10}`, "MERCHANT_LIMIT", models.SeverityWarning),
	}
	s.card.rules = []*models.Rule{
		newRule("visa_timeframe", models.ProviderCardNetwork, models.RuleTimeframe,
			`{"timeLimitDays":120}`, "REFUND_TIME_LIMIT_EXCEEDED", models.SeverityError),
	}

	result, err := s.engine.Evaluate(s.ctx, s.cc)
	s.Require().NoError(err)
	s.Equal([]string{"REFUND_TIME_LIMIT_EXCEEDED", "MERCHANT_LIMIT"}, result.Codes())
	s.True(result.HasWarnings())
	s.True(result.HasErrors())
}

func (s *EngineSuite) TestOrdersByRuleIDWithinProvider() {
	s.regulatory.rules = []*models.Rule{
		newRule("reg_c", models.ProviderRegulatory, models.RuleDocumentation, `{"documentationRequired":true}`, "C", models.SeverityWarning),
		newRule("reg_a", models.ProviderRegulatory, models.RuleDocumentation, `{"documentationRequired":true}`, "A", models.SeverityWarning),
		newRule("reg_b", models.ProviderRegulatory, models.RuleDocumentation, `{"documentationRequired":true}`, "B", models.SeverityWarning),
	}

	result, err := s.engine.Evaluate(s.ctx, s.cc)
	s.Require().NoError(err)
	s.Equal([]string{"A", "B", "C"}, result.Codes())
}

func (s *EngineSuite) TestIdempotent() {
	s.card.rules = []*models.Rule{
		newRule("visa_timeframe", models.ProviderCardNetwork, models.RuleTimeframe, `{"timeLimitDays":120}`, "T", models.SeverityError),
		newRule("visa_method", models.ProviderCardNetwork, models.RuleMethod, `{"allowedMethods":["BALANCE"]}`, "M", models.SeverityError),
	}
	s.merchant.rules = []*models.Rule{
		newRule("mer_docs", models.ProviderMerchant, models.RuleDocumentation, `{"documentationRequired":true}`, "D", models.SeverityWarning),
	}

	first, err := s.engine.Evaluate(s.ctx, s.cc)
	s.Require().NoError(err)
	second, err := s.engine.Evaluate(s.ctx, s.cc)
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *EngineSuite) TestUnevaluableRuleIsReported() {
	s.merchant.rules = []*models.Rule{
		newRule("mer_broken", models.ProviderMerchant, models.RuleType("VELOCITY"), `{"max":1}`, "X", models.SeverityWarning),
	}

	result, err := s.engine.Evaluate(s.ctx, s.cc)
	s.Require().NoError(err)
	s.False(result.Compliant)
	s.Require().Len(result.Violations, 1)
	s.Equal(evaluator.CodeUnevaluable, result.Violations[0].Code)
	s.Equal(models.SeverityError, result.Violations[0].Severity)
	s.Equal(models.ProviderMerchant, result.Violations[0].ProviderType)
}

func (s *EngineSuite) TestMisconfiguredRuleCannotHideBehindCondition() {
	broken := newRule("visa_broken", models.ProviderCardNetwork, models.RuleTimeframe, `{"days":30}`, "T", models.SeverityWarning)
	broken.Condition = json.RawMessage(`{"==":[{"var":"transaction.cardNetwork"},"MASTERCARD"]}`)
	s.card.rules = []*models.Rule{broken}

	result, err := s.engine.Evaluate(s.ctx, s.cc)
	s.Require().NoError(err)
	s.False(result.Compliant)
	s.Require().Len(result.Violations, 1)
	s.Equal(evaluator.CodeUnevaluable, result.Violations[0].Code)
	s.Equal(models.SeverityError, result.Violations[0].Severity)
	s.Equal("visa_broken", result.Violations[0].RuleID)
}

// =============================================================================
// Fail-closed
// =============================================================================

func (s *EngineSuite) TestRegulatoryTimeoutFailsClosed() {
	s.card.rules = []*models.Rule{
		newRule("visa_timeframe", models.ProviderCardNetwork, models.RuleTimeframe, `{"timeLimitDays":120}`, "T", models.SeverityError),
	}
	s.regulatory.delay = time.Second
	engine := s.newEngine(WithProviderTimeout(20 * time.Millisecond))

	result, err := engine.Evaluate(s.ctx, s.cc)
	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Equal(providers.ErrorTimeout, providers.GetCategory(err))
	s.True(providers.IsRetryable(err))
}

func (s *EngineSuite) TestProviderErrorFailsClosed() {
	s.merchant.err = errors.New("rule store unreachable")

	result, err := s.engine.Evaluate(s.ctx, s.cc)
	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Equal(providers.ErrorProviderOutage, providers.GetCategory(err))
}

func (s *EngineSuite) TestEvaluationTimeoutBoundsFanOut() {
	s.card.delay = time.Second
	engine := s.newEngine(WithEvaluationTimeout(20*time.Millisecond), WithProviderTimeout(time.Minute))

	_, err := engine.Evaluate(s.ctx, s.cc)
	s.Require().Error(err)
	s.Equal(providers.ErrorTimeout, providers.GetCategory(err))
}

func (s *EngineSuite) TestCallerCancellation() {
	s.card.delay = time.Second
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	result, err := s.engine.Evaluate(ctx, s.cc)
	s.Require().Error(err)
	s.Nil(result)
	s.ErrorIs(err, context.Canceled)
}

// =============================================================================
// Validation
// =============================================================================

func (s *EngineSuite) TestRejectsInvalidContextBeforeIO() {
	cases := map[string]func(c *models.Context){
		"missing merchant":  func(c *models.Context) { c.MerchantID = "" },
		"unknown method":    func(c *models.Context) { c.RefundMethod = "CHEQUE" },
		"negative amount":   func(c *models.Context) { c.Amount = decimal.NewFromInt(-1) },
		"missing processed": func(c *models.Context) { c.Transaction.ProcessedAt = time.Time{} },
	}
	for name, mutate := range cases {
		s.Run(name, func() {
			cc := *s.cc
			mutate(&cc)
			_, err := s.engine.Evaluate(s.ctx, &cc)
			s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		})
	}
	s.Zero(s.card.calls.Load() + s.regulatory.calls.Load() + s.merchant.calls.Load())

	_, err := s.engine.Evaluate(s.ctx, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *EngineSuite) TestNewValidation() {
	_, err := New(nil)
	s.Error(err)

	_, err = New([]providers.Provider{s.card, &stubProvider{providerType: models.ProviderCardNetwork}})
	s.Error(err)

	_, err = New([]providers.Provider{&stubProvider{providerType: "ISSUER"}})
	s.Error(err)
}

func TestSortViolations(t *testing.T) {
	vs := []models.Violation{
		{RuleID: "b", ProviderType: models.ProviderMerchant},
		{RuleID: "z", ProviderType: models.ProviderCardNetwork},
		{RuleID: "a", ProviderType: models.ProviderMerchant},
		{RuleID: "m", ProviderType: models.ProviderRegulatory},
	}
	SortViolations(vs)

	got := make([]string, 0, len(vs))
	for _, v := range vs {
		got = append(got, v.RuleID)
	}
	if want := []string{"z", "m", "a", "b"}; !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}
