package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"refunds/internal/compliance/models"
	"refunds/internal/compliance/ports/mocks"
	"refunds/pkg/platform/circuit"
	"refunds/pkg/testutil"
)

type ProvidersSuite struct {
	suite.Suite
	ctrl  *gomock.Controller
	store *mocks.MockRuleStore
	ctx   context.Context
	cc    *models.Context
}

func TestProvidersSuite(t *testing.T) {
	suite.Run(t, new(ProvidersSuite))
}

func (s *ProvidersSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockRuleStore(s.ctrl)
	s.ctx = context.Background()
	s.cc = &models.Context{
		MerchantID:   "mer_123",
		RefundMethod: models.MethodOriginalPayment,
		Transaction:  models.Transaction{CardNetwork: "visa", ProcessedAt: testutil.DaysAgo(10)},
	}
}

func rule(id string, active bool, effective time.Time) *models.Rule {
	return &models.Rule{RuleID: id, Active: active, EffectiveDate: effective}
}

// =============================================================================
// Scoping
// =============================================================================

func (s *ProvidersSuite) TestScopes() {
	s.Run("card network queries the normalized network", func() {
		s.store.EXPECT().
			FindActiveRules(gomock.Any(), models.ProviderCardNetwork, models.EntityCardNetwork, "VISA", testutil.ReferenceTime).
			Return([]*models.Rule{rule("visa_1", true, testutil.DaysAgo(1))}, nil)

		rules, err := NewCardNetwork(s.store).FetchApplicableRules(s.ctx, s.cc, testutil.ReferenceTime)
		s.Require().NoError(err)
		s.Len(rules, 1)
	})

	s.Run("card network contributes nothing without a network", func() {
		cc := *s.cc
		cc.Transaction.CardNetwork = " "
		rules, err := NewCardNetwork(s.store).FetchApplicableRules(s.ctx, &cc, testutil.ReferenceTime)
		s.Require().NoError(err)
		s.Empty(rules)
	})

	s.Run("regulatory queries the global scope", func() {
		s.store.EXPECT().
			FindActiveRules(gomock.Any(), models.ProviderRegulatory, models.EntityRegulatory, "global", testutil.ReferenceTime).
			Return(nil, nil)

		_, err := NewRegulatory(s.store).FetchApplicableRules(s.ctx, s.cc, testutil.ReferenceTime)
		s.Require().NoError(err)
	})

	s.Run("merchant queries the merchant id", func() {
		s.store.EXPECT().
			FindActiveRules(gomock.Any(), models.ProviderMerchant, models.EntityMerchant, "mer_123", testutil.ReferenceTime).
			Return(nil, nil)

		_, err := NewMerchant(s.store).FetchApplicableRules(s.ctx, s.cc, testutil.ReferenceTime)
		s.Require().NoError(err)
	})
}

func (s *ProvidersSuite) TestFiltersInapplicableRules() {
	s.store.EXPECT().
		FindActiveRules(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]*models.Rule{
			rule("inactive", false, testutil.DaysAgo(1)),
			rule("future", true, testutil.ReferenceTime.Add(time.Minute)),
			rule("current", true, testutil.ReferenceTime),
			nil,
		}, nil)

	rules, err := NewRegulatory(s.store).FetchApplicableRules(s.ctx, s.cc, testutil.ReferenceTime)
	s.Require().NoError(err)
	s.Require().Len(rules, 1)
	s.Equal("current", rules[0].RuleID)
}

// =============================================================================
// Failures
// =============================================================================

func (s *ProvidersSuite) TestStoreFailuresAreClassified() {
	s.Run("outage is retryable", func() {
		s.store.EXPECT().FindActiveRules(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("connection reset"))

		_, err := NewMerchant(s.store).FetchApplicableRules(s.ctx, s.cc, testutil.ReferenceTime)
		s.Require().Error(err)
		s.Equal(ErrorProviderOutage, GetCategory(err))
		s.True(IsRetryable(err))
	})

	s.Run("deadline is a timeout", func() {
		s.store.EXPECT().FindActiveRules(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("query: %w", context.DeadlineExceeded))

		_, err := NewMerchant(s.store).FetchApplicableRules(s.ctx, s.cc, testutil.ReferenceTime)
		s.Equal(ErrorTimeout, GetCategory(err))
		s.ErrorIs(err, context.DeadlineExceeded)
	})
}

func (s *ProvidersSuite) TestGuardedOpensAfterFailures() {
	now := testutil.ReferenceTime
	breaker := circuit.New("regulatory",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	guarded := NewGuarded(NewRegulatory(s.store), breaker, nil)
	s.Equal(models.ProviderRegulatory, guarded.Type())

	s.store.EXPECT().FindActiveRules(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("down")).Times(2)

	for range 2 {
		_, err := guarded.FetchApplicableRules(s.ctx, s.cc, now)
		s.Equal(ErrorProviderOutage, GetCategory(err))
	}
	s.True(breaker.IsOpen())

	s.Run("open circuit fails fast without calling the store", func() {
		_, err := guarded.FetchApplicableRules(s.ctx, s.cc, now)
		s.Equal(ErrorCircuitOpen, GetCategory(err))
		s.True(IsRetryable(err))
	})

	s.Run("probe after cooldown reaches the store", func() {
		now = now.Add(2 * time.Minute)
		s.store.EXPECT().FindActiveRules(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, nil)
		_, err := guarded.FetchApplicableRules(s.ctx, s.cc, now)
		s.NoError(err)
	})
}

func (s *ProvidersSuite) TestGuardedIgnoresCancellation() {
	breaker := circuit.New("merchant", circuit.WithFailureThreshold(1))
	guarded := NewGuarded(NewMerchant(s.store), breaker, nil)

	s.store.EXPECT().FindActiveRules(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, context.Canceled)

	_, err := guarded.FetchApplicableRules(s.ctx, s.cc, testutil.ReferenceTime)
	s.Require().Error(err)
	s.False(breaker.IsOpen())
}
