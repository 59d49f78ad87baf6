package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"refunds/internal/parameter/models"
	"refunds/internal/parameter/ports/mocks"
	"refunds/internal/parameter/store"
	dErrors "refunds/pkg/domain-errors"
	"refunds/pkg/platform/sentinel"
	"refunds/pkg/testutil"
)

const merchantID = "mer_123"

var ancestry = models.Ancestry{OrganizationID: "org_1", ProgramID: "prog_1", BankID: "bank_1"}

type ResolverSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	directory *mocks.MockMerchantDirectory
	store     *store.InMemoryStore
	resolver  *Resolver
	ctx       context.Context
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.directory = mocks.NewMockMerchantDirectory(s.ctrl)
	s.directory.EXPECT().GetAncestry(gomock.Any(), merchantID).Return(ancestry, nil).AnyTimes()
	s.store = store.NewInMemoryStore()
	s.ctx = testutil.ContextAt(testutil.ReferenceTime)

	var err error
	s.resolver, err = New(s.store, s.directory)
	s.Require().NoError(err)
}

func (s *ResolverSuite) put(name string, level models.EntityType, entityID string, dataType models.DataType, value string, overridable bool, effective time.Time) {
	s.Require().NoError(s.store.Insert(context.Background(), &models.Parameter{
		Name:          name,
		EntityType:    level,
		EntityID:      entityID,
		DataType:      dataType,
		Value:         json.RawMessage(value),
		EffectiveDate: effective,
		Overridable:   overridable,
	}))
}

func (s *ResolverSuite) resolveInt(name string) int {
	res, err := s.resolver.ResolveForMerchant(s.ctx, name, merchantID)
	s.Require().NoError(err)
	n, err := models.AsInt(res.Value)
	s.Require().NoError(err)
	return n
}

// =============================================================================
// Precedence
// =============================================================================

func (s *ResolverSuite) TestPrecedence() {
	s.Run("merchant value wins when every ancestor is overridable", func() {
		s.SetupTest()
		s.put("refundTimeLimit", models.EntitySystem, "", models.DataTypeNumber, "90", true, testutil.DaysAgo(365))
		s.put("refundTimeLimit", models.EntityMerchant, merchantID, models.DataTypeNumber, "30", true, testutil.DaysAgo(10))

		res, err := s.resolver.ResolveForMerchant(s.ctx, "refundTimeLimit", merchantID)
		s.Require().NoError(err)
		s.Equal(models.EntityMerchant, res.Level)
		s.False(res.Locked)
		s.Len(res.Candidates, 2)
		s.Equal(30, s.resolveInt("refundTimeLimit"))
	})

	s.Run("non-overridable system value beats merchant value", func() {
		s.SetupTest()
		s.put("refundTimeLimit", models.EntitySystem, "", models.DataTypeNumber, "90", false, testutil.DaysAgo(365))
		s.put("refundTimeLimit", models.EntityMerchant, merchantID, models.DataTypeNumber, "30", true, testutil.DaysAgo(10))

		res, err := s.resolver.ResolveForMerchant(s.ctx, "refundTimeLimit", merchantID)
		s.Require().NoError(err)
		s.Equal(models.EntitySystem, res.Level)
		s.True(res.Locked)
		s.Require().Len(res.Candidates, 2)
		s.Equal(models.EntityMerchant, res.Candidates[0].EntityType)
		s.Equal(90, s.resolveInt("refundTimeLimit"))
	})

	s.Run("least specific lock wins when several ancestors lock", func() {
		s.SetupTest()
		s.put("approvalThreshold", models.EntitySystem, "", models.DataTypeNumber, "10000", false, testutil.DaysAgo(365))
		s.put("approvalThreshold", models.EntityBank, "bank_1", models.DataTypeNumber, "5000", false, testutil.DaysAgo(365))
		s.put("approvalThreshold", models.EntityOrganization, "org_1", models.DataTypeNumber, "2500", true, testutil.DaysAgo(30))

		res, err := s.resolver.ResolveForMerchant(s.ctx, "approvalThreshold", merchantID)
		s.Require().NoError(err)
		s.Equal(models.EntitySystem, res.Level)
		s.True(res.Locked)

		var levels []models.EntityType
		for _, c := range res.Candidates {
			levels = append(levels, c.EntityType)
		}
		s.Equal([]models.EntityType{models.EntityOrganization, models.EntityBank, models.EntitySystem}, levels)
		s.JSONEq("2500", string(res.Candidates[0].Value))
	})

	s.Run("intermediate level wins over system when no merchant value", func() {
		s.SetupTest()
		s.put("allowedMethods", models.EntitySystem, "", models.DataTypeArray, `["ORIGINAL_PAYMENT"]`, true, testutil.DaysAgo(365))
		s.put("allowedMethods", models.EntityProgram, "prog_1", models.DataTypeArray, `["ORIGINAL_PAYMENT","BALANCE"]`, true, testutil.DaysAgo(30))

		methods, found, err := Strings(s.ctx, s.resolver, "allowedMethods", merchantID)
		s.Require().NoError(err)
		s.True(found)
		s.Equal([]string{"ORIGINAL_PAYMENT", "BALANCE"}, methods)
	})

	s.Run("non-overridable value without a more specific candidate is not locked", func() {
		s.SetupTest()
		s.put("refundTimeLimit", models.EntityBank, "bank_1", models.DataTypeNumber, "60", false, testutil.DaysAgo(30))

		res, err := s.resolver.ResolveForMerchant(s.ctx, "refundTimeLimit", merchantID)
		s.Require().NoError(err)
		s.Equal(models.EntityBank, res.Level)
		s.False(res.Locked)
	})

	s.Run("levels missing from the ancestry are skipped", func() {
		s.SetupTest()
		s.put("refundTimeLimit", models.EntityOrganization, "org_other", models.DataTypeNumber, "7", true, testutil.DaysAgo(30))
		s.put("refundTimeLimit", models.EntitySystem, "", models.DataTypeNumber, "90", true, testutil.DaysAgo(365))

		res, err := s.resolver.Resolve(s.ctx, "refundTimeLimit", models.Scope{MerchantID: merchantID})
		s.Require().NoError(err)
		s.Equal(models.EntitySystem, res.Level)
	})
}

// =============================================================================
// Versioning and time windows
// =============================================================================

func (s *ResolverSuite) TestVersioning() {
	s.put("refundTimeLimit", models.EntityMerchant, merchantID, models.DataTypeNumber, "60", true, testutil.DaysAgo(30))
	s.put("refundTimeLimit", models.EntityMerchant, merchantID, models.DataTypeNumber, "120", true, testutil.ReferenceTime.AddDate(0, 0, 5))

	s.Run("before v2 is effective v1 applies", func() {
		s.ctx = testutil.ContextAt(testutil.ReferenceTime)
		s.Equal(60, s.resolveInt("refundTimeLimit"))
	})

	s.Run("at v2 effective date v2 applies", func() {
		s.ctx = testutil.ContextAt(testutil.ReferenceTime.AddDate(0, 0, 5))
		s.Equal(120, s.resolveInt("refundTimeLimit"))
	})
}

func (s *ResolverSuite) TestExpiration() {
	expired := testutil.DaysAgo(1)
	s.Require().NoError(s.store.Insert(context.Background(), &models.Parameter{
		Name:           "refundTimeLimit",
		EntityType:     models.EntityMerchant,
		EntityID:       merchantID,
		DataType:       models.DataTypeNumber,
		Value:          json.RawMessage("15"),
		EffectiveDate:  testutil.DaysAgo(60),
		ExpirationDate: &expired,
		Overridable:    true,
	}))

	s.Run("expired merchant value falls back to ancestor", func() {
		s.put("refundTimeLimit", models.EntitySystem, "", models.DataTypeNumber, "90", true, testutil.DaysAgo(365))
		s.Equal(90, s.resolveInt("refundTimeLimit"))
	})

	s.Run("fallback is used when nothing is active", func() {
		n, err := Int(s.ctx, s.resolver, "unknownLimit", merchantID, 42)
		s.Require().NoError(err)
		s.Equal(42, n)
	})
}

func (s *ResolverSuite) TestNotFound() {
	_, err := s.resolver.ResolveForMerchant(s.ctx, "refundTimeLimit", merchantID)
	s.Require().ErrorIs(err, ErrParameterNotFound)

	_, found, err := Strings(s.ctx, s.resolver, "allowedMethods", merchantID)
	s.Require().NoError(err)
	s.False(found)

	v, err := ResolveWithDefault(s.ctx, s.resolver, "refundTimeLimit", merchantID, models.StringValue("fallback"))
	s.Require().NoError(err)
	s.Equal(models.StringValue("fallback"), v)
}

// =============================================================================
// Errors
// =============================================================================

func (s *ResolverSuite) TestMalformedValue() {
	s.Run("value that does not match its data type is a config error", func() {
		s.SetupTest()
		s.put("refundTimeLimit", models.EntityMerchant, merchantID, models.DataTypeNumber, `"ninety"`, true, testutil.DaysAgo(1))

		_, err := s.resolver.ResolveForMerchant(s.ctx, "refundTimeLimit", merchantID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidConfig))
		s.ErrorIs(err, models.ErrMalformedValue)
	})

	s.Run("typed accessor rejects a well-formed value of another type", func() {
		s.SetupTest()
		s.put("refundTimeLimit", models.EntityMerchant, merchantID, models.DataTypeString, `"90"`, true, testutil.DaysAgo(1))

		_, err := Int(s.ctx, s.resolver, "refundTimeLimit", merchantID, 90)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidConfig))
	})
}

func (s *ResolverSuite) TestStoreUnavailable() {
	failing := mocks.NewMockStore(s.ctrl)
	failing.EXPECT().
		FindActiveParameter(gomock.Any(), "refundTimeLimit", models.EntitySystem, "", gomock.Any()).
		Return(nil, errors.New("connection refused"))

	resolver, err := New(failing, s.directory)
	s.Require().NoError(err)

	_, err = resolver.ResolveForMerchant(s.ctx, "refundTimeLimit", merchantID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.NotErrorIs(err, ErrParameterNotFound)
}

func (s *ResolverSuite) TestStoreTimeout() {
	slow := mocks.NewMockStore(s.ctrl)
	slow.EXPECT().
		FindActiveParameter(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ models.EntityType, _ string, _ time.Time) (*models.Parameter, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	resolver, err := New(slow, s.directory, WithStoreTimeout(10*time.Millisecond))
	s.Require().NoError(err)

	_, err = resolver.ResolveForMerchant(s.ctx, "refundTimeLimit", merchantID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.ErrorIs(err, context.DeadlineExceeded)
}

func (s *ResolverSuite) TestValidation() {
	s.Run("empty merchant id is rejected before any lookup", func() {
		_, err := s.resolver.ResolveForMerchant(s.ctx, "refundTimeLimit", " ")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("empty parameter name is rejected", func() {
		_, err := s.resolver.ResolveForMerchant(s.ctx, "", merchantID)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown merchant is not found", func() {
		s.directory.EXPECT().GetAncestry(gomock.Any(), "mer_missing").
			Return(models.Ancestry{}, fmt.Errorf("merchant mer_missing: %w", sentinel.ErrNotFound))
		_, err := s.resolver.ResolveForMerchant(s.ctx, "refundTimeLimit", "mer_missing")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestNewRequiresDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, err := New(nil, mocks.NewMockMerchantDirectory(ctrl))
	if err == nil {
		t.Fatal("expected error for missing store")
	}
	_, err = New(store.NewInMemoryStore(), nil)
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

// =============================================================================
// Typed accessors
// =============================================================================

func (s *ResolverSuite) TestTypedAccessors() {
	past := testutil.DaysAgo(30)
	s.put(ParamAllowedMethods, models.EntitySystem, "", models.DataTypeArray, `["ORIGINAL_PAYMENT","BALANCE"]`, true, past)
	s.put(ParamRefundTimeLimit, models.EntityOrganization, "org_1", models.DataTypeNumber, `60`, true, past)
	s.put(ParamApprovalThreshold, models.EntityMerchant, merchantID, models.DataTypeNumber, `2500.50`, true, past)
	s.put("manualReview", models.EntityBank, "bank_1", models.DataTypeBool, `true`, true, past)
	s.put("label", models.EntitySystem, "", models.DataTypeString, `"refunds"`, true, past)

	s.Run("strings", func() {
		got, found, err := Strings(s.ctx, s.resolver, ParamAllowedMethods, merchantID)
		s.Require().NoError(err)
		s.True(found)
		s.Equal([]string{"ORIGINAL_PAYMENT", "BALANCE"}, got)
	})

	s.Run("missing strings are not found", func() {
		got, found, err := Strings(s.ctx, s.resolver, "blockedMethods", merchantID)
		s.Require().NoError(err)
		s.False(found)
		s.Nil(got)
	})

	s.Run("int with fallback", func() {
		n, err := Int(s.ctx, s.resolver, ParamRefundTimeLimit, merchantID, 90)
		s.Require().NoError(err)
		s.Equal(60, n)

		n, err = Int(s.ctx, s.resolver, "chargebackWindow", merchantID, 90)
		s.Require().NoError(err)
		s.Equal(90, n)
	})

	s.Run("decimal", func() {
		d, found, err := Decimal(s.ctx, s.resolver, ParamApprovalThreshold, merchantID)
		s.Require().NoError(err)
		s.True(found)
		s.Equal("2500.5", d.String())
	})

	s.Run("bool with fallback", func() {
		b, err := Bool(s.ctx, s.resolver, "manualReview", merchantID, false)
		s.Require().NoError(err)
		s.True(b)
	})

	s.Run("type mismatch is a configuration error", func() {
		_, err := Int(s.ctx, s.resolver, "label", merchantID, 0)
		s.Equal(dErrors.CodeInvalidConfig, dErrors.GetCode(err))

		_, _, err = Strings(s.ctx, s.resolver, ParamRefundTimeLimit, merchantID)
		s.Equal(dErrors.CodeInvalidConfig, dErrors.GetCode(err))
	})

	s.Run("resolve with default", func() {
		def := models.StringValue("fallback")
		v, err := ResolveWithDefault(s.ctx, s.resolver, "missing", merchantID, def)
		s.Require().NoError(err)
		s.Equal(def, v)

		v, err = ResolveWithDefault(s.ctx, s.resolver, "label", merchantID, def)
		s.Require().NoError(err)
		s.Equal(models.StringValue("refunds"), v)
	})
}
