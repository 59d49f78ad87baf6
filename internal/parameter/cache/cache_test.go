package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"refunds/internal/parameter/models"
	"refunds/internal/parameter/service"
	"refunds/pkg/testutil"
)

type countingSource struct {
	calls atomic.Int32
	res   *models.Resolution
	err   error
}

func (c *countingSource) ResolveForMerchant(_ context.Context, _, _ string) (*models.Resolution, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.res, nil
}

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("backend down")
}

func (failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend down")
}

type CacheSuite struct {
	suite.Suite
	source *countingSource
	memory *Memory
	now    time.Time
	cache  *Resolver
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupTest() {
	param := &models.Parameter{
		Name:          "refundTimeLimit",
		EntityType:    models.EntityBank,
		EntityID:      "bank_1",
		DataType:      models.DataTypeNumber,
		Value:         json.RawMessage("60"),
		Version:       3,
		EffectiveDate: testutil.DaysAgo(10),
	}
	s.source = &countingSource{res: &models.Resolution{
		Name:       "refundTimeLimit",
		Value:      models.NumberValue{},
		Parameter:  param,
		Level:      models.EntityBank,
		Candidates: []*models.Parameter{param},
		AsOf:       testutil.ReferenceTime,
	}}
	s.now = testutil.ReferenceTime
	s.memory = NewMemoryWithClock(func() time.Time { return s.now })

	var err error
	s.cache, err = New(s.source, s.memory, 30*time.Second, WithGranularity(time.Minute))
	s.Require().NoError(err)
}

func (s *CacheSuite) TestHitAvoidsSource() {
	ctx := testutil.ContextAt(testutil.ReferenceTime)

	first, err := s.cache.ResolveForMerchant(ctx, "refundTimeLimit", "mer_1")
	s.Require().NoError(err)
	second, err := s.cache.ResolveForMerchant(ctx, "refundTimeLimit", "mer_1")
	s.Require().NoError(err)

	s.Equal(int32(1), s.source.calls.Load())
	s.Equal(first.Level, second.Level)
	s.Equal(3, second.Parameter.Version)

	n, err := models.AsInt(second.Value)
	s.Require().NoError(err)
	s.Equal(60, n)
}

func (s *CacheSuite) TestKeyedByMerchantAndTime() {
	s.Run("different merchants miss", func() {
		ctx := testutil.ContextAt(testutil.ReferenceTime)
		_, _ = s.cache.ResolveForMerchant(ctx, "refundTimeLimit", "mer_1")
		_, _ = s.cache.ResolveForMerchant(ctx, "refundTimeLimit", "mer_2")
		s.Equal(int32(2), s.source.calls.Load())
	})

	s.Run("a later time bucket misses", func() {
		s.SetupTest()
		_, _ = s.cache.ResolveForMerchant(testutil.ContextAt(testutil.ReferenceTime), "refundTimeLimit", "mer_1")
		_, _ = s.cache.ResolveForMerchant(testutil.ContextAt(testutil.ReferenceTime.Add(2*time.Minute)), "refundTimeLimit", "mer_1")
		s.Equal(int32(2), s.source.calls.Load())
	})
}

func (s *CacheSuite) TestEntriesExpire() {
	ctx := testutil.ContextAt(testutil.ReferenceTime)
	_, _ = s.cache.ResolveForMerchant(ctx, "refundTimeLimit", "mer_1")

	s.now = s.now.Add(31 * time.Second)
	_, _ = s.cache.ResolveForMerchant(ctx, "refundTimeLimit", "mer_1")
	s.Equal(int32(2), s.source.calls.Load())
}

func (s *CacheSuite) TestNotFoundIsNotCached() {
	s.source.err = service.ErrParameterNotFound
	ctx := testutil.ContextAt(testutil.ReferenceTime)

	for range 2 {
		_, err := s.cache.ResolveForMerchant(ctx, "refundTimeLimit", "mer_1")
		s.ErrorIs(err, service.ErrParameterNotFound)
	}
	s.Equal(int32(2), s.source.calls.Load())
	s.Zero(s.memory.Len())
}

func (s *CacheSuite) TestBackendFailureFallsThrough() {
	cache, err := New(s.source, failingBackend{}, time.Minute)
	s.Require().NoError(err)

	res, err := cache.ResolveForMerchant(testutil.ContextAt(testutil.ReferenceTime), "refundTimeLimit", "mer_1")
	s.Require().NoError(err)
	s.Equal(models.EntityBank, res.Level)
}

func (s *CacheSuite) TestConstructorValidation() {
	_, err := New(nil, s.memory, time.Minute)
	s.Error(err)
	_, err = New(s.source, nil, time.Minute)
	s.Error(err)
	_, err = New(s.source, s.memory, 0)
	s.Error(err)
}
