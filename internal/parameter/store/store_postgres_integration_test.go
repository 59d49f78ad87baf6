//go:build integration

package store_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"refunds/internal/parameter/models"
	"refunds/internal/parameter/store"
	"refunds/pkg/testutil"
	"refunds/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.SQLStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewSQL(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.postgres.DB.ExecContext(context.Background(), "TRUNCATE parameters")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestVersionedLookup() {
	ctx := context.Background()
	for _, v := range []string{`["ORIGINAL_PAYMENT"]`, `["ORIGINAL_PAYMENT","BALANCE"]`} {
		s.Require().NoError(s.store.Insert(ctx, &models.Parameter{
			Name:          "allowedMethods",
			EntityType:    models.EntityOrganization,
			EntityID:      "org-1",
			DataType:      models.DataTypeArray,
			Value:         json.RawMessage(v),
			EffectiveDate: testutil.DaysAgo(3),
			Overridable:   true,
		}))
	}

	p, err := s.store.FindActiveParameter(ctx, "allowedMethods", models.EntityOrganization, "org-1", testutil.ReferenceTime)
	s.Require().NoError(err)
	s.Require().NotNil(p)
	s.Equal(2, p.Version)

	value, err := p.Decode()
	s.Require().NoError(err)
	methods, err := models.AsStrings(value)
	s.Require().NoError(err)
	s.Equal([]string{"ORIGINAL_PAYMENT", "BALANCE"}, methods)
}

func (s *PostgresStoreSuite) TestNoActiveVersion() {
	p, err := s.store.FindActiveParameter(context.Background(), "missing", models.EntitySystem, "", testutil.ReferenceTime)
	s.Require().NoError(err)
	s.Nil(p)
}
