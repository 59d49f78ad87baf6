package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"refunds/internal/parameter/models"
	"refunds/internal/parameter/ports/mocks"
	"refunds/internal/parameter/service"
	"refunds/internal/parameter/store"
	"refunds/internal/platform/logger"
	"refunds/pkg/platform/sentinel"
	"refunds/pkg/testutil"
)

func newRouter(t *testing.T) (http.Handler, *store.InMemoryStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	directory := mocks.NewMockMerchantDirectory(ctrl)
	directory.EXPECT().GetAncestry(gomock.Any(), "mer_123").
		Return(models.Ancestry{OrganizationID: "org_1"}, nil).AnyTimes()
	directory.EXPECT().GetAncestry(gomock.Any(), "mer_unknown").
		Return(models.Ancestry{}, fmt.Errorf("merchant mer_unknown: %w", sentinel.ErrNotFound)).AnyTimes()

	st := store.NewInMemoryStore()
	resolver, err := service.New(st, directory)
	require.NoError(t, err)

	r := chi.NewRouter()
	New(resolver, logger.Discard()).Register(r)
	return r, st
}

func insert(t *testing.T, st *store.InMemoryStore, level models.EntityType, entityID, value string, effective time.Time) {
	t.Helper()
	require.NoError(t, st.Insert(context.Background(), &models.Parameter{
		Name:          "refundTimeLimit",
		EntityType:    level,
		EntityID:      entityID,
		DataType:      models.DataTypeNumber,
		Value:         json.RawMessage(value),
		EffectiveDate: effective,
		Overridable:   true,
	}))
}

func TestHandleResolve(t *testing.T) {
	router, st := newRouter(t)
	insert(t, st, models.EntitySystem, "", "90", time.Now().AddDate(-1, 0, 0))
	insert(t, st, models.EntityOrganization, "org_1", "60", time.Now().AddDate(0, 0, -10))

	t.Run("resolves the most specific value", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/parameters/refundTimeLimit?merchant_id=mer_123"))
		testutil.AssertStatusOK(t, rr)

		resp := testutil.UnmarshalResponse[ResolutionResponse](t, rr)
		assert.Equal(t, "refundTimeLimit", resp.Name)
		assert.JSONEq(t, "60", string(resp.Value))
		assert.Equal(t, "ORGANIZATION", resp.Level)
		assert.Equal(t, "org_1", resp.EntityID)
		assert.Equal(t, "NUMBER", resp.DataType)
		assert.Equal(t, 1, resp.Version)
		assert.False(t, resp.Locked)
	})

	t.Run("as_of selects the value active at that instant", func(t *testing.T) {
		asOf := time.Now().AddDate(0, 0, -30).UTC().Format(time.RFC3339)
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/parameters/refundTimeLimit?merchant_id=mer_123&as_of="+asOf))
		testutil.AssertStatusOK(t, rr)

		resp := testutil.UnmarshalResponse[ResolutionResponse](t, rr)
		assert.JSONEq(t, "90", string(resp.Value))
		assert.Equal(t, "SYSTEM", resp.Level)
	})

	t.Run("malformed as_of", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/parameters/refundTimeLimit?merchant_id=mer_123&as_of=yesterday"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})

	t.Run("undefined parameter", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/parameters/unknownSetting?merchant_id=mer_123"))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("unknown merchant", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/parameters/refundTimeLimit?merchant_id=mer_unknown"))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("missing merchant id", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/parameters/refundTimeLimit"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}
