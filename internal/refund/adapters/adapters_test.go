package adapters

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmodels "refunds/internal/compliance/models"
	pmodels "refunds/internal/parameter/models"
	"refunds/internal/refund/models"
	"refunds/pkg/platform/sentinel"
)

func newDirectory(t *testing.T) *MerchantDirectory {
	t.Helper()
	d := NewMerchantDirectory()
	require.NoError(t, d.Put(Merchant{
		ID:       "mer_123",
		Ancestry: pmodels.Ancestry{OrganizationID: "org_1", ProgramID: "prog_1", BankID: "bank_1"},
		Balances: map[string]decimal.Decimal{"usd": decimal.NewFromInt(100)},
		Accounts: []cmodels.BankAccount{
			{ID: "ba_1", Status: cmodels.AccountStatusActive, VerificationStatus: cmodels.VerificationVerified},
			{ID: "ba_2", Status: cmodels.AccountStatusInactive, VerificationStatus: cmodels.VerificationVerified},
		},
	}))
	require.NoError(t, d.Put(Merchant{ID: "mer_empty"}))
	return d
}

func TestMerchantDirectoryAncestry(t *testing.T) {
	d := newDirectory(t)
	ctx := context.Background()

	a, err := d.GetAncestry(ctx, "mer_123")
	require.NoError(t, err)
	assert.Equal(t, "prog_1", a.ProgramID)

	_, err = d.GetAncestry(ctx, "mer_unknown")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	assert.Error(t, d.Put(Merchant{ID: " "}))
}

func TestMerchantDirectoryBalance(t *testing.T) {
	d := newDirectory(t)
	ctx := context.Background()

	ok, err := d.HasSufficientBalance(ctx, "mer_123", decimal.NewFromInt(100), "USD")
	require.NoError(t, err)
	assert.True(t, ok, "balance equal to amount is sufficient")

	ok, err = d.HasSufficientBalance(ctx, "mer_123", decimal.RequireFromString("100.01"), "USD")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = d.HasSufficientBalance(ctx, "mer_123", decimal.NewFromInt(1), "EUR")
	require.NoError(t, err)
	assert.False(t, ok, "no balance in currency")

	_, err = d.HasSufficientBalance(ctx, "mer_unknown", decimal.NewFromInt(1), "USD")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMerchantDirectoryAccounts(t *testing.T) {
	d := newDirectory(t)
	ctx := context.Background()

	account, err := d.GetDefaultAccount(ctx, "mer_123")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "ba_1", account.ID, "first account is the default")

	account, err = d.FindAccount(ctx, "mer_123", "ba_2")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, cmodels.AccountStatusInactive, account.Status)

	account, err = d.FindAccount(ctx, "mer_123", "ba_9")
	require.NoError(t, err)
	assert.Nil(t, account)

	account, err = d.GetDefaultAccount(ctx, "mer_empty")
	require.NoError(t, err)
	assert.Nil(t, account)

	account, err = d.GetDefaultAccount(ctx, "mer_unknown")
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestApprovalQueue(t *testing.T) {
	n := 0
	q := NewApprovalQueue(WithApprovalIDs(func() string {
		n++
		return "apr_" + string(rune('0'+n))
	}))

	id, err := q.RequestApproval(context.Background(), models.ApprovalRequest{
		MerchantID:    "mer_123",
		TransactionID: "txn_1",
		Method:        cmodels.MethodBalance,
		Amount:        decimal.NewFromInt(5000),
		Currency:      "USD",
		Reason:        models.ReasonApprovalThreshold,
	})
	require.NoError(t, err)
	assert.Equal(t, "apr_1", id)

	req, ok := q.Get(id)
	require.True(t, ok)
	assert.Equal(t, "txn_1", req.TransactionID)
	assert.Equal(t, []string{"apr_1"}, q.Pending())

	_, ok = q.Get("apr_missing")
	assert.False(t, ok)
}
