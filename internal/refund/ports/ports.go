//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// Package ports defines the collaborators the refund validator consumes.
package ports

import (
	"context"

	"github.com/shopspring/decimal"

	cmodels "refunds/internal/compliance/models"
	pmodels "refunds/internal/parameter/models"
	"refunds/internal/refund/models"
	"refunds/pkg/platform/audit"
)

// ParameterSource resolves merchant-scoped configuration.
type ParameterSource interface {
	ResolveForMerchant(ctx context.Context, name, merchantID string) (*pmodels.Resolution, error)
}

// ComplianceEvaluator produces a full violation report for a refund.
type ComplianceEvaluator interface {
	Evaluate(ctx context.Context, c *cmodels.Context) (*cmodels.Result, error)
}

// BalanceService reports whether a merchant can fund a refund from its balance.
type BalanceService interface {
	HasSufficientBalance(ctx context.Context, merchantID string, amount decimal.Decimal, currency string) (bool, error)
}

// BankAccountDirectory looks up merchant payout accounts. Both methods return
// nil, nil when no account exists.
type BankAccountDirectory interface {
	GetDefaultAccount(ctx context.Context, merchantID string) (*cmodels.BankAccount, error)
	FindAccount(ctx context.Context, merchantID, accountID string) (*cmodels.BankAccount, error)
}

// ApprovalRequester escalates refunds to the approval workflow and returns the
// approval request id.
type ApprovalRequester interface {
	RequestApproval(ctx context.Context, req models.ApprovalRequest) (string, error)
}

// AuditPublisher records decisions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
