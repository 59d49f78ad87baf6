package adapters

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"refunds/internal/platform/logger"
	"refunds/internal/refund/models"
)

// ApprovalQueue records approval requests in memory and logs them. It stands
// in for the external approval workflow.
type ApprovalQueue struct {
	mu      sync.Mutex
	pending map[string]models.ApprovalRequest
	order   []string
	logger  *slog.Logger
	newID   func() string
}

type ApprovalOption func(*ApprovalQueue)

func WithApprovalLogger(l *slog.Logger) ApprovalOption {
	return func(q *ApprovalQueue) {
		q.logger = l
	}
}

// WithApprovalIDs overrides the request id generator.
func WithApprovalIDs(gen func() string) ApprovalOption {
	return func(q *ApprovalQueue) {
		q.newID = gen
	}
}

func NewApprovalQueue(opts ...ApprovalOption) *ApprovalQueue {
	q := &ApprovalQueue{
		pending: make(map[string]models.ApprovalRequest),
		logger:  logger.Discard(),
		newID:   func() string { return "apr_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *ApprovalQueue) RequestApproval(ctx context.Context, req models.ApprovalRequest) (string, error) {
	id := q.newID()

	q.mu.Lock()
	q.pending[id] = req
	q.order = append(q.order, id)
	q.mu.Unlock()

	q.logger.InfoContext(ctx, "refund approval requested",
		"approval_request_id", id,
		"merchant_id", req.MerchantID,
		"transaction_id", req.TransactionID,
		"method", req.Method,
		"amount", req.Amount.String(),
		"currency", req.Currency,
		"reason", req.Reason,
		"evaluation_id", req.EvaluationID,
	)
	return id, nil
}

// Get returns a recorded request.
func (q *ApprovalQueue) Get(id string) (models.ApprovalRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	req, ok := q.pending[id]
	return req, ok
}

// Pending returns request ids in the order they were raised.
func (q *ApprovalQueue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.order...)
}
