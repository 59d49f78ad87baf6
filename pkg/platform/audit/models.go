package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers refund decisions and anything else with
	// regulatory significance. These require long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational visibility.
	CategoryOperations EventCategory = "operations"
)

// AuditEvent names an action recorded in the audit trail.
type AuditEvent string

const (
	EventRefundMethodValidated AuditEvent = "refund_method_validated"
	EventRefundMethodSelected  AuditEvent = "refund_method_selected"
	EventComplianceEvaluated   AuditEvent = "compliance_evaluated"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventRefundMethodValidated: CategoryCompliance,
	EventRefundMethodSelected:  CategoryCompliance,
	EventComplianceEvaluated:   CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         uuid.UUID     `json:"id"`
	Category   EventCategory `json:"category"`
	Timestamp  time.Time     `json:"timestamp"`
	Action     AuditEvent    `json:"action"`
	MerchantID string        `json:"merchant_id"`
	// Subject is the transaction the decision was made for.
	Subject  string `json:"subject"`
	Method   string `json:"method,omitempty"`
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
	// ViolationCodes lists every violation code attached to the decision, in engine order.
	ViolationCodes []string `json:"violation_codes,omitempty"`
	EvaluationID   string   `json:"evaluation_id,omitempty"`
	RequestID      string   `json:"request_id,omitempty"`
}

// Normalize fills the id, category and timestamp when unset.
func (e *Event) Normalize(now time.Time) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Category == "" {
		e.Category = e.Action.Category()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
}

// Publisher emits audit events to a sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByMerchant(ctx context.Context, merchantID string) ([]Event, error)
}
