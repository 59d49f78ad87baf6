package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	audit "refunds/pkg/platform/audit"
)

// Message is a single record read from the audit topic.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Partition int32
	Offset    int64
}

// Handler processes one message. A returned error means the message should
// be retried; malformed messages are logged and dropped with a nil error.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// StoreHandler materializes audit events into a store. The store must be
// idempotent on event id since redelivery is at-least-once.
type StoreHandler struct {
	store  audit.Store
	logger *slog.Logger
}

// NewStoreHandler creates a handler that appends every decoded event to store.
func NewStoreHandler(store audit.Store, logger *slog.Logger) *StoreHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StoreHandler{store: store, logger: logger}
}

// Handle decodes and persists a single audit event.
func (h *StoreHandler) Handle(ctx context.Context, msg *Message) error {
	var event audit.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.ErrorContext(ctx, "dropping malformed audit record",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}
	if event.Action == "" || event.MerchantID == "" {
		h.logger.ErrorContext(ctx, "dropping audit record without action or merchant",
			"event_id", event.ID,
			"offset", msg.Offset,
		)
		return nil
	}
	event.Normalize(time.Now())

	if err := h.store.Append(ctx, event); err != nil {
		return fmt.Errorf("store audit event %s: %w", event.ID, err)
	}
	h.logger.DebugContext(ctx, "stored audit event",
		"event_id", event.ID,
		"action", event.Action,
		"merchant_id", event.MerchantID,
	)
	return nil
}

// LogHandler records events at debug level without persisting them.
type LogHandler struct {
	logger *slog.Logger
}

func NewLogHandler(logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogHandler{logger: logger}
}

func (h *LogHandler) Handle(ctx context.Context, msg *Message) error {
	h.logger.DebugContext(ctx, "audit record",
		"action", msg.Headers["action"],
		"key", string(msg.Key),
		"offset", msg.Offset,
	)
	return nil
}
