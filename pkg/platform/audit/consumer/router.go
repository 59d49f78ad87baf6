package consumer

import (
	"context"
	"log/slog"

	audit "refunds/pkg/platform/audit"
)

// CategoryHeader is the record header the publisher sets to the event category.
const CategoryHeader = "category"

// Router dispatches messages by event category so compliance decisions and
// operational events can land in different sinks.
type Router struct {
	handlers map[audit.EventCategory]Handler
	fallback Handler
	logger   *slog.Logger
}

// NewRouter creates a category router with an optional fallback handler.
func NewRouter(logger *slog.Logger, fallback Handler) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{
		handlers: make(map[audit.EventCategory]Handler),
		fallback: fallback,
		logger:   logger,
	}
}

// Register adds a handler for a category.
func (r *Router) Register(category audit.EventCategory, handler Handler) {
	r.handlers[category] = handler
}

// Handle routes the message to the handler registered for its category.
func (r *Router) Handle(ctx context.Context, msg *Message) error {
	category := audit.EventCategory(msg.Headers[CategoryHeader])
	handler, ok := r.handlers[category]
	if !ok {
		if r.fallback != nil {
			return r.fallback.Handle(ctx, msg)
		}
		r.logger.WarnContext(ctx, "no handler for audit category, skipping record",
			"category", category,
			"key", string(msg.Key),
		)
		return nil
	}
	return handler.Handle(ctx, msg)
}
