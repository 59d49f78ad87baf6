// Package worker decouples audit emission from the request path. Emit
// enqueues onto a bounded channel and Run drains it into the next publisher.
package worker

import (
	"context"
	"errors"
	"log/slog"

	audit "refunds/pkg/platform/audit"
)

// ErrQueueFull is returned by Emit when the buffer has no room.
var ErrQueueFull = errors.New("audit queue full")

const defaultBuffer = 1024

// Worker is an audit.Publisher that forwards events asynchronously.
type Worker struct {
	next   audit.Publisher
	inbox  chan audit.Event
	logger *slog.Logger
}

// Option configures the Worker.
type Option func(*Worker)

// WithBuffer sets the queue capacity.
func WithBuffer(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.inbox = make(chan audit.Event, size)
		}
	}
}

// WithLogger sets a logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func NewWorker(next audit.Publisher, opts ...Option) *Worker {
	w := &Worker{
		next:   next,
		inbox:  make(chan audit.Event, defaultBuffer),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Emit enqueues event without blocking.
func (w *Worker) Emit(_ context.Context, event audit.Event) error {
	select {
	case w.inbox <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run forwards queued events until ctx is cancelled, then drains what is
// already buffered using a context that is no longer cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain(context.WithoutCancel(ctx))
			return nil
		case event := <-w.inbox:
			w.forward(ctx, event)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case event := <-w.inbox:
			w.forward(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) forward(ctx context.Context, event audit.Event) {
	if err := w.next.Emit(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "audit delivery failed",
			"action", event.Action,
			"merchant_id", event.MerchantID,
			"error", err,
		)
	}
}
