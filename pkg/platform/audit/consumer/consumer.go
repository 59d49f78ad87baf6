// Package consumer reads audit events back from Kafka and materializes them
// into durable storage.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	minRetryDelay = 100 * time.Millisecond
	maxRetryDelay = 5 * time.Second
)

// Consumer polls a topic as part of a consumer group and commits offsets
// only after every record in a fetch has been handled.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

// Option configures the Consumer.
type Option func(*Consumer)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New joins group and subscribes to topic. The client is owned by the Consumer.
func New(brokers []string, group, topic string, handler Handler, opts ...Option) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if group == "" || topic == "" {
		return nil, errors.New("consumer group and topic are required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	c := &Consumer{
		client:  client,
		handler: handler,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run polls until ctx is cancelled. It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if fetches.IsClientClosed() {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.WarnContext(ctx, "audit fetch failed",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		iter := fetches.RecordIter()
		for !iter.Done() {
			if err := c.handle(ctx, toMessage(iter.Next())); err != nil {
				return nil
			}
		}
		if err := c.client.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			c.logger.WarnContext(ctx, "audit offset commit failed", "error", err)
		}
	}
}

// handle retries a record with capped backoff until it succeeds or ctx ends.
func (c *Consumer) handle(ctx context.Context, msg *Message) error {
	delay := minRetryDelay
	for {
		err := c.handler.Handle(ctx, msg)
		if err == nil {
			return nil
		}
		c.logger.ErrorContext(ctx, "audit record handling failed, retrying",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"retry_in", delay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() {
	c.client.Close()
}

func toMessage(r *kgo.Record) *Message {
	headers := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     r.Topic,
		Key:       r.Key,
		Value:     r.Value,
		Headers:   headers,
		Partition: r.Partition,
		Offset:    r.Offset,
	}
}
