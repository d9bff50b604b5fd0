// Package kafka wraps segmentio/kafka-go for the search analytics stream:
// a batching JSON producer and a typed JSON consumer.
package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
	"github.com/segmentio/kafka-go"
)

const (
	minFetchBackoff = 100 * time.Millisecond
	maxFetchBackoff = 5 * time.Second
)

// messageReader is the part of *kafka.Reader the consume loop uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer decodes every message on a topic into T and hands it to a
// handler. Messages that are not valid JSON for T are skipped and committed.
// A handler error is logged and the message is left uncommitted.
type Consumer[T any] struct {
	reader  messageReader
	handle  func(ctx context.Context, event T) error
	logger  *slog.Logger
	skipped atomic.Int64
}

func NewConsumer[T any](cfg config.KafkaConfig, topic string, handle func(ctx context.Context, event T) error) *Consumer[T] {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    1e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
	})
	return newConsumer(r, topic, handle)
}

func newConsumer[T any](r messageReader, topic string, handle func(ctx context.Context, event T) error) *Consumer[T] {
	return &Consumer[T]{
		reader: r,
		handle: handle,
		logger: logger.WithComponent("kafka-consumer").With("topic", topic),
	}
}

// Run consumes until ctx is cancelled and closes the reader before
// returning. Fetch failures back off from 100ms up to 5s.
func (c *Consumer[T]) Run(ctx context.Context) error {
	c.logger.Info("consumer started")
	backoff := minFetchBackoff
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err(), "skipped", c.skipped.Load())
				return c.reader.Close()
			}
			c.logger.Error("failed to fetch message", "error", err, "retry_in", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
			backoff = min(2*backoff, maxFetchBackoff)
			continue
		}
		backoff = minFetchBackoff

		if !c.deliver(ctx, msg) {
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit message", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}

// Skipped is the number of undecodable messages seen so far.
func (c *Consumer[T]) Skipped() int64 {
	return c.skipped.Load()
}

// deliver reports whether msg is done with and may be committed.
func (c *Consumer[T]) deliver(ctx context.Context, msg kafka.Message) bool {
	var event T
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.skipped.Add(1)
		c.logger.Warn("skipping undecodable message",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"error", err,
		)
		return true
	}
	if err := c.handle(ctx, event); err != nil {
		c.logger.Error("failed to handle message",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return false
	}
	return true
}
