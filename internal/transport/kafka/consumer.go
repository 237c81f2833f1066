// Package kafka consumes TERCC events from a Kafka topic and feeds them to
// the dispatcher, one message processed to completion at a time.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/lei/suite-starter/internal/metrics"
	"github.com/lei/suite-starter/internal/models"
	"github.com/lei/suite-starter/pkg/logger"
)

const (
	minBytes       = 1
	maxBytes       = 10 << 20
	commitInterval = 0 // synchronous commits; one event, one commit
	maxWait        = 3 * time.Second
)

// Handler is the per-event callback. The boolean mirrors the dispatcher
// contract; the consumer commits the message either way and never retries.
type Handler func(ctx context.Context, event models.Event) (bool, error)

// Consumer reads TERCC events from a topic within a consumer group
type Consumer struct {
	reader  *kafka.Reader
	metrics metrics.Sink // optional, nil = disabled
	logger  *logger.Logger
}

// NewConsumer creates a consumer for the given brokers, topic and group
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       minBytes,
		MaxBytes:       maxBytes,
		MaxWait:        maxWait,
		CommitInterval: commitInterval,
		Logger:         kafka.LoggerFunc(log.Debugf),
		ErrorLogger:    kafka.LoggerFunc(log.Errorf),
	})

	return &Consumer{reader: reader, logger: log}
}

// WithMetrics attaches a metrics sink to the consumer
func (c *Consumer) WithMetrics(sink metrics.Sink) *Consumer {
	c.metrics = sink
	return c
}

// Run consumes messages until the context is cancelled. Each message is
// decoded, handled and committed before the next is fetched; undecodable
// messages are logged, counted and committed so they are not redelivered
// forever.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	c.logger.Info("transport: consuming tercc events",
		"topic", c.reader.Config().Topic,
		"group_id", c.reader.Config().GroupID)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		c.handle(ctx, msg, handler)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit message: %w", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, handler Handler) {
	var event models.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Warn("transport: discarding undecodable message",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err)
		if c.metrics != nil {
			c.metrics.EventRejected(metrics.RejectDecode)
		}
		return
	}

	submitted, err := handler(ctx, event)
	if err != nil {
		// No internal retry: the failure is logged and the message is
		// committed. The correlation id in the logs is the recovery handle.
		c.logger.Error("transport: event handling failed",
			"event_id", event.Meta.ID,
			"error", err)
		return
	}
	if !submitted {
		c.logger.Debug("transport: event rejected by dispatcher",
			"event_id", event.Meta.ID)
	}
}

// Close shuts down the underlying reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
