// Package consumer runs a Kafka consumer group and hands records to a
// Handler one at a time.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is one consumed record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
}

// Handler processes one message. Returning an error leaves the offset
// uncommitted and stops the consumer, so the message is redelivered when the
// group resumes; return nil for messages that were understood and
// deliberately skipped.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Consumer polls a consumer group and commits offsets only after the handler
// succeeds, giving at-least-once delivery.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
	commit  func(ctx context.Context, record *kgo.Record) error
}

func New(brokers []string, group string, topics []string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	c := &Consumer{client: client, handler: handler, logger: logger}
	c.commit = func(ctx context.Context, record *kgo.Record) error {
		return client.CommitRecords(ctx, record)
	}
	return c, nil
}

// Run polls until the context is cancelled. A handler failure stops the
// consumer with the error: the client's in-memory position would otherwise
// advance past the failed record, so the only way to see it again is to
// restart the group from the last committed offset.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})
		if err := c.process(ctx, fetches); err != nil {
			return err
		}
	}
}

// process handles fetched records in order, committing each offset once its
// handler succeeds. The first failure aborts the batch before any later
// offset can be committed past the failed record.
func (c *Consumer) process(ctx context.Context, fetches kgo.Fetches) error {
	iter := fetches.RecordIter()
	for !iter.Done() {
		record := iter.Next()
		if err := c.handler.Handle(ctx, toMessage(record)); err != nil {
			c.logger.ErrorContext(ctx, "message handling failed, stopping for redelivery",
				"topic", record.Topic,
				"partition", record.Partition,
				"offset", record.Offset,
				"error", err,
			)
			return fmt.Errorf("handle %s[%d] offset %d: %w",
				record.Topic, record.Partition, record.Offset, err)
		}
		if err := c.commit(ctx, record); err != nil {
			return fmt.Errorf("commit %s[%d] offset %d: %w",
				record.Topic, record.Partition, record.Offset, err)
		}
	}
	return nil
}

func toMessage(record *kgo.Record) *Message {
	headers := make(map[string]string, len(record.Headers))
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     record.Topic,
		Partition: record.Partition,
		Offset:    record.Offset,
		Key:       record.Key,
		Value:     record.Value,
		Headers:   headers,
	}
}

func (c *Consumer) Close() {
	c.client.Close()
}
