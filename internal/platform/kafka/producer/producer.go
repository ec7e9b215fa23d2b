// Package producer publishes records to the domain event topic.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer writes domain events to one Kafka topic. Every record carries an
// eventType header so consumers can filter without decoding payloads.
type Producer struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func New(brokers []string, topic string, logger *slog.Logger) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RecordRetries(5),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{client: client, topic: topic, logger: logger}, nil
}

// Publish produces one record synchronously. Keying by person identifier
// keeps all events for a person in order on one partition.
func (p *Producer) Publish(ctx context.Context, eventType string, key, payload []byte) error {
	record := &kgo.Record{
		Topic: p.topic,
		Key:   key,
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "eventType", Value: []byte(eventType)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", p.topic, err)
	}
	return nil
}

// EnsureTopic creates the topic when it does not exist yet. Intended for
// local and test environments; production topics are provisioned separately.
func (p *Producer) EnsureTopic(ctx context.Context, partitions int32, replicas int16) error {
	adm := kadm.NewClient(p.client)
	_, err := adm.CreateTopic(ctx, partitions, replicas, nil, p.topic)
	if err != nil {
		if errors.Is(err, kerr.TopicAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	p.logger.Info("created kafka topic", "topic", p.topic, "partitions", partitions)
	return nil
}

func (p *Producer) Close() {
	p.client.Close()
}
