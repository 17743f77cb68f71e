package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is the slice of *kgo.Client the publisher uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaConfig holds configuration for the publisher
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher publishes events to Kafka/Redpanda keyed by document id so
// a document's events stay ordered within one partition.
type KafkaPublisher struct {
	client Producer
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher creates a new event publisher
func NewKafkaPublisher(cfg KafkaConfig, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.GzipCompression()),
		kgo.RetryBackoffFn(func(tries int) time.Duration {
			backoff := time.Duration(tries) * 100 * time.Millisecond
			if backoff > 10*time.Second {
				backoff = 10 * time.Second
			}
			return backoff
		}),
		kgo.RequestRetries(5),
		kgo.ProducerLinger(10*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return NewKafkaPublisherWithProducer(client, cfg.Topic, logger), nil
}

func NewKafkaPublisherWithProducer(p Producer, topic string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{client: p, topic: topic, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(e.DocumentID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(e.Type)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.logger.Warn("events.publish.failed", "type", e.Type, "document_id", e.DocumentID, "error", err)
		return fmt.Errorf("failed to publish event: %w", err)
	}
	p.logger.Debug("events.publish.ok", "type", e.Type, "document_id", e.DocumentID)
	return nil
}

func (p *KafkaPublisher) Close() { p.client.Close() }
