package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/rumpus-tracker/internal/config"
	"github.com/rumpus-tracker/internal/domain"
)

// Publisher writes poll events and poll requests to Kafka
type Publisher struct {
	producer     sarama.SyncProducer
	eventTopic   string
	requestTopic string
	logger       *slog.Logger
}

// NewPublisher creates a publisher backed by a sarama SyncProducer
func NewPublisher(cfg *config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = cfg.RetryAttempts
	saramaConfig.Producer.Retry.Backoff = cfg.RetryDelay
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating producer: %w", err)
	}
	return NewPublisherWithProducer(producer, cfg, logger), nil
}

// NewPublisherWithProducer wraps an existing producer
func NewPublisherWithProducer(producer sarama.SyncProducer, cfg *config.KafkaConfig, logger *slog.Logger) *Publisher {
	return &Publisher{
		producer:     producer,
		eventTopic:   cfg.EventTopic,
		requestTopic: cfg.RequestTopic,
		logger:       logger,
	}
}

// PublishPoll announces a completed poll, keyed by watch name
func (p *Publisher) PublishPoll(ctx context.Context, event domain.PollEvent) error {
	return p.send(ctx, p.eventTopic, event.Watch, event)
}

// RequestPoll asks the tracker to poll a watch out of schedule
func (p *Publisher) RequestPoll(ctx context.Context, watch, requestedBy string) error {
	return p.send(ctx, p.requestTopic, watch, domain.PollRequest{
		Watch:       watch,
		RequestedBy: requestedBy,
		Timestamp:   time.Now().UTC(),
	})
}

func (p *Publisher) send(ctx context.Context, topic, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("sending to %s: %w", topic, err)
	}
	p.logger.Debug("message published", "topic", topic, "key", key, "partition", partition, "offset", offset)
	return nil
}

// Close flushes and closes the producer
func (p *Publisher) Close() error {
	return p.producer.Close()
}
