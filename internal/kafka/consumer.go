package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/rumpus-tracker/internal/config"
	"github.com/rumpus-tracker/internal/domain"
)

// PollHandler polls watches on request
type PollHandler interface {
	PollWatch(ctx context.Context, name string) (*domain.PollResult, error)
}

// Consumer consumes poll requests from Kafka
type Consumer struct {
	config        *config.KafkaConfig
	handler       PollHandler
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	ready         chan bool
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *config.KafkaConfig, handler PollHandler, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		config:        cfg,
		handler:       handler,
		logger:        logger,
		consumerGroup: consumerGroup,
		ctx:           ctx,
		cancel:        cancel,
		ready:         make(chan bool),
	}, nil
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start() error {
	c.logger.Info("starting Kafka consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.RequestTopic,
		"group_id", c.config.GroupID,
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			handler := &consumerGroupHandler{
				consumer: c,
				ready:    c.ready,
			}

			if err := c.consumerGroup.Consume(c.ctx, []string{c.config.RequestTopic}, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.logger.Error("error from consumer", "error", err)
			}

			// Check if context was cancelled
			if c.ctx.Err() != nil {
				return
			}

			c.ready = make(chan bool)
		}
	}()

	// Wait until consumer is ready
	<-c.ready
	c.logger.Info("Kafka consumer ready")

	// Handle errors in separate goroutine
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				c.logger.Error("consumer group error", "error", err)
			}
		}
	}()

	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info("stopping Kafka consumer")
	c.cancel()
	c.wg.Wait()
	return c.consumerGroup.Close()
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
	ready    chan bool
}

// Setup is called at the beginning of a new session
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

// Cleanup is called at the end of a session
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim collects poll requests into batches. Requests for the same
// watch within one batch are polled once.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	cfg := h.consumer.config
	logger := h.consumer.logger

	batch := newRequestBatch(cfg.BatchSize)
	batchTimer := time.NewTimer(cfg.BatchTimeout)
	defer batchTimer.Stop()

	processBatch := func() {
		for _, watch := range batch.drain() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			result, err := h.consumer.handler.PollWatch(ctx, watch)
			cancel()
			switch {
			case errors.Is(err, domain.ErrWatchNotFound):
				logger.Warn("poll requested for unknown watch", "watch", watch)
			case err != nil:
				logger.Error("failed to poll watch", "watch", watch, "error", err)
			default:
				logger.Debug("polled watch on request", "watch", watch, "subjects", result.Subjects)
			}
		}
	}

	for {
		select {
		case <-session.Context().Done():
			// Process remaining batch before exit
			processBatch()
			return nil

		case <-batchTimer.C:
			processBatch()
			batchTimer.Reset(cfg.BatchTimeout)

		case message, ok := <-claim.Messages():
			if !ok {
				processBatch()
				return nil
			}

			var req domain.PollRequest
			if err := json.Unmarshal(message.Value, &req); err != nil {
				logger.Warn("failed to unmarshal message",
					"error", err,
					"offset", message.Offset,
					"partition", message.Partition,
				)
				session.MarkMessage(message, "")
				continue
			}

			if req.Watch == "" {
				logger.Warn("poll request without watch", "offset", message.Offset)
				session.MarkMessage(message, "")
				continue
			}

			batch.add(req.Watch)
			session.MarkMessage(message, "")

			if batch.len() >= cfg.BatchSize {
				processBatch()
				batchTimer.Reset(cfg.BatchTimeout)
			}
		}
	}
}

// requestBatch collects distinct watch names in arrival order
type requestBatch struct {
	watches []string
	seen    map[string]bool
}

func newRequestBatch(size int) *requestBatch {
	return &requestBatch{
		watches: make([]string, 0, size),
		seen:    make(map[string]bool, size),
	}
}

func (b *requestBatch) add(watch string) {
	if b.seen[watch] {
		return
	}
	b.seen[watch] = true
	b.watches = append(b.watches, watch)
}

func (b *requestBatch) len() int {
	return len(b.watches)
}

// drain returns the collected watches and empties the batch
func (b *requestBatch) drain() []string {
	out := b.watches
	b.watches = make([]string, 0, cap(out))
	clear(b.seen)
	return out
}
