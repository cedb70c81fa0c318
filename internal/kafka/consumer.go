package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/bracket-tournament/internal/config"
	"github.com/bracket-tournament/internal/domain"
	"golang.org/x/sync/errgroup"
)

// maxRetryBackoff caps the wait between attempts at a failing batch
const maxRetryBackoff = 10 * time.Second

// LevelUpHandler applies level-up events to the tournament ledger
type LevelUpHandler interface {
	HandleLevelUp(ctx context.Context, event domain.LevelUpEvent) error
}

// Consumer consumes level-up events from Kafka
type Consumer struct {
	config        *config.KafkaConfig
	handler       LevelUpHandler
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	ready         chan bool
	retryBackoff  time.Duration
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *config.KafkaConfig, handler LevelUpHandler, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating consumer group: %w", err)
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
		retryBackoff:  200 * time.Millisecond,
	}, nil
}

// Start begins consuming level-up events
func (c *Consumer) Start() error {
	c.logger.Info("starting Kafka consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.Topic,
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

			if err := c.consumerGroup.Consume(c.ctx, []string{c.config.Topic}, handler); err != nil {
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

// pendingEvent is a claimed message waiting to be applied. Undecodable
// messages are carried as done so their offsets still advance.
type pendingEvent struct {
	message *sarama.ConsumerMessage
	event   domain.LevelUpEvent
	done    bool
}

// processBatch applies the events not applied yet with bounded concurrency
// and flags each success. Events for the same user may run in parallel since
// score increments are atomic.
func (c *Consumer) processBatch(ctx context.Context, batch []*pendingEvent) error {
	var g errgroup.Group
	if c.config.Concurrency > 0 {
		g.SetLimit(c.config.Concurrency)
	}

	for _, p := range batch {
		if p.done {
			continue
		}
		g.Go(func() error {
			if err := c.handler.HandleLevelUp(ctx, p.event); err != nil {
				c.logger.Error("failed to apply level up",
					"event_id", p.event.EventID,
					"tournament_id", p.event.TournamentID,
					"user_id", p.event.UserID,
					"error", err,
				)
				return err
			}
			p.done = true
			return nil
		})
	}

	return g.Wait()
}

// markApplied marks the offset of the applied prefix of batch and returns
// what is left from the first event still pending
func markApplied(session sarama.ConsumerGroupSession, batch []*pendingEvent) []*pendingEvent {
	n := 0
	for n < len(batch) && batch[n].done {
		n++
	}
	if n > 0 {
		session.MarkMessage(batch[n-1].message, "")
	}
	return batch[n:]
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

// ConsumeClaim processes messages from a topic partition. An offset is
// marked only once every event up to it has been applied; failed events are
// retried with backoff until they succeed or the session ends.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	c := h.consumer
	cfg := c.config
	pending := make([]*pendingEvent, 0, cfg.BatchSize)
	batchTimer := time.NewTimer(cfg.BatchTimeout)
	defer batchTimer.Stop()

	// flush reports false when the session ended with events still pending
	flush := func() bool {
		backoff := c.retryBackoff
		for {
			size := len(pending)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := c.processBatch(ctx, pending)
			cancel()

			pending = markApplied(session, pending)
			if len(pending) == 0 {
				if size > 0 {
					c.logger.Debug("processed batch", "batch_size", size)
				}
				return true
			}

			c.logger.Warn("level up batch incomplete, retrying",
				"error", err,
				"remaining", len(pending),
				"backoff", backoff,
			)
			select {
			case <-session.Context().Done():
				return false
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxRetryBackoff)
		}
	}

	for {
		select {
		case <-session.Context().Done():
			// Apply what is buffered before the partition is handed over
			flush()
			return nil

		case <-batchTimer.C:
			if !flush() {
				return nil
			}
			batchTimer.Reset(cfg.BatchTimeout)

		case message, ok := <-claim.Messages():
			if !ok {
				flush()
				return nil
			}

			entry := &pendingEvent{message: message}
			event, err := DecodeLevelUp(message.Value)
			if err != nil {
				c.logger.Warn("dropping level up message",
					"error", err,
					"offset", message.Offset,
					"partition", message.Partition,
				)
				entry.done = true
			} else {
				entry.event = event
			}
			pending = append(pending, entry)

			if len(pending) >= cfg.BatchSize {
				if !flush() {
					return nil
				}
				batchTimer.Reset(cfg.BatchTimeout)
			}
		}
	}
}

// DecodeLevelUp parses and validates a level-up message
func DecodeLevelUp(value []byte) (domain.LevelUpEvent, error) {
	var event domain.LevelUpEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return event, fmt.Errorf("unmarshaling level up: %w", err)
	}
	if event.UserID <= 0 || event.TournamentID <= 0 {
		return event, fmt.Errorf("level up without user or tournament: %w", domain.ErrInvalidRequest)
	}
	return event, nil
}
