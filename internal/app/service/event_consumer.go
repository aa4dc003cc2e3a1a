package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/LinkGate/internal/app/model"
	"github.com/sifan077/LinkGate/internal/app/repository"
	"go.uber.org/zap"
)

var errMalformedEvent = errors.New("malformed click event")

const (
	consumerBatch   = 10
	consumerMaxWait = 5 * time.Second
)

// EventConsumer drains the click stream into the click_events table.
type EventConsumer struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	repo   repository.ClickEventRepository

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEventConsumer creates a pull consumer for the click stream.
func NewEventConsumer(js nats.JetStreamContext, logger *zap.Logger, repo repository.ClickEventRepository) *EventConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventConsumer{js: js, logger: logger, repo: repo}
}

// Start ensures the durable consumer exists and begins fetching in the background.
func (c *EventConsumer) Start(ctx context.Context) error {
	if _, err := c.js.ConsumerInfo(model.ClickStreamName, model.ClickConsumerName); err != nil {
		_, err = c.js.AddConsumer(model.ClickStreamName, &nats.ConsumerConfig{
			Durable:   model.ClickConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ClickStreamSubject, model.ClickConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.consume(ctx, sub)
	return nil
}

// Stop ends the fetch loop and waits for the in-flight batch.
func (c *EventConsumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

func (c *EventConsumer) consume(ctx context.Context, sub *nats.Subscription) {
	defer c.wg.Done()
	defer func() { _ = sub.Unsubscribe() }()

	for ctx.Err() == nil {
		fetchCtx, cancel := context.WithTimeout(ctx, consumerMaxWait)
		msgs, err := sub.Fetch(consumerBatch, nats.Context(fetchCtx))
		cancel()
		if err != nil && !errors.Is(err, nats.ErrTimeout) && !errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				break
			}
			c.logger.Error("failed to fetch messages", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			if err := c.store(ctx, msg.Data); err != nil {
				c.logger.Error("failed to store click event", zap.Error(err))
				if errors.Is(err, errMalformedEvent) {
					_ = msg.Term()
				} else {
					_ = msg.Nak()
				}
				continue
			}
			_ = msg.Ack()
		}
	}
	c.logger.Info("click event consumer stopped")
}

func (c *EventConsumer) store(ctx context.Context, data []byte) error {
	var event model.ClickEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if err := c.repo.Create(ctx, &event); err != nil {
		return err
	}

	c.logger.Debug("click event stored",
		zap.String("id", event.ID),
		zap.String("target_type", event.TargetType),
		zap.String("target_id", event.TargetID),
		zap.String("kind", event.Kind),
		zap.Time("timestamp", event.Timestamp),
	)
	return nil
}
