package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/deferlink/deferlink-go/internal/backend/model"
	"github.com/deferlink/deferlink-go/internal/backend/repository"
)

// ResolutionConsumer consumes resolution events from NATS JetStream and
// persists them for analytics.
type ResolutionConsumer struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	repo   repository.ResolutionEventRepository
	links  repository.LinkRepository
}

// NewResolutionConsumer creates a new resolution event consumer
func NewResolutionConsumer(js nats.JetStreamContext, logger *zap.Logger, repo repository.ResolutionEventRepository, links repository.LinkRepository) *ResolutionConsumer {
	return &ResolutionConsumer{js: js, logger: logger, repo: repo, links: links}
}

// Start begins consuming resolution events
func (c *ResolutionConsumer) Start() error {
	// Create stream if not exists
	_, err := c.js.StreamInfo(model.ResolutionStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.ResolutionStreamName,
			Subjects: []string{model.ResolutionStreamSubject},
			MaxBytes: model.ResolutionStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	// Create consumer if not exists
	_, err = c.js.ConsumerInfo(model.ResolutionStreamName, model.ResolutionConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.ResolutionStreamName, &nats.ConsumerConfig{
			Durable:   model.ResolutionConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	// Subscribe to consume messages
	sub, err := c.js.PullSubscribe(model.ResolutionStreamSubject, model.ResolutionConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

func (c *ResolutionConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch messages", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var event model.ResolutionEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				c.logger.Error("failed to unmarshal resolution event", zap.Error(err))
				msg.Nak()
				continue
			}

			if err := c.repo.Create(ctx, &event); err != nil {
				c.logger.Error("failed to store resolution event",
					zap.String("id", event.ID),
					zap.String("short_id", event.ShortID),
					zap.Error(err))
				msg.Nak()
				continue
			}

			if c.links != nil {
				if err := c.links.IncrementResolutions(ctx, event.ShortID); err != nil {
					c.logger.Warn("failed to bump link resolution count",
						zap.String("short_id", event.ShortID),
						zap.Error(err))
				}
			}

			c.logger.Debug("resolution event stored",
				zap.String("id", event.ID),
				zap.String("short_id", event.ShortID),
				zap.Time("timestamp", event.Timestamp),
			)

			msg.Ack()
		}
	}
}
