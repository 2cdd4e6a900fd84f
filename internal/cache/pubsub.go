package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/constants"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type PubSubManager struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSubManager(client *redis.Client, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{client: client, logger: logger}
}

// PublishAnalysis sends the event to the global and per-wallet channels.
func (p *PubSubManager) PublishAnalysis(ctx context.Context, event *models.AnalysisEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channels := []string{
		constants.PubSubChannelAnalysisAll,
		constants.PubSubChannelAnalysisPrefix + event.Address,
	}

	pipe := p.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// Subscribe blocks delivering events from channel until ctx is done.
func (p *PubSubManager) Subscribe(ctx context.Context, channel string, handler storage.AnalysisHandler) error {
	pubsub := p.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	p.logger.WithField("channel", channel).Info("subscribed")

	return p.consume(ctx, pubsub, handler)
}

// PSubscribe is Subscribe for a pattern such as "wallet:analysis:*".
func (p *PubSubManager) PSubscribe(ctx context.Context, pattern string, handler storage.AnalysisHandler) error {
	pubsub := p.client.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe %s: %w", pattern, err)
	}
	p.logger.WithField("pattern", pattern).Info("subscribed")

	return p.consume(ctx, pubsub, handler)
}

func (p *PubSubManager) consume(ctx context.Context, pubsub *redis.PubSub, handler storage.AnalysisHandler) error {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event models.AnalysisEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				p.logger.WithError(err).WithField("channel", msg.Channel).Warn("error unmarshaling analysis event")
				continue
			}
			handler(&event)
		}
	}
}
