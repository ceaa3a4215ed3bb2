package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the Redis channel ledger events are published on
const DefaultChannel = "ledger:events"

// RedisPublisher relays committed events to a Redis pub/sub channel so that
// other processes can follow stock and balance changes
type RedisPublisher struct {
	client     redis.UniversalClient
	channel    string
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewRedisPublisher creates a publisher on channel; empty uses DefaultChannel
func NewRedisPublisher(client redis.UniversalClient, channel string, serializer *EventSerializer, logger *zap.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if serializer == nil {
		serializer = NewEventSerializer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{client: client, channel: channel, serializer: serializer, logger: logger}
}

// Publish sends every event in one pipeline
func (p *RedisPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	pipe := p.client.Pipeline()
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return err
		}
		pipe.Publish(ctx, p.channel, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish %d events to %s: %w", len(events), p.channel, err)
	}
	return nil
}

// Relay subscribes to the channel and republishes every decoded event on
// local until ctx is done
func (p *RedisPublisher) Relay(ctx context.Context, local shared.EventPublisher) error {
	sub := p.client.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", p.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			event, err := p.serializer.Deserialize([]byte(msg.Payload))
			if err != nil {
				p.logger.Warn("dropping undecodable event", zap.String("channel", p.channel), zap.Error(err))
				continue
			}
			if err := local.Publish(ctx, event); err != nil {
				p.logger.Error("failed to relay event", zap.String("event_type", event.EventType()), zap.Error(err))
			}
		}
	}
}

var _ shared.EventPublisher = (*RedisPublisher)(nil)
