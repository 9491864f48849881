package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"swapdesk/internal/model"
)

// RedisPublisher publishes transitions over Redis pub/sub.
type RedisPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisPublisher(addr string, logger *zap.Logger) *RedisPublisher {
	return NewRedisPublisherFromClient(redis.NewClient(&redis.Options{Addr: addr}), logger)
}

func NewRedisPublisherFromClient(client *redis.Client, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{client: client, logger: logger}
}

// Ping checks connectivity.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// PublishAction sends the snapshot to the account channel and the firehose.
func (p *RedisPublisher) PublishAction(ctx context.Context, action model.ActionSnapshot) error {
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}

	pipe := p.client.Pipeline()
	pipe.Publish(ctx, ChannelAll, data)
	if action.Account != "" {
		pipe.Publish(ctx, AccountChannel(action.Account), data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish action: %w", err)
	}
	return nil
}

// Subscribe delivers transitions on channel until ctx is done.
func (p *RedisPublisher) Subscribe(ctx context.Context, channel string, handler func(model.ActionSnapshot)) error {
	pubsub := p.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	p.logger.Info("subscribed", zap.String("channel", channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var action model.ActionSnapshot
			if err := json.Unmarshal([]byte(msg.Payload), &action); err != nil {
				p.logger.Warn("bad action payload", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			handler(action)
		}
	}
}
