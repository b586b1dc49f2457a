package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultChannelPrefix = "changefeed:"
	subscribeTimeout     = 10 * time.Second
)

// RedisPublisher publishes changes on Redis pub/sub, one channel per topic.
type RedisPublisher struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: defaultChannelPrefix}
}

func (p *RedisPublisher) Publish(ctx context.Context, changes ...Change) error {
	var errs []error
	for _, c := range changes {
		payload, err := json.Marshal(c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.client.Publish(ctx, p.prefix+c.Topic, payload).Err(); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", c.ID, err))
		}
	}
	return errors.Join(errs...)
}

// RedisSource subscribes to Redis pub/sub channels.
type RedisSource struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

func NewRedisSource(client redis.UniversalClient, logger *zap.Logger) *RedisSource {
	return &RedisSource{client: client, prefix: defaultChannelPrefix, logger: logger}
}

func (s *RedisSource) Subscribe(ctx context.Context, topics []string, handle func(Change), onStatus func(Status)) error {
	channels := make([]string, 0, len(topics))
	for _, t := range topics {
		channels = append(channels, s.prefix+t)
	}

	onStatus(StatusConnecting)
	pubsub := s.client.Subscribe(ctx, channels...)
	defer pubsub.Close()

	receiveCtx, cancel := context.WithTimeout(ctx, subscribeTimeout)
	_, err := pubsub.Receive(receiveCtx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			onStatus(StatusClosed)
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			onStatus(StatusTimedOut)
		} else {
			onStatus(StatusChannelError)
		}
		return fmt.Errorf("redis subscribe: %w", err)
	}

	onStatus(StatusSubscribed)
	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			onStatus(StatusClosed)
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				onStatus(StatusChannelError)
				return errSubscriptionEnded
			}
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				s.logger.Warn("dropping malformed change", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			handle(c)
		}
	}
}
