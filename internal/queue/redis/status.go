package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

// StatusPublisher implements domain.StatusPublisher over Redis Pub/Sub.
// The dashboard hub subscribes to the same channel for live updates.
type StatusPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewStatusPublisher creates a StatusPublisher on the given channel.
func NewStatusPublisher(c *Client, channel string) *StatusPublisher {
	return &StatusPublisher{rdb: c.Underlying(), channel: channel}
}

// PublishStatus sends a raw payload to the status channel.
func (p *StatusPublisher) PublishStatus(ctx context.Context, payload []byte) error {
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", p.channel, err)
	}
	return nil
}

// Subscribe creates a Pub/Sub subscription on the status channel and
// returns a read-only channel of payloads. The subscription closes when
// ctx is cancelled.
func (p *StatusPublisher) Subscribe(ctx context.Context) (<-chan []byte, error) {
	pubsub := p.rdb.Subscribe(ctx, p.channel)

	// Verify the subscription is established by receiving the confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", p.channel, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Compile-time interface check.
var _ domain.StatusPublisher = (*StatusPublisher)(nil)
