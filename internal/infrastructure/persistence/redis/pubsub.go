package redis

import (
	"context"

	"github.com/G2-Spool/spool-progress-service/internal/infrastructure/messaging"
)

// PubSub adapts the go-redis client to the messaging.RedisClient interface
// so the Redis event bus can fan events out across service instances.
type PubSub struct {
	cache *Cache
}

// NewPubSub wraps an existing cache connection for pub/sub use.
func NewPubSub(cache *Cache) *PubSub {
	return &PubSub{cache: cache}
}

// Publish sends a message to the given channel.
func (p *PubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	return p.cache.Client().Publish(ctx, channel, message).Err()
}

// Subscribe listens on the given channels and forwards messages until the
// context is cancelled.
func (p *PubSub) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	sub := p.cache.Client().Subscribe(ctx, channels...)

	// Wait for the subscription to be confirmed before returning, so no
	// message published after this call is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan messaging.RedisMessage, 64)
	go func() {
		defer close(out)
		defer sub.Close()

		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				out <- messaging.RedisMessage{Channel: msg.Channel, Payload: msg.Payload}
			}
		}
	}()

	return out, nil
}

// Close is a no-op: the underlying client belongs to the cache and is
// closed with it.
func (p *PubSub) Close() error {
	return nil
}
