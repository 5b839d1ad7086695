package notify

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const DefaultRedisChannel = "planner:changes"

type Redis struct {
	client  *redis.Client
	channel string
	origin  string
	log     *zap.Logger
}

func NewRedis(addr, password, channel string, log *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return NewRedisWithClient(client, channel, log)
}

func NewRedisWithClient(client *redis.Client, channel string, log *zap.Logger) *Redis {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{client: client, channel: channel, origin: newOrigin(), log: log}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Publish(ctx context.Context) error {
	if err := r.client.Publish(ctx, r.channel, r.origin).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", r.channel, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	ps := r.client.Subscribe(ctx, r.channel)
	// Wait for the subscription to be confirmed so no publish is missed after return.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}

	ch := make(chan struct{}, 1)
	msgs := ps.Channel()
	go func() {
		defer close(ch)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				if msg.Payload == r.origin {
					continue
				}
				signal(ch)
			}
		}
	}()
	return ch, nil
}

func (r *Redis) Close() error { return r.client.Close() }
