package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients holds separate connections for publishing turn updates and
// for the hub's long-lived subscriptions.
type RedisClients struct {
	Publish *redis.Client
	PubSub  *redis.Client
}

// NewRedisClients connects to redisURL. An empty URL returns nil clients and
// no error; callers fall back to in-process fan-out.
func NewRedisClients(redisURL string) (*RedisClients, error) {
	if redisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Publish client
	publishClient := redis.NewClient(opt)
	if err := publishClient.Ping(ctx).Err(); err != nil {
		publishClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (publish): %w", err)
	}

	// PubSub client (separate connection)
	pubsubOpt := *opt
	pubsubClient := redis.NewClient(&pubsubOpt)
	if err := pubsubClient.Ping(ctx).Err(); err != nil {
		publishClient.Close()
		pubsubClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (pubsub): %w", err)
	}

	return &RedisClients{
		Publish: publishClient,
		PubSub:  pubsubClient,
	}, nil
}

// PublishClient returns the publish connection, or nil when r is nil.
func (r *RedisClients) PublishClient() *redis.Client {
	if r == nil {
		return nil
	}
	return r.Publish
}

// SubscribeClient returns the subscription connection, or nil when r is nil.
func (r *RedisClients) SubscribeClient() *redis.Client {
	if r == nil {
		return nil
	}
	return r.PubSub
}

func (r *RedisClients) Close() {
	if r == nil {
		return
	}
	r.Publish.Close()
	r.PubSub.Close()
}
