package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const publishTimeout = 3 * time.Second

// RedisRelay fans local events out to every instance subscribed to the same
// Redis channel, and feeds events from other instances into the local bus.
type RedisRelay struct {
	local   Bus
	client  *redis.Client
	channel string
	origin  string
	pubsub  *redis.PubSub
}

func NewRedisRelay(client *redis.Client, channel string, local Bus) *RedisRelay {
	return &RedisRelay{
		local:   local,
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
	}
}

func (r *RedisRelay) Publish(e Event) {
	e.Origin = r.origin
	r.local.Publish(e)

	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to marshal event for relay", "error", err, "type", e.Type)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		slog.Error("failed to relay event", "error", err, "channel", r.channel, "type", e.Type)
	}
}

func (r *RedisRelay) Subscribe() (<-chan Event, func()) {
	return r.local.Subscribe()
}

// Start subscribes to the channel and forwards remote events until Close.
func (r *RedisRelay) Start(ctx context.Context) error {
	r.pubsub = r.client.Subscribe(ctx, r.channel)
	if _, err := r.pubsub.Receive(ctx); err != nil {
		_ = r.pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	go func() {
		for msg := range r.pubsub.Channel() {
			r.deliver(msg.Payload)
		}
	}()

	slog.Info("feed relay subscribed", "channel", r.channel, "origin", r.origin)
	return nil
}

func (r *RedisRelay) deliver(payload string) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		slog.Warn("discarding malformed relay message", "error", err)
		return
	}
	if e.Origin == r.origin {
		return
	}
	r.local.Publish(e)
}

func (r *RedisRelay) Close() error {
	if r.pubsub == nil {
		return nil
	}
	if err := r.pubsub.Close(); err != nil {
		return fmt.Errorf("closing pubsub: %w", err)
	}
	return nil
}

// NewRedisClient connects to redisURL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
