package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const defaultRedisChannel = "brh:events"

// RedisEmitter publishes events to a Redis channel so that other nodes or an
// event log collector can subscribe to federation activity.
type RedisEmitter struct {
	client  *redis.Client
	channel string
	node    string
}

// RedisOptions configure the Redis event sink.
type RedisOptions struct {
	Client  *redis.Client
	Channel string
	NodeID  string
}

// NewRedisEmitter builds a Redis-backed emitter.
func NewRedisEmitter(opts RedisOptions) (*RedisEmitter, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("events: redis client required")
	}
	channel := opts.Channel
	if channel == "" {
		channel = defaultRedisChannel
	}
	return &RedisEmitter{client: opts.Client, channel: channel, node: opts.NodeID}, nil
}

// Emit publishes the event as a JSON record.
func (e *RedisEmitter) Emit(ctx context.Context, message string) error {
	payload, err := json.Marshal(Record{
		ID:      uuid.NewString(),
		Node:    e.node,
		Epoch:   time.Now().Unix(),
		Message: message,
	})
	if err != nil {
		return fmt.Errorf("events: encode record: %w", err)
	}
	if err := e.client.Publish(ctx, e.channel, payload).Err(); err != nil {
		return fmt.Errorf("events: redis publish: %w", err)
	}
	return nil
}

// Record is the wire form of an event on remote sinks.
type Record struct {
	ID      string `json:"id"`
	Node    string `json:"node"`
	Epoch   int64  `json:"epoch"`
	Message string `json:"message"`
}
