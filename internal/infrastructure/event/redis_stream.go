package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultStream is the Redis stream sale events are appended to
const DefaultStream = "sales:events"

// StreamClient is the subset of *redis.Client the stream publisher uses
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamPublisher appends every event it receives to a Redis stream
// as a JSON payload plus routing fields. The stream is capped at maxLen
// entries (approximate trimming).
type RedisStreamPublisher struct {
	client StreamClient
	stream string
	maxLen int64
}

// NewRedisStreamPublisher creates a publisher on stream; empty means DefaultStream
func NewRedisStreamPublisher(client StreamClient, stream string, maxLen int64) *RedisStreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

// EventTypes is empty: the publisher receives every event
func (p *RedisStreamPublisher) EventTypes() []string { return nil }

func (p *RedisStreamPublisher) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.EventType(), err)
	}
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"event_id":       event.EventID().String(),
			"event_type":     event.EventType(),
			"aggregate_type": event.AggregateType(),
			"aggregate_id":   event.AggregateID().String(),
			"occurred_at":    event.OccurredAt().UTC().Format(time.RFC3339Nano),
			"payload":        string(payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("append %s to %s: %w", event.EventType(), p.stream, err)
	}
	return nil
}

var _ shared.EventHandler = (*RedisStreamPublisher)(nil)
