package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nidhogg/sparkbot/internal/agent"
)

// EventType categorizes bus events.
type EventType string

const (
	EventTurn  EventType = "turn"
	EventNudge EventType = "nudge"
)

// Event is what travels over the bus.
type Event struct {
	Type      EventType   `json:"type"`
	Agent     string      `json:"agent"`
	Turn      *agent.Turn `json:"turn,omitempty"`
	Nudge     string      `json:"nudge,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

const streamPrefix = "sparkbot:agent:"

// maxStreamLen caps each agent stream (approximate trimming).
const maxStreamLen = 1000

// EventBus fans agent activity out over Redis Streams, one stream per agent.
type EventBus struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// New creates a Redis-backed event bus.
func New(ctx context.Context, redisURL string, logger *zap.Logger) (*EventBus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &EventBus{rdb: rdb, logger: logger}, nil
}

// Stream returns the stream key of an agent.
func Stream(agentName string) string { return streamPrefix + agentName }

// Publish appends an event to its agent's stream.
func (b *EventBus) Publish(ctx context.Context, ev *Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	stream := Stream(ev.Agent)
	_, err = b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", stream, err)
	}

	b.logger.Debug("published event",
		zap.String("agent", ev.Agent),
		zap.String("type", string(ev.Type)))
	return nil
}

// RecordTurn implements agent.TurnSink.
func (b *EventBus) RecordTurn(ctx context.Context, t agent.Turn) error {
	return b.Publish(ctx, &Event{Type: EventTurn, Agent: t.Agent, Turn: &t, Timestamp: t.Time})
}

// PublishNudge announces an idle nudge.
func (b *EventBus) PublishNudge(ctx context.Context, agentName, nudge string) error {
	return b.Publish(ctx, &Event{Type: EventNudge, Agent: agentName, Nudge: nudge})
}

// Subscribe listens for new events on an agent's stream.
// Returns a channel that emits events. Cancel the context to stop.
func (b *EventBus) Subscribe(ctx context.Context, agentName string) <-chan *Event {
	ch := make(chan *Event, 16)
	stream := Stream(agentName)

	go func() {
		defer close(ch)
		lastID := "$"

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			results, err := b.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{stream, lastID},
				Count:   10,
				Block:   2 * time.Second,
			}).Result()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				if !errors.Is(err, redis.Nil) {
					b.logger.Warn("stream read failed", zap.String("stream", stream), zap.Error(err))
				}
				continue
			}

			for _, r := range results {
				for _, msg := range r.Messages {
					lastID = msg.ID
					data, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					var ev Event
					if json.Unmarshal([]byte(data), &ev) != nil {
						continue
					}
					select {
					case ch <- &ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return ch
}

// Close shuts down the Redis connection.
func (b *EventBus) Close() error {
	return b.rdb.Close()
}
