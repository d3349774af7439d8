package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// maxHistory bounds the broadcast history kept in memory.
const maxHistory = 100

// BroadcastRecord tracks a sent broadcast for history.
type BroadcastRecord struct {
	Message *BroadcastMessage `json:"message"`
	SentAt  time.Time         `json:"sent_at"`
	Targets []string          `json:"targets"`
}

// Broadcaster sends agent-initiated messages, such as idle nudges, to every
// connected platform.
type Broadcaster struct {
	gateway *Gateway
	history []BroadcastRecord
	mu      sync.Mutex
	logger  *zap.Logger
}

// NewBroadcaster creates a broadcaster backed by the given gateway.
func NewBroadcaster(gw *Gateway, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		gateway: gw,
		logger:  logger,
	}
}

// Send broadcasts a message to all or selected platforms via the gateway.
func (b *Broadcaster) Send(ctx context.Context, msg *BroadcastMessage) error {
	if msg.Type == "" {
		return fmt.Errorf("broadcast type is required")
	}

	b.logger.Info("sending broadcast",
		zap.String("type", string(msg.Type)),
		zap.String("agent", msg.Agent),
	)

	if err := b.gateway.Broadcast(ctx, msg); err != nil {
		return err
	}

	targets := msg.Platforms
	if len(targets) == 0 {
		targets = b.gateway.Adapters()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, BroadcastRecord{
		Message: msg,
		SentAt:  time.Now(),
		Targets: targets,
	})
	if len(b.history) > maxHistory {
		b.history = b.history[len(b.history)-maxHistory:]
	}
	return nil
}

// Nudge broadcasts an idle nudge on behalf of an agent.
func (b *Broadcaster) Nudge(ctx context.Context, agentName, text string) error {
	return b.Send(ctx, &BroadcastMessage{
		Type:    BroadcastIdleNudge,
		Title:   agentName,
		Content: text,
		Agent:   agentName,
	})
}

// History returns up to limit recent broadcast records, oldest first.
func (b *Broadcaster) History(limit int) []BroadcastRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > len(b.history) {
		limit = len(b.history)
	}
	out := make([]BroadcastRecord, limit)
	copy(out, b.history[len(b.history)-limit:])
	return out
}
