package idle

import (
	"context"
	"sync"
	"time"

	"github.com/nidhogg/sparkbot/internal/agent"
	"go.uber.org/zap"
)

// DefaultInterval is how often agents are polled for idleness.
const DefaultInterval = 5 * time.Second

// deliverTimeout bounds delivery of one nudge to all receivers.
const deliverTimeout = 10 * time.Second

// NudgeFunc delivers an idle nudge produced by an agent.
type NudgeFunc func(ctx context.Context, agentName, text string) error

// Agents is the part of the agent registry the watcher polls.
type Agents interface {
	List() []*agent.Agent
	CheckIdle(name string) (string, bool, error)
}

// Watcher periodically asks every agent whether it has been idle long enough
// to nudge, and hands each nudge to the registered receivers.
type Watcher struct {
	agents    Agents
	interval  time.Duration
	receivers []NudgeFunc
	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	logger    *zap.Logger
}

// NewWatcher creates an idle watcher. A non-positive interval uses DefaultInterval.
func NewWatcher(agents Agents, interval time.Duration, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		agents:   agents,
		interval: interval,
		logger:   logger,
	}
}

// OnNudge registers a receiver. Receivers run in registration order.
func (w *Watcher) OnNudge(fn NudgeFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.receivers = append(w.receivers, fn)
}

// Start begins polling in a background goroutine. Calling Start twice is a no-op.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.loop(ctx, w.done)
	w.logger.Info("idle watcher started", zap.Duration("interval", w.interval))
}

// Stop halts polling and waits for an in-flight check to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	w.logger.Info("idle watcher stopped")
}

func (w *Watcher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.CheckNow(ctx)
		}
	}
}

// CheckNow polls every agent once and returns how many nudges were produced.
func (w *Watcher) CheckNow(ctx context.Context) int {
	w.mu.Lock()
	receivers := append([]NudgeFunc(nil), w.receivers...)
	w.mu.Unlock()

	fired := 0
	for _, a := range w.agents.List() {
		name := a.Name()
		text, ok, err := w.agents.CheckIdle(name)
		if err != nil {
			// Replaced or removed between List and CheckIdle.
			w.logger.Debug("idle check skipped", zap.String("agent", name), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		fired++
		w.logger.Info("idle nudge", zap.String("agent", name), zap.String("text", text))
		w.deliver(ctx, receivers, name, text)
	}
	return fired
}

func (w *Watcher) deliver(ctx context.Context, receivers []NudgeFunc, name, text string) {
	ctx, cancel := context.WithTimeout(ctx, deliverTimeout)
	defer cancel()
	for _, fn := range receivers {
		if err := fn(ctx, name, text); err != nil {
			w.logger.Warn("nudge delivery failed",
				zap.String("agent", name),
				zap.Error(err))
		}
	}
}
