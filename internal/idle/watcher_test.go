package idle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nidhogg/sparkbot/internal/agent"
	"github.com/nidhogg/sparkbot/internal/intent"
	"go.uber.org/zap"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type nudgeLog struct {
	mu    sync.Mutex
	items []string
}

func (l *nudgeLog) record(_ context.Context, name, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, name+": "+text)
	return nil
}

func (l *nudgeLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func newTestEngine(t *testing.T, c *clock, names ...string) *agent.Engine {
	t.Helper()
	e, err := agent.NewEngine(intent.DefaultCatalog(), agent.DefaultPhrasebook(),
		agent.Options{Now: c.Now}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	for _, n := range names {
		if _, err := e.Register(n, 18, "Female"); err != nil {
			t.Fatal(err)
		}
	}
	return e
}

func TestCheckNowNudgesOncePerIdlePeriod(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, c, "Static", "Steele")
	w := NewWatcher(e, time.Second, zap.NewNop())
	log := &nudgeLog{}
	w.OnNudge(log.record)
	ctx := context.Background()

	if n := w.CheckNow(ctx); n != 0 {
		t.Fatalf("fresh agents nudged %d times", n)
	}

	c.Advance(30 * time.Second)
	if n := w.CheckNow(ctx); n != 0 {
		t.Fatalf("nudged at exactly the idle threshold: %d", n)
	}

	c.Advance(time.Second)
	if n := w.CheckNow(ctx); n != 2 {
		t.Fatalf("nudges = %d, want 2", n)
	}
	if n := w.CheckNow(ctx); n != 0 {
		t.Fatalf("repeat nudges = %d, want 0", n)
	}

	// A turn resets the idle period for that agent only.
	if _, err := e.Think(ctx, "Static", "hello"); err != nil {
		t.Fatal(err)
	}
	c.Advance(31 * time.Second)
	if n := w.CheckNow(ctx); n != 1 {
		t.Fatalf("nudges after turn = %d, want 1", n)
	}
	if log.len() != 3 {
		t.Fatalf("delivered = %d, want 3", log.len())
	}
}

func TestDeliveryErrorsDoNotStopOtherReceivers(t *testing.T) {
	c := &clock{t: time.Now()}
	e := newTestEngine(t, c, "Static")
	w := NewWatcher(e, time.Second, zap.NewNop())
	log := &nudgeLog{}
	w.OnNudge(func(context.Context, string, string) error { return errors.New("down") })
	w.OnNudge(log.record)

	c.Advance(time.Minute)
	w.CheckNow(context.Background())
	if log.len() != 1 {
		t.Fatalf("delivered = %d, want 1", log.len())
	}
}

func TestWatcherStartStop(t *testing.T) {
	c := &clock{t: time.Now()}
	e := newTestEngine(t, c, "Static")
	w := NewWatcher(e, 10*time.Millisecond, zap.NewNop())
	log := &nudgeLog{}
	w.OnNudge(log.record)

	c.Advance(time.Minute)
	w.Start()
	w.Start()

	deadline := time.Now().Add(2 * time.Second)
	for log.len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	w.Stop()

	if log.len() != 1 {
		t.Fatalf("delivered = %d, want 1", log.len())
	}
}

func TestNewWatcherDefaultInterval(t *testing.T) {
	w := NewWatcher(nil, 0, zap.NewNop())
	if w.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", w.interval, DefaultInterval)
	}
}
