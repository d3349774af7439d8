package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nidhogg/sparkbot/internal/intent"
	"go.uber.org/zap"
)

type recordingSink struct {
	mu    sync.Mutex
	turns []Turn
	err   error
}

func (s *recordingSink) RecordTurn(_ context.Context, t Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
	return s.err
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(intent.DefaultCatalog(), DefaultPhrasebook(), Options{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestEngineRegisterLastWriteWins(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Register("Static", 18, "Female"); err != nil {
		t.Fatal(err)
	}
	e.Think(context.Background(), "Static", "hello")

	if _, err := e.Register("Static", 21, "Female"); err != nil {
		t.Fatal(err)
	}
	a, ok := e.Get("Static")
	if !ok {
		t.Fatal("agent missing")
	}
	if a.Persona().Age != 21 {
		t.Errorf("age = %d, want 21", a.Persona().Age)
	}
	if a.Memory().InteractionCount != 0 {
		t.Error("replacement agent should start with fresh memory")
	}
	if n := len(e.List()); n != 1 {
		t.Errorf("got %d agents, want 1", n)
	}
}

func TestEngineListSorted(t *testing.T) {
	e := newTestEngine(t)
	e.Register("Steele", 19, "Male")
	e.Register("Static", 18, "Female")
	e.Register("Amp", 20, "Nonbinary")

	list := e.List()
	want := []string{"Amp", "Static", "Steele"}
	for i, a := range list {
		if a.Name() != want[i] {
			t.Errorf("list[%d] = %s, want %s", i, a.Name(), want[i])
		}
	}
}

func TestEngineUnknownAgent(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Think(context.Background(), "nobody", "hi"); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("Think: got %v", err)
	}
	if _, _, err := e.CheckIdle("nobody"); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("CheckIdle: got %v", err)
	}
}

func TestEngineSinks(t *testing.T) {
	e := newTestEngine(t)
	e.Register("Static", 18, "Female")

	good := &recordingSink{}
	bad := &recordingSink{err: errors.New("archive down")}
	e.AddSink(bad)
	e.AddSink(good)

	ctx := context.Background()
	if _, err := e.Think(ctx, "Static", ""); err != nil {
		t.Fatal(err)
	}
	turn, err := e.Think(ctx, "Static", "2 + 2")
	if err != nil {
		t.Fatalf("sink failure leaked: %v", err)
	}

	if len(good.turns) != 1 {
		t.Fatalf("sink got %d turns, want 1 (empty input is not recorded)", len(good.turns))
	}
	if good.turns[0].ID != turn.ID || good.turns[0].Agent != "Static" {
		t.Errorf("sink turn = %+v", good.turns[0])
	}
	if len(bad.turns) != 1 {
		t.Errorf("failing sink should still be called once, got %d", len(bad.turns))
	}
}

func TestEngineAgentsIndependent(t *testing.T) {
	e := newTestEngine(t)
	e.Register("Static", 18, "Female")
	e.Register("Steele", 19, "Male")

	ctx := context.Background()
	var wg sync.WaitGroup
	for _, name := range []string{"Static", "Steele"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				e.Think(ctx, name, "i hate this")
			}
		}(name)
	}
	wg.Wait()

	static, _ := e.Get("Static")
	steele, _ := e.Get("Steele")
	if static.Memory().InteractionCount != 25 || steele.Memory().InteractionCount != 25 {
		t.Errorf("counts = %d, %d", static.Memory().InteractionCount, steele.Memory().InteractionCount)
	}
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	if _, err := NewEngine(nil, DefaultPhrasebook(), Options{}, zap.NewNop()); err == nil {
		t.Error("expected error for nil catalog")
	}
	if _, err := NewEngine(intent.DefaultCatalog(), Phrasebook{}, Options{}, zap.NewNop()); !errors.Is(err, ErrInvalidPhrasebook) {
		t.Errorf("got %v", err)
	}
}

func TestNewEngineNilLogger(t *testing.T) {
	e, err := NewEngine(intent.DefaultCatalog(), DefaultPhrasebook(), Options{}, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, err := e.Register("Static", 18, "Female"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := e.Think(context.Background(), "Static", "hello"); err != nil {
		t.Fatalf("Think: %v", err)
	}
}
