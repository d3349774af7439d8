package router

import (
	"context"
	"strings"
	"testing"

	"github.com/nidhogg/sparkbot/internal/agent"
	"github.com/nidhogg/sparkbot/internal/command"
	"github.com/nidhogg/sparkbot/internal/gateway"
	"github.com/nidhogg/sparkbot/internal/intent"
	"go.uber.org/zap"
)

// captureAdapter keeps the last message sent through it.
type captureAdapter struct {
	last *gateway.OutboundMessage
}

func (c *captureAdapter) Platform() string { return "test" }
func (c *captureAdapter) Connect(context.Context) error { return nil }
func (c *captureAdapter) OnMessage(gateway.MessageHandler) {}
func (c *captureAdapter) Close() error { return nil }
func (c *captureAdapter) Status() gateway.AdapterStatus { return gateway.AdapterStatus{Platform: "test"} }
func (c *captureAdapter) Broadcast(context.Context, *gateway.BroadcastMessage) error { return nil }
func (c *captureAdapter) Send(_ context.Context, m *gateway.OutboundMessage) error {
	c.last = m
	return nil
}

func newTestRouter(t *testing.T, defaultAgent string, names ...string) (*MessageRouter, *captureAdapter, *agent.Engine) {
	t.Helper()
	logger := zap.NewNop()
	engine, err := agent.NewEngine(intent.DefaultCatalog(), agent.DefaultPhrasebook(), agent.Options{}, logger)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	for _, n := range names {
		if _, err := engine.Register(n, 18, "Female"); err != nil {
			t.Fatal(err)
		}
	}
	gw := gateway.NewGateway(logger)
	ca := &captureAdapter{}
	gw.Register(ca)

	reg := command.NewRegistry()
	command.RegisterBuiltins(reg, engine, gw)
	return New(engine, gw, reg, defaultAgent, logger), ca, engine
}

func inbound(content string) *gateway.InboundMessage {
	return &gateway.InboundMessage{Platform: "test", ChannelID: "c1", UserName: "u", Content: content, ReplyTo: "t1"}
}

func TestRouteMention(t *testing.T) {
	mr, ca, engine := newTestRouter(t, "", "Static", "Steele")

	mr.Handle(inbound("hey @steele what is 2+2"))
	if ca.last == nil {
		t.Fatal("no reply sent")
	}
	if ca.last.Agent != "Steele" || ca.last.ReplyTo != "t1" || ca.last.ChannelID != "c1" {
		t.Fatalf("reply = %+v", ca.last)
	}
	if ca.last.Content != "Boom! The answer is 4! High-speed math! ⚡" {
		t.Errorf("content = %q", ca.last.Content)
	}
	tr := mustAgent(t, engine, "Steele").Transcript(0)
	if len(tr) != 1 || tr[0].Input != "hey what is 2+2" {
		t.Errorf("transcript = %+v", tr)
	}
}

func TestRouteMentionWholeWord(t *testing.T) {
	mr, ca, _ := newTestRouter(t, "", "Static", "Steele")
	mr.Handle(inbound("@Steeler 2+2"))
	if ca.last.Agent != "" || !strings.HasPrefix(ca.last.Content, "No agent matched") {
		t.Errorf("reply = %+v", ca.last)
	}
}

func TestRouteMentionAfterCaseChangingRunes(t *testing.T) {
	// Ⱥ grows and the Kelvin sign shrinks when lowercased.
	mr, ca, engine := newTestRouter(t, "", "Static", "Steele")

	mr.Handle(inbound("ȺȺȺ @Static"))
	if ca.last == nil || ca.last.Agent != "Static" {
		t.Fatalf("reply = %+v", ca.last)
	}

	kelvin := "\u212A\u212A\u212A"
	mr.Handle(inbound(kelvin + " @static hello"))
	tr := mustAgent(t, engine, "Static").Transcript(0)
	if len(tr) != 2 {
		t.Fatalf("transcript = %+v", tr)
	}
	if tr[0].Input != "ȺȺȺ" {
		t.Errorf("first input = %q", tr[0].Input)
	}
	if tr[1].Input != kelvin+" hello" {
		t.Errorf("second input = %q, want %q", tr[1].Input, kelvin+" hello")
	}
}

func TestFindMention(t *testing.T) {
	tests := []struct {
		content, name string
		want          string
	}{
		{"hi @STEELE!", "Steele", "@STEELE"},
		{"@Steeler then @steele", "Steele", "@steele"},
		{"@Steeler", "Steele", ""},
		{"mail a@b.c", "b.c", "@b.c"},
		{"mail a@bxc", "b.c", ""},
	}
	for _, tt := range tests {
		start, end := findMention(tt.content, tt.name)
		got := ""
		if start >= 0 {
			got = tt.content[start:end]
		}
		if got != tt.want {
			t.Errorf("findMention(%q, %q) = %q, want %q", tt.content, tt.name, got, tt.want)
		}
	}
}

func TestRouteDefaultAgent(t *testing.T) {
	mr, ca, _ := newTestRouter(t, "Static", "Static", "Steele")
	mr.Handle(inbound("5*5"))
	if ca.last.Agent != "Static" || ca.last.Content != "Boom! The answer is 25! High-speed math! ⚡" {
		t.Errorf("reply = %+v", ca.last)
	}
}

func TestRouteSoleAgent(t *testing.T) {
	mr, ca, _ := newTestRouter(t, "", "Static")
	mr.Handle(inbound(""))
	if ca.last.Agent != "Static" {
		t.Fatalf("reply = %+v", ca.last)
	}
	if !strings.HasPrefix(ca.last.Content, "Silence? Really?") {
		t.Errorf("content = %q", ca.last.Content)
	}
}

func TestRouteNoAgent(t *testing.T) {
	mr, ca, _ := newTestRouter(t, "Ghost", "Static", "Steele")
	mr.Handle(inbound("hello"))
	if !strings.HasPrefix(ca.last.Content, "No agent matched") {
		t.Errorf("content = %q", ca.last.Content)
	}
}

func TestRouteCommand(t *testing.T) {
	mr, ca, _ := newTestRouter(t, "", "Static", "Steele")
	mr.Handle(inbound("/agents"))
	if !strings.HasPrefix(ca.last.Content, "Registered agents:") {
		t.Errorf("content = %q", ca.last.Content)
	}
	mr.Handle(inbound("/status"))
	if !strings.Contains(ca.last.Content, "test: disconnected") {
		t.Errorf("status = %q", ca.last.Content)
	}
}

func mustAgent(t *testing.T, e *agent.Engine, name string) *agent.Agent {
	t.Helper()
	a, ok := e.Get(name)
	if !ok {
		t.Fatalf("agent %s missing", name)
	}
	return a
}
