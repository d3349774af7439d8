package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeAdapter records everything sent through it.
type fakeAdapter struct {
	platform   string
	handler    MessageHandler
	connectErr error
	mu         sync.Mutex
	sent       []*OutboundMessage
	broadcasts []*BroadcastMessage
}

func (f *fakeAdapter) Platform() string { return f.platform }
func (f *fakeAdapter) Connect(_ context.Context) error { return f.connectErr }
func (f *fakeAdapter) OnMessage(h MessageHandler) { f.handler = h }
func (f *fakeAdapter) Close() error { return nil }
func (f *fakeAdapter) Status() AdapterStatus { return AdapterStatus{Platform: f.platform, Connected: f.connectErr == nil} }
func (f *fakeAdapter) Send(_ context.Context, m *OutboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return nil
}
func (f *fakeAdapter) Broadcast(_ context.Context, m *BroadcastMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, m)
	return nil
}

func TestGatewayDispatchesToHandler(t *testing.T) {
	gw := NewGateway(zap.NewNop())
	fa := &fakeAdapter{platform: "fake"}
	gw.Register(fa)

	var got *InboundMessage
	gw.SetHandler(func(m *InboundMessage) { got = m })

	fa.handler(&InboundMessage{Platform: "fake", Content: "hi"})
	if got == nil || got.Content != "hi" {
		t.Fatalf("handler got %+v", got)
	}
}

func TestGatewaySendUnknownPlatform(t *testing.T) {
	gw := NewGateway(zap.NewNop())
	if err := gw.Send(context.Background(), &OutboundMessage{Platform: "nope"}); err == nil {
		t.Fatal("expected error for unknown platform")
	}
}

func TestGatewayConnectAllJoinsErrors(t *testing.T) {
	gw := NewGateway(zap.NewNop())
	boom := errors.New("boom")
	gw.Register(&fakeAdapter{platform: "ok"})
	gw.Register(&fakeAdapter{platform: "bad", connectErr: boom})

	err := gw.ConnectAll(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("ConnectAll err = %v, want wrapping boom", err)
	}
}

func TestGatewayStatusAllSorted(t *testing.T) {
	gw := NewGateway(zap.NewNop())
	gw.Register(&fakeAdapter{platform: "zeta"})
	gw.Register(&fakeAdapter{platform: "alpha"})

	st := gw.StatusAll()
	if len(st) != 2 || st[0].Platform != "alpha" || st[1].Platform != "zeta" {
		t.Fatalf("StatusAll = %+v", st)
	}
}

func TestBroadcasterNudgeAndHistory(t *testing.T) {
	gw := NewGateway(zap.NewNop())
	a, b := &fakeAdapter{platform: "a"}, &fakeAdapter{platform: "b"}
	gw.Register(a)
	gw.Register(b)
	bc := NewBroadcaster(gw, zap.NewNop())

	if err := bc.Nudge(context.Background(), "Static", "Hello? Still there?"); err != nil {
		t.Fatalf("Nudge: %v", err)
	}
	for _, f := range []*fakeAdapter{a, b} {
		if len(f.broadcasts) != 1 || f.broadcasts[0].Type != BroadcastIdleNudge || f.broadcasts[0].Agent != "Static" {
			t.Errorf("%s broadcasts = %+v", f.platform, f.broadcasts)
		}
	}

	hist := bc.History(10)
	if len(hist) != 1 {
		t.Fatalf("history len = %d, want 1", len(hist))
	}
	if len(hist[0].Targets) != 2 || hist[0].Targets[0] != "a" {
		t.Errorf("targets = %v", hist[0].Targets)
	}
}

func TestBroadcasterRequiresType(t *testing.T) {
	bc := NewBroadcaster(NewGateway(zap.NewNop()), zap.NewNop())
	if err := bc.Send(context.Background(), &BroadcastMessage{Content: "x"}); err == nil {
		t.Fatal("expected error for missing type")
	}
}

func TestBroadcasterHistoryBounded(t *testing.T) {
	bc := NewBroadcaster(NewGateway(zap.NewNop()), zap.NewNop())
	for i := 0; i < maxHistory+5; i++ {
		if err := bc.Send(context.Background(), &BroadcastMessage{Type: BroadcastAnnouncement}); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(bc.History(0)); n != maxHistory {
		t.Fatalf("history len = %d, want %d", n, maxHistory)
	}
	if n := len(bc.History(3)); n != 3 {
		t.Fatalf("History(3) len = %d", n)
	}
}

func TestRESTAdapterRoundTrip(t *testing.T) {
	rest := NewRESTAdapter(2*time.Second, zap.NewNop())
	gw := NewGateway(zap.NewNop())
	gw.Register(rest)
	gw.SetHandler(func(m *InboundMessage) {
		_ = gw.Send(context.Background(), &OutboundMessage{
			Platform:  m.Platform,
			ChannelID: m.ChannelID,
			Agent:     "Static",
			Content:   "echo: " + m.Content,
		})
	})

	ts := httptest.NewServer(rest.Routes())
	defer ts.Close()

	body, _ := json.Marshal(map[string]string{"user_id": "u1", "content": "hello"})
	resp, err := http.Post(ts.URL+"/message", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out OutboundMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Content != "echo: hello" || out.Agent != "Static" || out.Platform != "rest" {
		t.Fatalf("reply = %+v", out)
	}
}

func TestRESTAdapterTimeout(t *testing.T) {
	rest := NewRESTAdapter(50*time.Millisecond, zap.NewNop())
	rest.OnMessage(func(*InboundMessage) {})
	ts := httptest.NewServer(rest.Routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/message", "application/json", bytes.NewBufferString(`{"content":"x"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", resp.StatusCode)
	}
}

func TestRESTAdapterHandlerPanic(t *testing.T) {
	rest := NewRESTAdapter(50*time.Millisecond, zap.NewNop())
	rest.OnMessage(func(*InboundMessage) { panic("boom") })
	ts := httptest.NewServer(rest.Routes())
	defer ts.Close()

	for i := 0; i < 2; i++ {
		resp, err := http.Post(ts.URL+"/message", "application/json", bytes.NewBufferString(`{"content":"x"}`))
		if err != nil {
			t.Fatalf("POST %d: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusGatewayTimeout {
			t.Fatalf("request %d: status = %d, want 504", i, resp.StatusCode)
		}
	}
}

func TestRESTAdapterBadBody(t *testing.T) {
	rest := NewRESTAdapter(0, zap.NewNop())
	rest.OnMessage(func(*InboundMessage) {})
	ts := httptest.NewServer(rest.Routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/message", "application/json", bytes.NewBufferString(`{`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRESTAdapterSendUnknownChannel(t *testing.T) {
	rest := NewRESTAdapter(0, zap.NewNop())
	if err := rest.Send(context.Background(), &OutboundMessage{ChannelID: "missing"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSplitWebhookURL(t *testing.T) {
	id, tok, err := splitWebhookURL("https://discord.com/api/webhooks/123/abc")
	if err != nil || id != "123" || tok != "abc" {
		t.Fatalf("got %q %q %v", id, tok, err)
	}
	if _, _, err := splitWebhookURL("https://example.com/nothing"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}

func TestPrefixAgent(t *testing.T) {
	if got := prefixAgent("", "hi"); got != "hi" {
		t.Errorf("got %q", got)
	}
	if got := prefixAgent("Steele", "hi"); got != "**[Steele]** hi" {
		t.Errorf("got %q", got)
	}
}
