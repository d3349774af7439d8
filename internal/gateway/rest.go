package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultRESTTimeout bounds how long an HTTP caller waits for a reply.
const DefaultRESTTimeout = 30 * time.Second

// RESTAdapter turns each HTTP request into an inbound message and holds the
// request open until the reply is sent back on the same channel.
type RESTAdapter struct {
	handler  MessageHandler
	channels map[string]chan *OutboundMessage // channelID -> pending reply
	timeout  time.Duration
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewRESTAdapter creates a REST gateway adapter.
func NewRESTAdapter(timeout time.Duration, logger *zap.Logger) *RESTAdapter {
	if timeout <= 0 {
		timeout = DefaultRESTTimeout
	}
	return &RESTAdapter{
		channels: make(map[string]chan *OutboundMessage),
		timeout:  timeout,
		logger:   logger,
	}
}

func (a *RESTAdapter) Platform() string { return "rest" }

func (a *RESTAdapter) Connect(_ context.Context) error { return nil }

func (a *RESTAdapter) OnMessage(h MessageHandler) { a.handler = h }

func (a *RESTAdapter) Close() error { return nil }

func (a *RESTAdapter) Status() AdapterStatus {
	a.mu.RLock()
	pending := len(a.channels)
	a.mu.RUnlock()
	return AdapterStatus{
		Platform:  "rest",
		Connected: true,
		Details:   fmt.Sprintf("pending=%d", pending),
	}
}

// Send delivers a reply to a waiting REST channel.
func (a *RESTAdapter) Send(_ context.Context, msg *OutboundMessage) error {
	a.mu.RLock()
	ch, ok := a.channels[msg.ChannelID]
	a.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no active channel: %s", msg.ChannelID)
	}
	select {
	case ch <- msg:
		return nil
	default:
		return fmt.Errorf("channel %s buffer full", msg.ChannelID)
	}
}

// Routes returns a chi router with REST gateway endpoints.
func (a *RESTAdapter) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/message", a.handleMessage)
	return r
}

type restMessageRequest struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Content  string `json:"content"`
}

// handleMessage accepts an inbound message via HTTP and waits for the reply.
// Empty content is passed through; the responder answers it.
func (a *RESTAdapter) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req restMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if a.handler == nil {
		writeError(w, http.StatusServiceUnavailable, "gateway not wired")
		return
	}

	channelID := uuid.New().String()
	ch := make(chan *OutboundMessage, 1)

	a.mu.Lock()
	a.channels[channelID] = ch
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		delete(a.channels, channelID)
		a.mu.Unlock()
	}()

	go a.dispatch(&InboundMessage{
		Platform:  "rest",
		ChannelID: channelID,
		UserID:    req.UserID,
		UserName:  req.UserName,
		Content:   req.Content,
		Timestamp: time.Now(),
	})

	select {
	case msg := <-ch:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(msg)
	case <-time.After(a.timeout):
		writeError(w, http.StatusGatewayTimeout, "response timeout")
	case <-r.Context().Done():
		a.logger.Debug("rest caller went away", zap.String("channel", channelID))
	}
}

// dispatch runs the handler off the request goroutine, where chi's Recoverer
// does not reach. A panic is logged and the caller times out.
func (a *RESTAdapter) dispatch(msg *InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("rest handler panicked",
				zap.String("channel", msg.ChannelID),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()
	a.handler(msg)
}

// Broadcast delivers to every REST caller currently waiting for a reply.
func (a *RESTAdapter) Broadcast(_ context.Context, msg *BroadcastMessage) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for id, ch := range a.channels {
		select {
		case ch <- &OutboundMessage{
			Platform:  "rest",
			ChannelID: id,
			Agent:     msg.Agent,
			Content:   msg.Content,
		}:
		default:
		}
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
