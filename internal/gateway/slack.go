package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"
)

// SlackAdapter connects to Slack over Socket Mode.
type SlackAdapter struct {
	client      *slack.Client
	socket      *socketmode.Client
	handler     MessageHandler
	personas    map[string]*AgentPersona // agent name -> persona
	channels    map[string]struct{}      // channels seen since connect
	connectedAt time.Time
	lastError   string
	connected   bool
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewSlackAdapter creates a Slack adapter from a bot token (xoxb-...) and an
// app-level token (xapp-...).
func NewSlackAdapter(botToken, appToken string, logger *zap.Logger) *SlackAdapter {
	client := slack.New(botToken, slack.OptionAppLevelToken(appToken))
	socket := socketmode.New(client, socketmode.OptionLog(zap.NewStdLog(logger)))

	return &SlackAdapter{
		client:   client,
		socket:   socket,
		personas: make(map[string]*AgentPersona),
		channels: make(map[string]struct{}),
		logger:   logger,
	}
}

func (a *SlackAdapter) Platform() string { return "slack" }

func (a *SlackAdapter) OnMessage(h MessageHandler) { a.handler = h }

// SetPersona sets how the named agent appears in Slack.
func (a *SlackAdapter) SetPersona(agentName string, persona *AgentPersona) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.personas[agentName] = persona
}

// Connect starts the Socket Mode event loop in the background.
func (a *SlackAdapter) Connect(ctx context.Context) error {
	go a.handleEvents(ctx)
	go func() {
		err := a.socket.RunContext(ctx)
		a.mu.Lock()
		a.connected = false
		if err != nil && ctx.Err() == nil {
			a.lastError = err.Error()
		}
		a.mu.Unlock()
		if err != nil && ctx.Err() == nil {
			a.logger.Error("slack socket mode error", zap.Error(err))
		}
	}()

	a.mu.Lock()
	a.connected = true
	a.connectedAt = time.Now()
	a.lastError = ""
	a.mu.Unlock()
	a.logger.Info("slack adapter connected via socket mode")
	return nil
}

func (a *SlackAdapter) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-a.socket.Events:
			if !ok {
				return
			}
			a.processEvent(evt)
		}
	}
}

func (a *SlackAdapter) processEvent(evt socketmode.Event) {
	if evt.Type != socketmode.EventTypeEventsAPI {
		return
	}
	eventsAPI, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		return
	}
	if evt.Request != nil {
		a.socket.Ack(*evt.Request)
	}
	if eventsAPI.Type != slackevents.CallbackEvent {
		return
	}
	if inner, ok := eventsAPI.InnerEvent.Data.(*slackevents.MessageEvent); ok {
		// Bot messages would loop back into the responder.
		if inner.BotID != "" {
			return
		}
		a.handleSlackMessage(inner)
	}
}

func (a *SlackAdapter) handleSlackMessage(ev *slackevents.MessageEvent) {
	if a.handler == nil {
		return
	}

	threadTS := ev.ThreadTimeStamp
	if threadTS == "" {
		threadTS = ev.TimeStamp
	}
	a.mu.Lock()
	a.channels[ev.Channel] = struct{}{}
	a.mu.Unlock()

	a.handler(&InboundMessage{
		Platform:  "slack",
		ChannelID: ev.Channel,
		UserID:    ev.User,
		UserName:  ev.User,
		Content:   ev.Text,
		Timestamp: time.Now(),
		ReplyTo:   threadTS,
	})
}

// Send posts a reply in the originating thread, styled as the agent.
func (a *SlackAdapter) Send(_ context.Context, msg *OutboundMessage) error {
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Content, false)}
	if msg.ReplyTo != "" {
		opts = append(opts, slack.MsgOptionTS(msg.ReplyTo))
	}
	opts = append(opts, a.personaOpts(msg.Agent)...)

	if _, _, err := a.client.PostMessage(msg.ChannelID, opts...); err != nil {
		a.logger.Error("slack send failed",
			zap.String("channel", msg.ChannelID), zap.Error(err))
		return fmt.Errorf("slack send: %w", err)
	}
	return nil
}

func (a *SlackAdapter) personaOpts(agentName string) []slack.MsgOption {
	if agentName == "" {
		return nil
	}
	a.mu.RLock()
	p, ok := a.personas[agentName]
	a.mu.RUnlock()
	if !ok {
		return []slack.MsgOption{slack.MsgOptionUsername(agentName)}
	}

	opts := []slack.MsgOption{slack.MsgOptionUsername(p.Name)}
	if p.IconURL != "" {
		opts = append(opts, slack.MsgOptionIconURL(p.IconURL))
	} else if p.Emoji != "" {
		opts = append(opts, slack.MsgOptionIconEmoji(p.Emoji))
	}
	return opts
}

// Broadcast posts to every channel that has talked to the bot since connect.
// Nudges are sent as plain text; other broadcasts get a bold title line.
func (a *SlackAdapter) Broadcast(_ context.Context, msg *BroadcastMessage) error {
	text := msg.Content
	if msg.Type != BroadcastIdleNudge {
		text = fmt.Sprintf("*%s*\n%s", msg.Title, msg.Content)
	}
	opts := append([]slack.MsgOption{slack.MsgOptionText(text, false)}, a.personaOpts(msg.Agent)...)

	a.mu.RLock()
	channels := make([]string, 0, len(a.channels))
	for id := range a.channels {
		channels = append(channels, id)
	}
	a.mu.RUnlock()

	for _, id := range channels {
		if _, _, err := a.client.PostMessage(id, opts...); err != nil {
			a.logger.Warn("slack broadcast to channel failed",
				zap.String("channel", id), zap.Error(err))
		}
	}
	return nil
}

func (a *SlackAdapter) Status() AdapterStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := AdapterStatus{
		Platform:  "slack",
		Connected: a.connected,
		Error:     a.lastError,
	}
	if a.connected {
		t := a.connectedAt
		s.ConnectedAt = &t
		s.Details = fmt.Sprintf("channels=%d", len(a.channels))
	}
	return s
}

// Close is a no-op; cancelling the Connect context stops the socket.
func (a *SlackAdapter) Close() error {
	return nil
}
