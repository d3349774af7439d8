package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordAdapter connects to Discord through the bot gateway.
type DiscordAdapter struct {
	token       string
	session     *discordgo.Session
	handler     MessageHandler
	personas    map[string]*AgentPersona // agent name -> persona
	webhooks    map[string]string        // channelID -> webhook URL
	channels    map[string]struct{}      // channels seen since connect
	connected   bool
	connectedAt time.Time
	lastError   string
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewDiscordAdapter creates a Discord gateway adapter.
func NewDiscordAdapter(token string, logger *zap.Logger) *DiscordAdapter {
	return &DiscordAdapter{
		token:    token,
		personas: make(map[string]*AgentPersona),
		webhooks: make(map[string]string),
		channels: make(map[string]struct{}),
		logger:   logger,
	}
}

func (a *DiscordAdapter) Platform() string { return "discord" }

func (a *DiscordAdapter) OnMessage(h MessageHandler) { a.handler = h }

// SetPersona sets how the named agent appears in Discord.
func (a *DiscordAdapter) SetPersona(agentName string, persona *AgentPersona) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.personas[agentName] = persona
}

// SetWebhook registers a channel webhook so replies can carry the agent's name and avatar.
func (a *DiscordAdapter) SetWebhook(channelID, webhookURL string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.webhooks[channelID] = webhookURL
}

// Connect opens the gateway websocket.
func (a *DiscordAdapter) Connect(_ context.Context) error {
	session, err := discordgo.New("Bot " + a.token)
	if err != nil {
		a.mu.Lock()
		a.lastError = fmt.Sprintf("session create: %v", err)
		a.mu.Unlock()
		return fmt.Errorf("discord session: %w", err)
	}
	a.session = session

	a.session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages
	a.session.AddHandler(a.onMessageCreate)

	if err := a.session.Open(); err != nil {
		a.mu.Lock()
		a.lastError = fmt.Sprintf("open failed: %v", err)
		a.connected = false
		a.mu.Unlock()
		return fmt.Errorf("discord open: %w", err)
	}

	now := time.Now()
	a.mu.Lock()
	a.connected = true
	a.connectedAt = now
	a.lastError = ""
	a.mu.Unlock()

	guildCount := len(a.session.State.Guilds)
	if guildCount == 0 {
		a.logger.Warn("discord bot is not in any guild")
	}

	a.logger.Info("discord adapter connected",
		zap.String("user", a.session.State.User.Username),
		zap.Int("guilds", guildCount))
	return nil
}

func (a *DiscordAdapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	if a.handler == nil {
		return
	}
	a.mu.Lock()
	a.channels[m.ChannelID] = struct{}{}
	a.mu.Unlock()

	a.handler(&InboundMessage{
		Platform:  "discord",
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		UserName:  m.Author.Username,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		ReplyTo:   m.ChannelID,
	})
}

// Send posts a reply. Channels with a webhook get the agent's persona;
// otherwise the agent name is prefixed to the text.
func (a *DiscordAdapter) Send(_ context.Context, msg *OutboundMessage) error {
	if a.session == nil {
		return fmt.Errorf("discord send: not connected")
	}
	a.mu.RLock()
	webhookURL := a.webhooks[msg.ChannelID]
	persona, hasPersona := a.personas[msg.Agent]
	a.mu.RUnlock()

	if webhookURL != "" && hasPersona {
		return a.sendViaWebhook(webhookURL, persona, msg.Content)
	}

	if _, err := a.session.ChannelMessageSend(msg.ChannelID, prefixAgent(msg.Agent, msg.Content)); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

func prefixAgent(agentName, content string) string {
	if agentName == "" {
		return content
	}
	return fmt.Sprintf("**[%s]** %s", agentName, content)
}

func (a *DiscordAdapter) sendViaWebhook(webhookURL string, persona *AgentPersona, content string) error {
	id, token, err := splitWebhookURL(webhookURL)
	if err != nil {
		return err
	}

	params := &discordgo.WebhookParams{
		Content:  content,
		Username: persona.Name,
	}
	if persona.IconURL != "" {
		params.AvatarURL = persona.IconURL
	}

	if _, err := a.session.WebhookExecute(id, token, false, params); err != nil {
		return fmt.Errorf("discord webhook execute: %w", err)
	}
	return nil
}

// splitWebhookURL extracts id and token from .../webhooks/{id}/{token}.
func splitWebhookURL(raw string) (id, token string, err error) {
	parts := strings.Split(strings.TrimRight(raw, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("discord webhook: malformed url %q", raw)
}

// Broadcast posts to every channel that has talked to the bot since connect.
func (a *DiscordAdapter) Broadcast(_ context.Context, msg *BroadcastMessage) error {
	if a.session == nil {
		return fmt.Errorf("discord broadcast: not connected")
	}
	content := prefixAgent(msg.Agent, msg.Content)
	if msg.Type != BroadcastIdleNudge {
		content = fmt.Sprintf("**%s**\n%s", msg.Title, content)
	}

	a.mu.RLock()
	channels := make([]string, 0, len(a.channels))
	for id := range a.channels {
		channels = append(channels, id)
	}
	a.mu.RUnlock()

	for _, id := range channels {
		if _, err := a.session.ChannelMessageSend(id, content); err != nil {
			a.logger.Warn("discord broadcast to channel failed",
				zap.String("channel", id), zap.Error(err))
		}
	}
	return nil
}

// Close shuts down the Discord session.
func (a *DiscordAdapter) Close() error {
	if a.session != nil {
		return a.session.Close()
	}
	return nil
}

func (a *DiscordAdapter) Status() AdapterStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := AdapterStatus{
		Platform:  "discord",
		Connected: a.connected,
		Error:     a.lastError,
	}
	if a.connected {
		t := a.connectedAt
		s.ConnectedAt = &t
		guildCount := 0
		if a.session != nil && a.session.State != nil {
			guildCount = len(a.session.State.Guilds)
		}
		s.Details = fmt.Sprintf("guilds=%d, channels=%d", guildCount, len(a.channels))
	}
	return s
}
