package router

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/nidhogg/sparkbot/internal/agent"
	"github.com/nidhogg/sparkbot/internal/command"
	"github.com/nidhogg/sparkbot/internal/gateway"
	"go.uber.org/zap"
)

// replyTimeout bounds one routed turn, including the address lookup.
const replyTimeout = 10 * time.Second

// MessageRouter routes inbound platform messages to agents or slash commands.
type MessageRouter struct {
	engine       *agent.Engine
	gw           *gateway.Gateway
	commands     *command.Registry
	defaultAgent string
	logger       *zap.Logger
}

// New creates a MessageRouter. defaultAgent answers messages that mention no
// agent; when empty, a lone registered agent answers instead.
func New(engine *agent.Engine, gw *gateway.Gateway, commands *command.Registry,
	defaultAgent string, logger *zap.Logger) *MessageRouter {
	return &MessageRouter{
		engine:       engine,
		gw:           gw,
		commands:     commands,
		defaultAgent: defaultAgent,
		logger:       logger,
	}
}

// Handle routes one inbound message. It matches gateway.MessageHandler.
func (mr *MessageRouter) Handle(msg *gateway.InboundMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	mr.logger.Debug("routing message",
		zap.String("platform", msg.Platform),
		zap.String("channel", msg.ChannelID),
		zap.String("user", msg.UserName),
	)

	if mr.commands != nil && command.IsCommand(msg.Content) {
		result, err := mr.commands.Dispatch(ctx, msg.Content, &command.CommandContext{
			Platform:  msg.Platform,
			ChannelID: msg.ChannelID,
			UserID:    msg.UserID,
			UserName:  msg.UserName,
		})
		if err != nil {
			mr.logger.Error("command dispatch error", zap.Error(err))
			mr.sendReply(ctx, msg, "", "Command error: "+err.Error())
			return
		}
		mr.sendReply(ctx, msg, "", result.Content)
		return
	}

	name, text := mr.resolveAgent(msg.Content)
	if name == "" {
		mr.sendReply(ctx, msg, "", "No agent matched. Mention an agent with @Name.")
		return
	}

	turn, err := mr.engine.Think(ctx, name, text)
	if err != nil {
		mr.logger.Error("agent turn failed", zap.String("agent", name), zap.Error(err))
		mr.sendReply(ctx, msg, "", fmt.Sprintf("Agent error: %s", err.Error()))
		return
	}
	mr.sendReply(ctx, msg, name, turn.Response)
}

// resolveAgent finds an @Name mention (case-insensitive) and returns the
// agent name with the mention stripped from the content.
func (mr *MessageRouter) resolveAgent(content string) (string, string) {
	agents := mr.engine.List()
	for _, a := range agents {
		if start, end := findMention(content, a.Name()); start >= 0 {
			clean := content[:start] + content[end:]
			return a.Name(), strings.Join(strings.Fields(clean), " ")
		}
	}
	if mr.defaultAgent != "" {
		if _, ok := mr.engine.Get(mr.defaultAgent); ok {
			return mr.defaultAgent, content
		}
	}
	if len(agents) == 1 {
		return agents[0].Name(), content
	}
	return "", content
}

// findMention returns the byte span of "@name" in content, matched without
// regard to case and as a whole word so "@Steele" does not match "@Steeler".
// The returned offsets index content, not a case-folded copy of it.
func findMention(content, name string) (int, int) {
	re, err := regexp.Compile(`(?i)@` + regexp.QuoteMeta(name))
	if err != nil {
		return -1, -1
	}
	for _, loc := range re.FindAllStringIndex(content, -1) {
		next, _ := utf8.DecodeRuneInString(content[loc[1]:])
		if loc[1] == len(content) || !isNameRune(next) {
			return loc[0], loc[1]
		}
	}
	return -1, -1
}

func isNameRune(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (mr *MessageRouter) sendReply(ctx context.Context, orig *gateway.InboundMessage, agentName, text string) {
	err := mr.gw.Send(ctx, &gateway.OutboundMessage{
		Platform:  orig.Platform,
		ChannelID: orig.ChannelID,
		Agent:     agentName,
		Content:   text,
		ReplyTo:   orig.ReplyTo,
	})
	if err != nil {
		mr.logger.Error("send reply failed", zap.Error(err))
	}
}
