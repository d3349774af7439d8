package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nidhogg/sparkbot/internal/agent"
	"github.com/nidhogg/sparkbot/internal/gateway"
	"github.com/nidhogg/sparkbot/internal/intent"
)

// DefaultHistory is how many turns /history shows without a count.
const DefaultHistory = 5

// Agents is the part of the agent registry the commands read.
type Agents interface {
	List() []*agent.Agent
	Get(name string) (*agent.Agent, bool)
	Catalog() *intent.Catalog
}

// StatusProvider reports adapter connection state.
type StatusProvider interface {
	StatusAll() []gateway.AdapterStatus
}

// RegisterBuiltins registers /help, /agents, /mood, /history, /intents and,
// when status is non-nil, /status.
func RegisterBuiltins(reg *Registry, agents Agents, status StatusProvider) {
	reg.Register(helpCommand(reg))
	reg.Register(agentsCommand(agents))
	reg.Register(moodCommand(agents))
	reg.Register(historyCommand(agents))
	reg.Register(intentsCommand(agents))
	if status != nil {
		reg.Register(statusCommand(status))
	}
}

func helpCommand(reg *Registry) *Command {
	return &Command{
		Name:        "help",
		Description: "List all available commands",
		Usage:       "/help",
		Handler: func(_ context.Context, _ string, _ *CommandContext) (*CommandResult, error) {
			var b strings.Builder
			b.WriteString("Available commands:\n")
			for _, c := range reg.List() {
				fmt.Fprintf(&b, "  /%s: %s\n", c.Name, c.Description)
				if c.Usage != "" {
					fmt.Fprintf(&b, "    Usage: %s\n", c.Usage)
				}
			}
			return &CommandResult{Content: b.String()}, nil
		},
	}
}

func agentsCommand(agents Agents) *Command {
	return &Command{
		Name:        "agents",
		Description: "List registered agents",
		Usage:       "/agents",
		Handler: func(_ context.Context, _ string, _ *CommandContext) (*CommandResult, error) {
			list := agents.List()
			if len(list) == 0 {
				return &CommandResult{Content: "No agents registered."}, nil
			}
			var b strings.Builder
			b.WriteString("Registered agents:\n")
			for _, a := range list {
				p, m := a.Persona(), a.Memory()
				fmt.Fprintf(&b, "  %s (%d, %s), mood: %s, turns: %d\n",
					p.Name, p.Age, p.Gender, m.Mood, m.InteractionCount)
			}
			return &CommandResult{Content: b.String(), Data: names(list)}, nil
		},
	}
}

func moodCommand(agents Agents) *Command {
	return &Command{
		Name:        "mood",
		Description: "Show an agent's mood and last intent",
		Usage:       "/mood <agent>",
		Handler: func(_ context.Context, args string, _ *CommandContext) (*CommandResult, error) {
			a, res := lookupAgent(agents, args)
			if a == nil {
				return res, nil
			}
			m := a.Memory()
			last := m.LastIntent
			if last == "" {
				last = "none"
			}
			return &CommandResult{
				Content: fmt.Sprintf("%s is %s. Last intent: %s. Turns: %d.",
					a.Name(), m.Mood, last, m.InteractionCount),
				Data: m,
			}, nil
		},
	}
}

func historyCommand(agents Agents) *Command {
	return &Command{
		Name:        "history",
		Description: "Show an agent's recent turns",
		Usage:       "/history <agent> [count]",
		Handler: func(_ context.Context, args string, _ *CommandContext) (*CommandResult, error) {
			fields := strings.Fields(args)
			limit := DefaultHistory
			if len(fields) > 1 {
				n, err := strconv.Atoi(fields[1])
				if err != nil || n <= 0 {
					return &CommandResult{Content: "Count must be a positive number."}, nil
				}
				limit = n
			}
			name := ""
			if len(fields) > 0 {
				name = fields[0]
			}
			a, res := lookupAgent(agents, name)
			if a == nil {
				return res, nil
			}
			turns := a.Transcript(limit)
			if len(turns) == 0 {
				return &CommandResult{Content: a.Name() + " has not said anything yet."}, nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Last %d turns with %s:\n", len(turns), a.Name())
			for _, t := range turns {
				label := t.Intent
				if label == "" {
					label = string(t.Kind)
				}
				fmt.Fprintf(&b, "  [%s] %q -> %s\n", label, t.Input, t.Response)
			}
			return &CommandResult{Content: b.String(), Data: turns}, nil
		},
	}
}

func intentsCommand(agents Agents) *Command {
	return &Command{
		Name:        "intents",
		Description: "List the intents agents recognize",
		Usage:       "/intents",
		Handler: func(_ context.Context, _ string, _ *CommandContext) (*CommandResult, error) {
			var b strings.Builder
			b.WriteString("Intents:\n")
			for _, d := range agents.Catalog().Definitions() {
				fmt.Fprintf(&b, "  %s (threshold %.2f, %d examples)\n",
					d.Label, d.Threshold, len(d.Examples))
			}
			return &CommandResult{Content: b.String()}, nil
		},
	}
}

func statusCommand(provider StatusProvider) *Command {
	return &Command{
		Name:        "status",
		Description: "Show adapter connection status",
		Usage:       "/status",
		Handler: func(_ context.Context, _ string, _ *CommandContext) (*CommandResult, error) {
			adapters := provider.StatusAll()
			if len(adapters) == 0 {
				return &CommandResult{Content: "No adapters configured."}, nil
			}
			var b strings.Builder
			b.WriteString("Adapter status:\n")
			for _, a := range adapters {
				state := "disconnected"
				if a.Connected {
					state = "connected"
				}
				fmt.Fprintf(&b, "  %s: %s", a.Platform, state)
				if a.Error != "" {
					fmt.Fprintf(&b, " (%s)", a.Error)
				}
				b.WriteByte('\n')
			}
			return &CommandResult{Content: b.String(), Data: adapters}, nil
		},
	}
}

func lookupAgent(agents Agents, name string) (*agent.Agent, *CommandResult) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	if name == "" {
		return nil, &CommandResult{Content: "Which agent? Try one of: " + strings.Join(names(agents.List()), ", ")}
	}
	a, ok := agents.Get(name)
	if !ok {
		return nil, &CommandResult{Content: fmt.Sprintf("No agent named %s.", name)}
	}
	return a, nil
}

func names(list []*agent.Agent) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.Name()
	}
	return out
}
