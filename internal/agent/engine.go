package agent

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/nidhogg/sparkbot/internal/intent"
	"go.uber.org/zap"
)

// ErrAgentNotFound is returned when no agent is registered under a name.
var ErrAgentNotFound = errors.New("agent not found")

// TurnSink receives every recorded turn, e.g. for archiving or fan-out.
type TurnSink interface {
	RecordTurn(ctx context.Context, t Turn) error
}

// Engine is the registry of agents. Agents are keyed by persona name and
// share one catalog, phrasebook and option set.
type Engine struct {
	agents  map[string]*Agent
	catalog *intent.Catalog
	phrases Phrasebook
	opts    Options
	sinks   []TurnSink
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewEngine validates the shared configuration and returns an empty registry.
func NewEngine(catalog *intent.Catalog, phrases Phrasebook, opts Options, logger *zap.Logger) (*Engine, error) {
	if catalog == nil {
		return nil, errors.New("engine: catalog is required")
	}
	if err := opts.withDefaults().validate(catalog, phrases); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		agents:  make(map[string]*Agent),
		catalog: catalog,
		phrases: phrases,
		opts:    opts,
		logger:  logger,
	}, nil
}

// Catalog returns the shared intent catalog.
func (e *Engine) Catalog() *intent.Catalog { return e.catalog }

// AddSink registers a sink for recorded turns.
func (e *Engine) AddSink(s TurnSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, s)
}

// Register creates an agent with fresh memory. A later registration under the
// same name replaces the earlier agent.
func (e *Engine) Register(name string, age int, gender string) (*Agent, error) {
	a, err := New(Persona{Name: name, Age: age, Gender: gender}, e.catalog, e.phrases, e.opts, e.logger)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	_, replaced := e.agents[name]
	e.agents[name] = a
	e.mu.Unlock()

	e.logger.Info("registered agent",
		zap.String("name", name),
		zap.Int("age", age),
		zap.String("gender", gender),
		zap.Bool("replaced", replaced))
	return a, nil
}

// Get returns an agent by name.
func (e *Engine) Get(name string) (*Agent, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.agents[name]
	return a, ok
}

// List returns all registered agents sorted by name.
func (e *Engine) List() []*Agent {
	e.mu.RLock()
	result := make([]*Agent, 0, len(e.agents))
	for _, a := range e.agents {
		result = append(result, a)
	}
	e.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// Think runs a turn against the named agent and forwards recorded turns to
// the sinks. Sink failures are logged and never affect the reply.
func (e *Engine) Think(ctx context.Context, name, text string) (Turn, error) {
	a, ok := e.Get(name)
	if !ok {
		return Turn{}, ErrAgentNotFound
	}

	turn := a.Respond(ctx, text)
	if turn.Kind == TurnEmpty {
		return turn, nil
	}

	e.mu.RLock()
	sinks := append([]TurnSink(nil), e.sinks...)
	e.mu.RUnlock()

	for _, s := range sinks {
		if err := s.RecordTurn(ctx, turn); err != nil {
			e.logger.Warn("turn sink failed",
				zap.String("agent", name),
				zap.String("turn", turn.ID),
				zap.Error(err))
		}
	}
	return turn, nil
}

// CheckIdle asks the named agent for an idle nudge.
func (e *Engine) CheckIdle(name string) (string, bool, error) {
	a, ok := e.Get(name)
	if !ok {
		return "", false, ErrAgentNotFound
	}
	nudge, ok := a.CheckIdle()
	return nudge, ok, nil
}
