package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nidhogg/sparkbot/internal/intent"
	"github.com/nidhogg/sparkbot/internal/lookup"
	"github.com/nidhogg/sparkbot/internal/mathexpr"
	"go.uber.org/zap"
)

const (
	DefaultIdleAfter            = 30 * time.Second
	DefaultMaxTranscript        = 500
	DefaultEmbellishProbability = 0.5
)

// Options tune agent behavior. Zero values take the defaults noted per field.
type Options struct {
	// EmbellishProbability is the chance a reply gets opener/mood/closer
	// fragments. Negative disables embellishment; zero means the default.
	EmbellishProbability float64
	// NoEmbellish lists intent labels whose replies are never decorated.
	// Nil means INSULT.
	NoEmbellish []string
	// TimeAware lists intent labels that get a time-of-day suffix.
	// Nil means GREETING.
	TimeAware []string
	// InitialMood defaults to energetic.
	InitialMood Mood
	// IdleAfter defaults to 30s.
	IdleAfter time.Duration
	// MaxTranscript caps the transcript. Zero means the default; negative keeps everything.
	MaxTranscript int
	// NewRandom builds each agent's random source. Defaults to NewRandom.
	NewRandom func() RandomSource
	// Resolver answers the address placeholder. Defaults to the fallback address.
	Resolver lookup.AddressResolver
	// Now defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	switch {
	case o.EmbellishProbability == 0:
		o.EmbellishProbability = DefaultEmbellishProbability
	case o.EmbellishProbability < 0:
		o.EmbellishProbability = 0
	}
	if o.NoEmbellish == nil {
		o.NoEmbellish = []string{intent.LabelInsult}
	}
	if o.TimeAware == nil {
		o.TimeAware = []string{intent.LabelGreeting}
	}
	if o.InitialMood == "" {
		o.InitialMood = MoodEnergetic
	}
	if o.IdleAfter <= 0 {
		o.IdleAfter = DefaultIdleAfter
	}
	switch {
	case o.MaxTranscript == 0:
		o.MaxTranscript = DefaultMaxTranscript
	case o.MaxTranscript < 0:
		o.MaxTranscript = 0
	}
	if o.NewRandom == nil {
		o.NewRandom = NewRandom
	}
	if o.Resolver == nil {
		o.Resolver = lookup.Static(lookup.FallbackAddress)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// ErrInvalidOptions wraps option validation failures.
var ErrInvalidOptions = errors.New("invalid agent options")

func (o Options) validate(c *intent.Catalog, p Phrasebook) error {
	if o.EmbellishProbability > 1 {
		return fmt.Errorf("%w: embellish probability %v above 1", ErrInvalidOptions, o.EmbellishProbability)
	}
	if !o.InitialMood.Valid() {
		return fmt.Errorf("%w: unknown initial mood %q", ErrInvalidOptions, o.InitialMood)
	}
	for _, label := range append(append([]string(nil), o.NoEmbellish...), o.TimeAware...) {
		if _, ok := c.Lookup(label); !ok {
			return fmt.Errorf("%w: unknown intent label %s", ErrInvalidOptions, label)
		}
	}
	return p.Validate(o.EmbellishProbability > 0)
}

// Agent is one character persona with its own session memory. Turns against
// the same agent are serialized.
type Agent struct {
	persona   Persona
	catalog   *intent.Catalog
	responses map[string][]string
	phrases   Phrasebook
	synth     *Synthesizer
	negative  map[string]bool
	positive  map[string]bool
	opts      Options
	nudgeRand RandomSource

	mu  sync.Mutex
	mem Memory

	logger *zap.Logger
}

// New builds an agent. Configuration problems are reported here, never at turn time.
func New(p Persona, catalog *intent.Catalog, phrases Phrasebook, opts Options, logger *zap.Logger) (*Agent, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: persona name is required", ErrInvalidOptions)
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog is required", ErrInvalidOptions)
	}
	opts = opts.withDefaults()
	if err := opts.validate(catalog, phrases); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	responses := make(map[string][]string)
	for _, d := range catalog.Definitions() {
		filled := make([]string, len(d.Responses))
		for i, r := range d.Responses {
			filled[i] = p.Fill(r)
		}
		responses[d.Label] = filled
	}

	rnd := opts.NewRandom()
	return &Agent{
		persona:   p,
		catalog:   catalog,
		responses: responses,
		phrases:   phrases,
		synth:     newSynthesizer(phrases, rnd, opts.Resolver, opts.EmbellishProbability, opts.NoEmbellish, opts.TimeAware),
		negative:  toSet(phrases.NegativeWords),
		positive:  toSet(phrases.PositiveWords),
		opts:      opts,
		nudgeRand: rnd,
		mem:       newMemory(opts.InitialMood, opts.Now()),
		logger:    logger.With(zap.String("agent", p.Name)),
	}, nil
}

// Persona returns the agent's identity.
func (a *Agent) Persona() Persona { return a.persona }

// Name returns the persona name.
func (a *Agent) Name() string { return a.persona.Name }

// Think runs one turn and returns only the reply text.
func (a *Agent) Think(ctx context.Context, text string) string {
	return a.Respond(ctx, text).Response
}

// Respond runs one turn: empty check, math, mood, intent detection,
// synthesis, placeholder resolution and memory update.
func (a *Agent) Respond(ctx context.Context, text string) Turn {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.opts.Now()
	input := strings.TrimSpace(text)
	a.mem.LastActiveAt = now
	a.mem.IdleNudgeSent = false

	turn := Turn{Agent: a.persona.Name, Input: input, Time: now}

	if input == "" {
		turn.Kind = TurnEmpty
		turn.Response = a.phrases.EmptyReply
		turn.Mood = a.mem.Mood
		return turn
	}

	if reply, ok := mathexpr.TryEvaluate(input); ok {
		turn.Kind = TurnMath
		turn.Response = reply
		return a.complete(turn)
	}

	tokens := intent.Tokenize(input)
	a.updateMood(tokens)

	if best, ok := a.catalog.Detect(tokens); ok {
		label := best.Intent.Label
		turn.Kind = TurnIntent
		turn.Intent = label
		turn.Score = best.Score
		reply := a.synth.Synthesize(label, a.responses[label], a.mem.Mood, now)
		turn.Response = a.synth.Resolve(ctx, reply)
	} else {
		turn.Kind = TurnFallback
		turn.Response = a.phrases.FallbackReply
	}

	a.logger.Debug("turn complete",
		zap.String("kind", string(turn.Kind)),
		zap.String("intent", turn.Intent),
		zap.Float64("score", turn.Score),
		zap.String("mood", string(a.mem.Mood)))

	return a.complete(turn)
}

// complete records a finished turn. Caller holds a.mu.
func (a *Agent) complete(turn Turn) Turn {
	turn.ID = uuid.New().String()
	turn.Mood = a.mem.Mood
	a.mem.record(turn, a.opts.MaxTranscript)
	a.mem.LastIntent = turn.Intent
	a.mem.InteractionCount++
	a.mem.LastActiveAt = a.opts.Now()
	return turn
}

// updateMood applies sentiment keywords. Negative words take precedence when
// both kinds appear; without either the mood is unchanged.
func (a *Agent) updateMood(tokens []string) {
	var neg, pos bool
	for _, t := range tokens {
		neg = neg || a.negative[t]
		pos = pos || a.positive[t]
	}
	switch {
	case neg:
		a.mem.Mood = MoodAnnoyed
	case pos:
		a.mem.Mood = MoodEnergetic
	}
}

// CheckIdle returns a nudge once the agent has been idle longer than the idle
// threshold, and then stays quiet until the next turn.
func (a *Agent) CheckIdle() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mem.IdleNudgeSent || a.opts.Now().Sub(a.mem.LastActiveAt) <= a.opts.IdleAfter {
		return "", false
	}
	a.mem.IdleNudgeSent = true
	return pick(a.nudgeRand, a.phrases.Nudges), true
}

// Memory returns a copy of the session memory without the transcript.
func (a *Agent) Memory() Memory {
	a.mu.Lock()
	defer a.mu.Unlock()
	m := a.mem
	m.Transcript = nil
	return m
}

// Transcript returns up to limit most recent turns, oldest first. A limit of
// zero or less returns everything.
func (a *Agent) Transcript(limit int) []Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	t := a.mem.Transcript
	if limit > 0 && limit < len(t) {
		t = t[len(t)-limit:]
	}
	out := make([]Turn, len(t))
	copy(out, t)
	return out
}
