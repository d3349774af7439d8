package agent

import (
	"context"
	"strings"
	"time"

	"github.com/nidhogg/sparkbot/internal/intent"
	"github.com/nidhogg/sparkbot/internal/lookup"
)

// Synthesizer turns a matched intent into reply text.
type Synthesizer struct {
	phrases     Phrasebook
	rand        RandomSource
	resolver    lookup.AddressResolver
	embellishP  float64
	noEmbellish map[string]bool
	timeAware   map[string]bool
}

func newSynthesizer(p Phrasebook, r RandomSource, res lookup.AddressResolver, embellishP float64, noEmbellish, timeAware []string) *Synthesizer {
	return &Synthesizer{
		phrases:     p,
		rand:        r,
		resolver:    res,
		embellishP:  embellishP,
		noEmbellish: toSet(noEmbellish),
		timeAware:   toSet(timeAware),
	}
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, it := range items {
		s[it] = true
	}
	return s
}

// Synthesize picks a response for label and decorates it. Embellished output
// is opener, base, mood fragment and closer in that order; time-aware labels
// get the time-of-day suffix last.
func (s *Synthesizer) Synthesize(label string, responses []string, mood Mood, at time.Time) string {
	parts := []string{pick(s.rand, responses)}

	if !s.noEmbellish[label] && s.rand.Float64() < s.embellishP {
		opener := pick(s.rand, s.phrases.Openers)
		fragment := pick(s.rand, s.phrases.MoodFragments[mood])
		closer := pick(s.rand, s.phrases.Closers)
		parts = []string{opener, parts[0], fragment, closer}
	}

	if s.timeAware[label] {
		parts = append(parts, s.phrases.TimeOfDay.For(at.Hour()))
	}
	return joinNonEmpty(parts)
}

// Resolve replaces deferred placeholders. The address lookup is the only
// blocking step of a turn.
func (s *Synthesizer) Resolve(ctx context.Context, text string) string {
	if !strings.Contains(text, intent.AddressPlaceholder) {
		return text
	}
	addr := lookup.FallbackAddress
	if s.resolver != nil {
		addr = s.resolver.Address(ctx)
	}
	return strings.ReplaceAll(text, intent.AddressPlaceholder, addr)
}

func joinNonEmpty(parts []string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
