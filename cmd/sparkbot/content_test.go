package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nidhogg/sparkbot/internal/agent"
	"github.com/nidhogg/sparkbot/internal/config"
	"github.com/nidhogg/sparkbot/internal/intent"
	"github.com/nidhogg/sparkbot/internal/lookup"
	"go.uber.org/zap"
)

func TestBuildCatalogDefault(t *testing.T) {
	c, err := buildCatalog(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Labels(); len(got) != 5 {
		t.Errorf("labels = %v", got)
	}
}

func TestBuildCatalogFromContent(t *testing.T) {
	c, err := buildCatalog(&config.ContentFile{
		Intents:    []config.IntentConfig{{Label: "PING", Examples: []string{"ping"}, Responses: []string{"pong"}}},
		Thresholds: map[string]float64{"PING": 0.5},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := c.Detect(intent.Tokenize("ping"))
	if !ok || got.Intent.Label != "PING" {
		t.Errorf("Detect = %+v, %v", got, ok)
	}

	_, err = buildCatalog(&config.ContentFile{
		Intents: []config.IntentConfig{{Label: "PING", Examples: []string{"ping"}, Responses: []string{"pong"}}},
	})
	if !errors.Is(err, intent.ErrInvalidCatalog) {
		t.Errorf("missing threshold err = %v", err)
	}
}

func TestBuildPhrasebookOverlay(t *testing.T) {
	pb := buildPhrasebook(&config.ContentFile{Phrases: &config.PhrasesConfig{
		EmptyReply:    "say something",
		Openers:       []string{"Yo!"},
		MoodFragments: map[string][]string{"annoyed": {"hmph"}},
	}})
	def := agent.DefaultPhrasebook()

	if pb.EmptyReply != "say something" || pb.FallbackReply != def.FallbackReply {
		t.Errorf("replies = %q / %q", pb.EmptyReply, pb.FallbackReply)
	}
	if len(pb.Openers) != 1 || pb.Openers[0] != "Yo!" {
		t.Errorf("openers = %v", pb.Openers)
	}
	if pb.MoodFragments[agent.MoodAnnoyed][0] != "hmph" {
		t.Errorf("annoyed = %v", pb.MoodFragments[agent.MoodAnnoyed])
	}
	if len(pb.MoodFragments[agent.MoodEnergetic]) == 0 {
		t.Error("energetic fragments dropped")
	}
	if err := pb.Validate(true); err != nil {
		t.Errorf("overlay should stay valid: %v", err)
	}
	if def.MoodFragments[agent.MoodAnnoyed][0] == "hmph" {
		t.Error("overlay mutated the defaults")
	}
}

func TestBuildResolver(t *testing.T) {
	r := buildResolver(config.LookupConfig{Disabled: true}, zap.NewNop())
	if got := r.Address(context.Background()); got != lookup.FallbackAddress {
		t.Errorf("disabled resolver = %q", got)
	}
	r = buildResolver(config.LookupConfig{Disabled: true, Fallback: "10.0.0.1"}, zap.NewNop())
	if got := r.Address(context.Background()); got != "10.0.0.1" {
		t.Errorf("disabled resolver with fallback = %q", got)
	}
	if _, ok := buildResolver(config.LookupConfig{}, zap.NewNop()).(*lookup.IPEcho); !ok {
		t.Error("expected an IPEcho resolver")
	}
}

func TestBuildOptions(t *testing.T) {
	opts := buildOptions(config.ResponderConfig{
		EmbellishProbability: -1,
		InitialMood:          "neutral",
		IdleSeconds:          45,
		MaxTranscript:        10,
	}, lookup.Static("1.2.3.4"))
	if opts.IdleAfter != 45*time.Second || opts.InitialMood != agent.MoodNeutral || opts.MaxTranscript != 10 {
		t.Errorf("opts = %+v", opts)
	}

	a, err := agent.New(agent.Persona{Name: "Static"}, intent.DefaultCatalog(), agent.DefaultPhrasebook(), opts, zap.NewNop())
	if err != nil {
		t.Fatalf("options should build an agent: %v", err)
	}
	if a.Memory().Mood != agent.MoodNeutral {
		t.Errorf("mood = %s", a.Memory().Mood)
	}
}
