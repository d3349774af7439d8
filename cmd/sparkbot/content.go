package main

import (
	"time"

	"github.com/nidhogg/sparkbot/internal/agent"
	"github.com/nidhogg/sparkbot/internal/config"
	"github.com/nidhogg/sparkbot/internal/intent"
	"github.com/nidhogg/sparkbot/internal/lookup"
	"go.uber.org/zap"
)

// buildCatalog returns the configured intent catalog, or the built-in one
// when the content file declares no intents.
func buildCatalog(cf *config.ContentFile) (*intent.Catalog, error) {
	if cf == nil || len(cf.Intents) == 0 {
		return intent.NewCatalog(intent.DefaultContent())
	}
	content := intent.Content{
		Thresholds: cf.Thresholds,
		Salient:    cf.Salient,
	}
	if content.Salient == nil {
		content.Salient = intent.DefaultContent().Salient
	}
	for _, ic := range cf.Intents {
		content.Intents = append(content.Intents, intent.Definition{
			Label:     ic.Label,
			Examples:  ic.Examples,
			Responses: ic.Responses,
		})
	}
	return intent.NewCatalog(content)
}

// buildPhrasebook overlays configured phrases on the built-in phrasebook.
func buildPhrasebook(cf *config.ContentFile) agent.Phrasebook {
	pb := agent.DefaultPhrasebook()
	if cf == nil || cf.Phrases == nil {
		return pb
	}
	p := cf.Phrases
	setString(&pb.EmptyReply, p.EmptyReply)
	setString(&pb.FallbackReply, p.FallbackReply)
	setString(&pb.TimeOfDay.Morning, p.Morning)
	setString(&pb.TimeOfDay.Afternoon, p.Afternoon)
	setString(&pb.TimeOfDay.Evening, p.Evening)
	setList(&pb.Openers, p.Openers)
	setList(&pb.Closers, p.Closers)
	setList(&pb.Nudges, p.Nudges)
	setList(&pb.NegativeWords, p.NegativeWords)
	setList(&pb.PositiveWords, p.PositiveWords)
	if len(p.MoodFragments) > 0 {
		frags := make(map[agent.Mood][]string, len(pb.MoodFragments))
		for m, f := range pb.MoodFragments {
			frags[m] = f
		}
		for m, f := range p.MoodFragments {
			frags[agent.Mood(m)] = f
		}
		pb.MoodFragments = frags
	}
	return pb
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setList(dst *[]string, v []string) {
	if len(v) > 0 {
		*dst = v
	}
}

// buildResolver picks the address resolver for the placeholder.
func buildResolver(cfg config.LookupConfig, logger *zap.Logger) lookup.AddressResolver {
	if cfg.Disabled {
		fallback := cfg.Fallback
		if fallback == "" {
			fallback = lookup.FallbackAddress
		}
		return lookup.Static(fallback)
	}
	return lookup.NewIPEcho(lookup.Config{
		Endpoint: cfg.Endpoint,
		Timeout:  time.Duration(cfg.TimeoutMS) * time.Millisecond,
		Fallback: cfg.Fallback,
	}, logger)
}

// buildOptions maps responder settings onto agent options.
func buildOptions(cfg config.ResponderConfig, resolver lookup.AddressResolver) agent.Options {
	return agent.Options{
		EmbellishProbability: cfg.EmbellishProbability,
		NoEmbellish:          cfg.NoEmbellish,
		TimeAware:            cfg.TimeAware,
		InitialMood:          agent.Mood(cfg.InitialMood),
		IdleAfter:            time.Duration(cfg.IdleSeconds) * time.Second,
		MaxTranscript:        cfg.MaxTranscript,
		Resolver:             resolver,
	}
}
