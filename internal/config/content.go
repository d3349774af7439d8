package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ContentFile is the on-disk form of the intent catalog and phrasebook.
// Missing sections fall back to the built-in content.
type ContentFile struct {
	Intents    []IntentConfig     `json:"intents"`
	Thresholds map[string]float64 `json:"thresholds"`
	Salient    []string           `json:"salient"`
	Phrases    *PhrasesConfig     `json:"phrases,omitempty"`
}

type IntentConfig struct {
	Label     string   `json:"label"`
	Examples  []string `json:"examples"`
	Responses []string `json:"responses"`
}

type PhrasesConfig struct {
	EmptyReply    string              `json:"empty_reply"`
	FallbackReply string              `json:"fallback_reply"`
	Openers       []string            `json:"openers"`
	Closers       []string            `json:"closers"`
	MoodFragments map[string][]string `json:"mood_fragments"`
	Morning       string              `json:"morning"`
	Afternoon     string              `json:"afternoon"`
	Evening       string              `json:"evening"`
	Nudges        []string            `json:"nudges"`
	NegativeWords []string            `json:"negative_words"`
	PositiveWords []string            `json:"positive_words"`
}

// LoadContent reads a content file. Validation happens when the catalog and
// agents are built from it.
func LoadContent(path string) (*ContentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", path, err)
	}
	var cf ContentFile
	if err := json.Unmarshal(expandEnv(data), &cf); err != nil {
		return nil, fmt.Errorf("parse content %s: %w", path, err)
	}
	return &cf, nil
}
