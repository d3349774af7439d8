package agent

import (
	"errors"
	"fmt"
)

// TimeSuffixes are appended to replies of time-aware intents.
type TimeSuffixes struct {
	Morning   string `json:"morning"`
	Afternoon string `json:"afternoon"`
	Evening   string `json:"evening"`
}

// For returns the suffix for an hour of the day: morning 05–11, afternoon 12–16,
// evening otherwise.
func (s TimeSuffixes) For(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return s.Morning
	case hour >= 12 && hour < 17:
		return s.Afternoon
	default:
		return s.Evening
	}
}

// Phrasebook is the non-intent text an agent speaks.
type Phrasebook struct {
	EmptyReply    string            `json:"empty_reply"`
	FallbackReply string            `json:"fallback_reply"`
	Openers       []string          `json:"openers"`
	Closers       []string          `json:"closers"`
	MoodFragments map[Mood][]string `json:"mood_fragments"`
	TimeOfDay     TimeSuffixes      `json:"time_of_day"`
	Nudges        []string          `json:"nudges"`
	NegativeWords []string          `json:"negative_words"`
	PositiveWords []string          `json:"positive_words"`
}

// ErrInvalidPhrasebook wraps phrasebook validation failures.
var ErrInvalidPhrasebook = errors.New("invalid phrasebook")

// Validate checks the phrasebook. Fragments are only required when replies
// can be embellished.
func (p Phrasebook) Validate(embellish bool) error {
	switch {
	case p.EmptyReply == "":
		return fmt.Errorf("%w: empty_reply is required", ErrInvalidPhrasebook)
	case p.FallbackReply == "":
		return fmt.Errorf("%w: fallback_reply is required", ErrInvalidPhrasebook)
	case len(p.Nudges) == 0:
		return fmt.Errorf("%w: at least one nudge is required", ErrInvalidPhrasebook)
	}
	if !embellish {
		return nil
	}
	if len(p.Openers) == 0 || len(p.Closers) == 0 {
		return fmt.Errorf("%w: openers and closers are required for embellishment", ErrInvalidPhrasebook)
	}
	for _, m := range Moods {
		if len(p.MoodFragments[m]) == 0 {
			return fmt.Errorf("%w: no fragments for mood %s", ErrInvalidPhrasebook, m)
		}
	}
	for m := range p.MoodFragments {
		if !m.Valid() {
			return fmt.Errorf("%w: unknown mood %q", ErrInvalidPhrasebook, m)
		}
	}
	return nil
}

// DefaultPhrasebook returns the built-in phrases.
func DefaultPhrasebook() Phrasebook {
	return Phrasebook{
		EmptyReply:    "Silence? Really? Don't be boring! Say something! 😅",
		FallbackReply: "My circuits are buzzing but I'm not quite catching that vibe. Try saying it differently? ⚡",
		Openers:       []string{"Okay, so...", "Alright!", "Hmm,", "Listen up!"},
		Closers:       []string{"⚡", "Anyway!", "Just saying.", "😄"},
		MoodFragments: map[Mood][]string{
			MoodEnergetic: {"(I'm buzzing today!)", "(Full battery, baby!)"},
			MoodAnnoyed:   {"...not that you deserve it.", "(Still a bit salty, though.)"},
			MoodNeutral:   {"(Just being honest.)", "(Take it or leave it.)"},
		},
		TimeOfDay: TimeSuffixes{
			Morning:   "Good morning, by the way!",
			Afternoon: "Hope your afternoon's going well!",
			Evening:   "Enjoying your evening?",
		},
		Nudges: []string{
			"Hellooo? Did you pull the plug? 🔌",
			"It's getting a bit quiet in here... you still there?",
			"I'm bored! Say something electric! ⚡",
			"Did my circuits fry or did you just stop typing?",
		},
		NegativeWords: []string{"stupid", "dumb", "hate", "idiot", "trash", "garbage", "useless", "annoying", "suck", "boring"},
		PositiveWords: []string{"love", "awesome", "great", "cool", "thanks", "thank", "nice", "amazing", "fun", "lol"},
	}
}
