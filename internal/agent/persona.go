package agent

import (
	"strconv"
	"strings"
)

// Persona is the displayed identity of a character.
type Persona struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

// Fill replaces the persona tokens {name}, {age} and {gender} in a template.
func (p Persona) Fill(template string) string {
	return strings.NewReplacer(
		"{name}", p.Name,
		"{age}", strconv.Itoa(p.Age),
		"{gender}", p.Gender,
	).Replace(template)
}

// Mood is the agent's current temperament. It selects mood fragments during
// embellishment.
type Mood string

const (
	MoodEnergetic Mood = "energetic"
	MoodAnnoyed   Mood = "annoyed"
	MoodNeutral   Mood = "neutral"
)

// Moods lists every valid mood.
var Moods = []Mood{MoodEnergetic, MoodAnnoyed, MoodNeutral}

// Valid reports whether m is a known mood.
func (m Mood) Valid() bool {
	for _, v := range Moods {
		if m == v {
			return true
		}
	}
	return false
}
