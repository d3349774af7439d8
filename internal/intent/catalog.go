package intent

import (
	"errors"
	"fmt"
	"sort"
)

// Definition is a labeled category of utterance. Immutable once part of a Catalog.
type Definition struct {
	Label     string   `json:"label"`
	Examples  []string `json:"examples"`
	Responses []string `json:"responses"`
	Threshold float64  `json:"threshold"`
}

// Scored pairs a definition with its best example score for one input.
type Scored struct {
	Intent *Definition `json:"intent"`
	Score  float64     `json:"score"`
}

// Content is the raw, unvalidated catalog content. Thresholds are keyed by label
// and must cover exactly the labels of Intents.
type Content struct {
	Intents    []Definition       `json:"intents"`
	Thresholds map[string]float64 `json:"thresholds"`
	Salient    []string           `json:"salient"`
}

// ErrInvalidCatalog wraps every catalog validation failure.
var ErrInvalidCatalog = errors.New("invalid intent catalog")

// Catalog is an ordered, validated set of intent definitions.
// Declaration order breaks score ties during detection.
type Catalog struct {
	defs    []Definition
	salient SalientSet
}

// NewCatalog validates content and builds a Catalog from it.
func NewCatalog(content Content) (*Catalog, error) {
	if len(content.Intents) == 0 {
		return nil, fmt.Errorf("%w: no intents", ErrInvalidCatalog)
	}

	defs := make([]Definition, 0, len(content.Intents))
	seen := make(map[string]bool, len(content.Intents))
	for _, d := range content.Intents {
		switch {
		case d.Label == "":
			return nil, fmt.Errorf("%w: intent with empty label", ErrInvalidCatalog)
		case seen[d.Label]:
			return nil, fmt.Errorf("%w: duplicate label %s", ErrInvalidCatalog, d.Label)
		case len(d.Examples) == 0:
			return nil, fmt.Errorf("%w: %s has no examples", ErrInvalidCatalog, d.Label)
		case len(d.Responses) == 0:
			return nil, fmt.Errorf("%w: %s has no responses", ErrInvalidCatalog, d.Label)
		}
		seen[d.Label] = true

		th, ok := content.Thresholds[d.Label]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no threshold", ErrInvalidCatalog, d.Label)
		}
		// A zero threshold would let a zero score fire the intent.
		if !(th > 0 && th <= 1) {
			return nil, fmt.Errorf("%w: threshold %v for %s outside (0,1]", ErrInvalidCatalog, th, d.Label)
		}

		defs = append(defs, Definition{
			Label:     d.Label,
			Examples:  append([]string(nil), d.Examples...),
			Responses: append([]string(nil), d.Responses...),
			Threshold: th,
		})
	}

	for label := range content.Thresholds {
		if !seen[label] {
			return nil, fmt.Errorf("%w: threshold for unknown label %s", ErrInvalidCatalog, label)
		}
	}

	return &Catalog{defs: defs, salient: NewSalientSet(content.Salient...)}, nil
}

// MustCatalog is NewCatalog for static content known to be valid.
func MustCatalog(content Content) *Catalog {
	c, err := NewCatalog(content)
	if err != nil {
		panic(err)
	}
	return c
}

// Definitions returns the definitions in declaration order.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Lookup returns the definition with the given label.
func (c *Catalog) Lookup(label string) (*Definition, bool) {
	for i := range c.defs {
		if c.defs[i].Label == label {
			return &c.defs[i], true
		}
	}
	return nil, false
}

// Labels returns every label, sorted.
func (c *Catalog) Labels() []string {
	labels := make([]string, len(c.defs))
	for i, d := range c.defs {
		labels[i] = d.Label
	}
	sort.Strings(labels)
	return labels
}

// Rank scores every definition against tokens using its best-matching example.
// Results keep declaration order.
func (c *Catalog) Rank(tokens []string) []Scored {
	out := make([]Scored, len(c.defs))
	for i := range c.defs {
		d := &c.defs[i]
		var best float64
		for _, ex := range d.Examples {
			if s := Score(tokens, ex, c.salient); s > best {
				best = s
			}
		}
		out[i] = Scored{Intent: d, Score: best}
	}
	return out
}

// Detect returns the highest scoring definition whose best score meets its
// threshold. The earliest declared definition wins an exact tie.
// Lexical overlap produces false positives and negatives; that is accepted.
func (c *Catalog) Detect(tokens []string) (Scored, bool) {
	var (
		best  Scored
		found bool
	)
	for _, s := range c.Rank(tokens) {
		if s.Score < s.Intent.Threshold {
			continue
		}
		if !found || s.Score > best.Score {
			best, found = s, true
		}
	}
	return best, found
}
