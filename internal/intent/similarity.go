package intent

// SalientWeight is the overlap credit for a salient token. Ordinary tokens earn 1.
const SalientWeight = 2.0

// SalientSet holds tokens that are strongly diagnostic of an intent.
type SalientSet map[string]bool

// NewSalientSet builds a set from the given words, normalized like input text.
func NewSalientSet(words ...string) SalientSet {
	s := make(SalientSet, len(words))
	for _, w := range words {
		for _, tok := range Tokenize(w) {
			s[tok] = true
		}
	}
	return s
}

// Score computes the weighted overlap between input tokens and a reference
// phrase, normalized by the number of distinct tokens across both sides.
// Thresholds in a Catalog are calibrated against this normalization.
func Score(input []string, phrase string, salient SalientSet) float64 {
	ref := Tokenize(phrase)
	if len(input) == 0 || len(ref) == 0 {
		return 0
	}

	refSet := make(map[string]bool, len(ref))
	union := make(map[string]struct{}, len(input)+len(ref))
	for _, t := range ref {
		refSet[t] = true
		union[t] = struct{}{}
	}

	var overlap float64
	for _, t := range input {
		union[t] = struct{}{}
		if !refSet[t] {
			continue
		}
		if salient[t] {
			overlap += SalientWeight
		} else {
			overlap++
		}
	}
	return overlap / float64(len(union))
}
