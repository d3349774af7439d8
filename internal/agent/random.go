package agent

import (
	"math/rand"
	"time"
)

// RandomSource drives every random choice an agent makes. *rand.Rand
// satisfies it; tests inject fixed sources.
type RandomSource interface {
	Intn(n int) int
	Float64() float64
}

// NewRandom returns a time-seeded source. It is not safe for concurrent use;
// each agent owns one.
func NewRandom() RandomSource {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func pick(r RandomSource, items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[r.Intn(len(items))]
}
