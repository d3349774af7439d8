package agent

import "time"

// MemorySchemaVersion identifies the layout of Memory. Bump it when fields change.
const MemorySchemaVersion = 1

// TurnKind says which pipeline branch produced a turn.
type TurnKind string

const (
	TurnEmpty    TurnKind = "empty"
	TurnMath     TurnKind = "math"
	TurnIntent   TurnKind = "intent"
	TurnFallback TurnKind = "fallback"
)

// Turn is one completed exchange.
type Turn struct {
	ID       string    `json:"id,omitempty"`
	Agent    string    `json:"agent"`
	Kind     TurnKind  `json:"kind"`
	Input    string    `json:"input"`
	Response string    `json:"response"`
	Intent   string    `json:"intent,omitempty"`
	Score    float64   `json:"score,omitempty"`
	Mood     Mood      `json:"mood"`
	Time     time.Time `json:"time"`
}

// Memory is the mutable session state of one agent. It is owned by the Agent
// and only changed under the agent's lock.
type Memory struct {
	Version          int       `json:"version"`
	Mood             Mood      `json:"mood"`
	LastIntent       string    `json:"last_intent,omitempty"`
	InteractionCount int       `json:"interaction_count"`
	LastActiveAt     time.Time `json:"last_active_at"`
	IdleNudgeSent    bool      `json:"idle_nudge_sent"`
	Transcript       []Turn    `json:"transcript,omitempty"`
}

func newMemory(mood Mood, now time.Time) Memory {
	return Memory{
		Version:      MemorySchemaVersion,
		Mood:         mood,
		LastActiveAt: now,
	}
}

// record appends t, dropping the oldest entries beyond max (0 keeps everything).
func (m *Memory) record(t Turn, max int) {
	m.Transcript = append(m.Transcript, t)
	if max > 0 && len(m.Transcript) > max {
		drop := len(m.Transcript) - max
		m.Transcript = append(m.Transcript[:0:0], m.Transcript[drop:]...)
	}
}
