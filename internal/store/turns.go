package store

import (
	"context"
	"fmt"

	"github.com/nidhogg/sparkbot/internal/agent"
)

// RecordTurn archives a completed turn. The archive is write-only from the
// responder's point of view: agent memory is never rebuilt from it.
func (s *Store) RecordTurn(ctx context.Context, t agent.Turn) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO turns (id, agent, kind, input, response, intent, score, mood, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		t.ID, t.Agent, string(t.Kind), t.Input, t.Response, t.Intent, t.Score, string(t.Mood), t.Time,
	)
	if err != nil {
		return fmt.Errorf("record turn %s: %w", t.ID, err)
	}
	return nil
}

// RecentTurns returns up to limit archived turns for an agent, oldest first.
func (s *Store) RecentTurns(ctx context.Context, agentName string, limit int) ([]agent.Turn, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, agent, kind, input, response, COALESCE(intent, ''), score, mood, created_at
		FROM (
			SELECT * FROM turns WHERE agent = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`, agentName, limit)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	defer rows.Close()

	var turns []agent.Turn
	for rows.Next() {
		var t agent.Turn
		var kind, mood string
		if err := rows.Scan(&t.ID, &t.Agent, &kind, &t.Input, &t.Response, &t.Intent, &t.Score, &mood, &t.Time); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Kind = agent.TurnKind(kind)
		t.Mood = agent.Mood(mood)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// IntentCounts returns how often each intent fired for an agent.
func (s *Store) IntentCounts(ctx context.Context, agentName string) (map[string]int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT COALESCE(intent, kind), COUNT(*)
		FROM turns WHERE agent = $1
		GROUP BY 1`, agentName)
	if err != nil {
		return nil, fmt.Errorf("intent counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scan intent count: %w", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}
