package memory

import (
	"fmt"
	"time"

	"github.com/nextlevelbuilder/memclaw/internal/entity"
)

// Snapshot copies the conversation's memory state into its serializable
// form: sensory and short-term in insertion order, long-term in
// retrieval-recency order (least recently retrieved first).
func (m *Manager) Snapshot() Snapshot {
	snap := Snapshot{
		CurrentTurn: m.nextID,
		Evicted:     m.evicted,
	}

	record := func(t *Turn) TurnRecord {
		text := t.CompressedText
		if t.Tier == TierSensory {
			text = t.RawText
		}
		return TurnRecord{
			ID:               t.ID,
			Role:             t.Role,
			Tier:             t.Tier,
			Level:            t.Level,
			Text:             text,
			Timestamp:        t.Timestamp.Unix(),
			Entities:         t.Entities,
			RawTokens:        t.RawTokens,
			CompressedTokens: t.CompressedTokens,
		}
	}

	for _, t := range m.sensory {
		snap.Turns = append(snap.Turns, record(t))
	}
	for _, t := range m.shortTerm {
		snap.Turns = append(snap.Turns, record(t))
	}
	for _, id := range m.longTerm.Keys() {
		if t, ok := m.longTerm.Peek(id); ok {
			snap.Turns = append(snap.Turns, record(t))
		}
	}
	return snap
}

// Restore replaces the manager's state with a snapshot. Turns must fit
// the configured capacities; a snapshot taken under larger capacities
// is rejected rather than silently evicted.
func (m *Manager) Restore(snap Snapshot) error {
	var sensory, shortTerm, longTerm []*Turn

	for _, r := range snap.Turns {
		t := &Turn{
			ID:               r.ID,
			Role:             r.Role,
			Timestamp:        time.Unix(r.Timestamp, 0),
			Level:            r.Level,
			CompressedText:   r.Text,
			Entities:         r.Entities,
			Tier:             r.Tier,
			RawTokens:        r.RawTokens,
			CompressedTokens: r.CompressedTokens,
		}
		switch r.Tier {
		case TierSensory:
			t.RawText = r.Text
			sensory = append(sensory, t)
		case TierShortTerm:
			shortTerm = append(shortTerm, t)
		case TierLongTerm:
			longTerm = append(longTerm, t)
		default:
			return fmt.Errorf("memory: snapshot turn %d has unknown tier %q", r.ID, r.Tier)
		}
	}

	if len(sensory) > m.cfg.SensoryCapacity {
		return fmt.Errorf("memory: snapshot sensory size %d exceeds capacity %d", len(sensory), m.cfg.SensoryCapacity)
	}
	if len(shortTerm) > m.cfg.ShortTermCapacity {
		return fmt.Errorf("memory: snapshot short-term size %d exceeds capacity %d", len(shortTerm), m.cfg.ShortTermCapacity)
	}
	if len(longTerm) > m.cfg.LongTermCapacity {
		return fmt.Errorf("memory: snapshot long-term size %d exceeds capacity %d", len(longTerm), m.cfg.LongTermCapacity)
	}

	m.sensory = sensory
	m.shortTerm = shortTerm
	m.longTerm.Purge()
	m.index = newIndexFrom(longTerm)
	for _, t := range longTerm {
		m.longTerm.Add(t.ID, t)
	}
	m.nextID = snap.CurrentTurn
	m.evicted = snap.Evicted
	return nil
}

func newIndexFrom(longTerm []*Turn) *entity.Index {
	ix := entity.NewIndex()
	for _, t := range longTerm {
		ix.Add(t.ID, t.Entities)
	}
	return ix
}
