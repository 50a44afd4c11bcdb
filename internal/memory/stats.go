package memory

// TierStats reports the size of one tier.
type TierStats struct {
	Turns  int `json:"turns"`
	Tokens int `json:"tokens"`
}

// Stats is the observability surface of a conversation's memory: the
// compression-level distribution across tiers and the token reduction
// achieved, the system's headline efficiency metrics.
type Stats struct {
	CurrentTurn int64 `json:"current_turn"`

	Sensory   TierStats `json:"sensory"`
	ShortTerm TierStats `json:"short_term"`
	LongTerm  TierStats `json:"long_term"`

	// ActiveTokens is what the always-included context costs
	// (Sensory + Short-Term).
	ActiveTokens int `json:"active_tokens"`

	// RawTokens and CompressedTokens compare all stored turns before
	// and after compression; SavedRatio is the fraction saved.
	RawTokens        int     `json:"raw_tokens"`
	CompressedTokens int     `json:"compressed_tokens"`
	SavedRatio       float64 `json:"saved_ratio"`

	// Levels maps compression level to turn count.
	Levels map[Level]int `json:"levels"`

	EntityTerms int   `json:"entity_terms"`
	Evicted     int64 `json:"evicted"`
}

// Stats computes the current memory statistics.
func (m *Manager) Stats() Stats {
	s := Stats{
		CurrentTurn: m.nextID,
		Levels:      map[Level]int{LevelRaw: 0, LevelHalf: 0, LevelTag: 0},
		EntityTerms: m.index.Terms(),
		Evicted:     m.evicted,
	}

	tally := func(ts *TierStats, turns []*Turn) {
		for _, t := range turns {
			ts.Turns++
			ts.Tokens += t.CompressedTokens
			s.Levels[t.Level]++
			s.RawTokens += t.RawTokens
			s.CompressedTokens += t.CompressedTokens
		}
	}

	tally(&s.Sensory, m.sensory)
	tally(&s.ShortTerm, m.shortTerm)
	tally(&s.LongTerm, m.Candidates()[len(m.shortTerm):])

	s.ActiveTokens = s.Sensory.Tokens + s.ShortTerm.Tokens
	if s.RawTokens > 0 {
		s.SavedRatio = 1 - float64(s.CompressedTokens)/float64(s.RawTokens)
	}
	return s
}
