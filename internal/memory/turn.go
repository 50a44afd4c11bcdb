// Package memory implements the tiered conversation memory store:
// three capacity-bounded tiers (Sensory, Short-Term, Long-Term) with a
// synchronous promotion/compression cascade, an entity inverted index
// over long-term turns, and the per-conversation statistics that back
// the observability surface.
package memory

import "time"

// Role identifies the author of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Level is the compression level tag carried by a turn. It only ever
// increases, in lockstep with tier transitions.
type Level int

const (
	LevelRaw  Level = 0  // verbatim, in Sensory
	LevelHalf Level = 50 // ~50% reduced, in Short-Term
	LevelTag  Level = 95 // dense tag, in Long-Term
)

// TierName identifies which tier currently owns a turn.
type TierName string

const (
	TierSensory   TierName = "sensory"
	TierShortTerm TierName = "short_term"
	TierLongTerm  TierName = "long_term"
)

// Turn is one conversation message. A turn is immutable once created
// except for the compression fields (Level, CompressedText, Entities,
// Tier, CompressedTokens), which only the Manager writes, exactly once
// per tier transition. RawText is dropped when the turn leaves Sensory:
// compression is a deliberate one-way trade of fidelity for space.
type Turn struct {
	ID        int64
	Role      Role
	RawText   string
	Timestamp time.Time

	Level          Level
	CompressedText string
	Entities       []string
	Tier           TierName

	RawTokens        int
	CompressedTokens int
}

// TurnRecord is the flat, serializable form of a turn used by memory
// snapshots. Text holds RawText for sensory turns and CompressedText
// otherwise.
type TurnRecord struct {
	ID               int64    `json:"id"`
	Role             Role     `json:"role"`
	Tier             TierName `json:"tier"`
	Level            Level    `json:"level"`
	Text             string   `json:"text"`
	Timestamp        int64    `json:"timestamp"`
	Entities         []string `json:"entities,omitempty"`
	RawTokens        int      `json:"raw_tokens"`
	CompressedTokens int      `json:"compressed_tokens"`
}

// Snapshot is a point-in-time copy of a conversation's memory state.
// Turns are ordered oldest to newest within each tier; for Long-Term
// the order is retrieval recency (least recently retrieved first), so
// restoring reproduces the eviction order.
type Snapshot struct {
	CurrentTurn int64        `json:"current_turn"`
	Evicted     int64        `json:"evicted"`
	Turns       []TurnRecord `json:"turns"`
}
