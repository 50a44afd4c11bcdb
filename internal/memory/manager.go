package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nextlevelbuilder/memclaw/internal/compress"
	"github.com/nextlevelbuilder/memclaw/internal/entity"
	"github.com/nextlevelbuilder/memclaw/internal/tokens"
)

// Config bounds the three tiers.
type Config struct {
	SensoryCapacity   int // verbatim turns (default 2)
	ShortTermCapacity int // half-compressed turns (default 5)
	LongTermCapacity  int // tag-compressed turns, soft cap (default 300)
}

func (c Config) withDefaults() Config {
	if c.SensoryCapacity <= 0 {
		c.SensoryCapacity = 2
	}
	if c.ShortTermCapacity <= 0 {
		c.ShortTermCapacity = 5
	}
	if c.LongTermCapacity <= 0 {
		c.LongTermCapacity = 300
	}
	return c
}

// Manager owns one conversation's tiers, inverted index and promotion
// state machine. It is not safe for concurrent use on its own; the
// owning session serializes ingest and retrieval.
//
// Long-Term is backed by an LRU keyed by turn ID: retrieval touches
// entries, so when the soft cap is hit the least-recently-retrieved
// turn is evicted and its index entries removed.
type Manager struct {
	cfg        Config
	compressor compress.Compressor
	counter    *tokens.Counter

	sensory   []*Turn
	shortTerm []*Turn
	longTerm  *lru.Cache[int64, *Turn]
	index     *entity.Index

	nextID  int64
	evicted int64
}

// NewManager creates an empty memory store for one conversation.
func NewManager(cfg Config, compressor compress.Compressor, counter *tokens.Counter) (*Manager, error) {
	if compressor == nil {
		return nil, fmt.Errorf("memory: nil compressor")
	}
	if counter == nil {
		counter = tokens.Default()
	}
	cfg = cfg.withDefaults()

	m := &Manager{
		cfg:        cfg,
		compressor: compressor,
		counter:    counter,
		index:      entity.NewIndex(),
	}

	longTerm, err := lru.NewWithEvict(cfg.LongTermCapacity, m.onEvict)
	if err != nil {
		return nil, fmt.Errorf("memory: long-term tier: %w", err)
	}
	m.longTerm = longTerm
	return m, nil
}

func (m *Manager) onEvict(id int64, t *Turn) {
	m.index.Remove(id)
	m.evicted++
	slog.Debug("memory: long-term turn evicted", "turn", id, "level", int(t.Level))
}

// Ingest appends a new turn to Sensory and runs the overflow cascade:
// at most one turn moves Sensory → Short-Term and at most one moves
// Short-Term → Long-Term per call. Compression failures are recovered
// inside the compressor via truncation; Ingest itself cannot fail.
// A tier exceeding its capacity afterwards panics with
// *CapacityInvariantError (see errors.go).
func (m *Manager) Ingest(ctx context.Context, role Role, text string) *Turn {
	m.nextID++
	t := &Turn{
		ID:               m.nextID,
		Role:             role,
		RawText:          text,
		Timestamp:        time.Now(),
		Level:            LevelRaw,
		CompressedText:   text,
		Tier:             TierSensory,
		RawTokens:        m.counter.Count(text),
		CompressedTokens: m.counter.Count(text),
	}

	m.sensory = append(m.sensory, t)
	if len(m.sensory) > m.cfg.SensoryCapacity {
		oldest := m.sensory[0]
		m.sensory = m.sensory[1:]
		m.promoteToShortTerm(ctx, oldest)
	}

	m.checkCapacity()
	return t
}

func (m *Manager) promoteToShortTerm(ctx context.Context, t *Turn) {
	compressed := m.compressTo(ctx, t.CompressedText, compress.RatioHalf)

	t.Level = LevelHalf
	t.CompressedText = compressed
	t.CompressedTokens = m.counter.Count(compressed)
	t.Tier = TierShortTerm
	t.RawText = "" // raw text is not retained past Sensory

	m.shortTerm = append(m.shortTerm, t)
	if len(m.shortTerm) > m.cfg.ShortTermCapacity {
		oldest := m.shortTerm[0]
		m.shortTerm = m.shortTerm[1:]
		m.promoteToLongTerm(ctx, oldest)
	}
}

func (m *Manager) promoteToLongTerm(ctx context.Context, t *Turn) {
	// Entities come from the pre-tag text: tag compression lowercases
	// its output, and the extractor's proper-name rule needs the
	// original casing. Extracting afterwards would silently drop every
	// named entity from the index.
	terms := entity.Extract(t.CompressedText)
	compressed := m.compressTo(ctx, t.CompressedText, compress.RatioTag)

	t.Level = LevelTag
	t.CompressedText = compressed
	t.CompressedTokens = m.counter.Count(compressed)
	t.Tier = TierLongTerm
	t.Entities = terms

	// An extractor miss is not an error: the turn stays retrievable
	// through semantic overlap and recency alone.
	m.index.Add(t.ID, t.Entities)
	m.longTerm.Add(t.ID, t)
}

// compressTo applies the compressor with a final non-empty guard. The
// provided compressors already fall back to truncation internally; this
// covers a foreign Compressor implementation that returns an error or
// empty output anyway.
func (m *Manager) compressTo(ctx context.Context, text string, ratio compress.Ratio) string {
	out, err := m.compressor.Compress(ctx, text, ratio)
	if err != nil || (out == "" && text != "") {
		if err != nil {
			slog.Warn("memory: compressor failed, truncating", "ratio", int(ratio), "error", err)
		}
		target := m.counter.Count(text) * (100 - int(ratio)) / 100
		if target < 1 {
			target = 1
		}
		out = m.counter.Truncate(text, target)
	}
	return out
}

func (m *Manager) checkCapacity() {
	if n := len(m.sensory); n > m.cfg.SensoryCapacity {
		panic(&CapacityInvariantError{Tier: TierSensory, Size: n, Capacity: m.cfg.SensoryCapacity})
	}
	if n := len(m.shortTerm); n > m.cfg.ShortTermCapacity {
		panic(&CapacityInvariantError{Tier: TierShortTerm, Size: n, Capacity: m.cfg.ShortTermCapacity})
	}
	if n := m.longTerm.Len(); n > m.cfg.LongTermCapacity {
		panic(&CapacityInvariantError{Tier: TierLongTerm, Size: n, Capacity: m.cfg.LongTermCapacity})
	}
}

// CurrentTurn returns the ID of the most recently ingested turn.
func (m *Manager) CurrentTurn() int64 {
	return m.nextID
}

// Sensory returns the verbatim turns, oldest first. These are always
// included in the assembled context and are excluded from retrieval
// scoring.
func (m *Manager) Sensory() []*Turn {
	out := make([]*Turn, len(m.sensory))
	copy(out, m.sensory)
	return out
}

// Candidates returns the retrieval candidate set: Short-Term followed
// by Long-Term turns (least recently retrieved first).
func (m *Manager) Candidates() []*Turn {
	out := make([]*Turn, 0, len(m.shortTerm)+m.longTerm.Len())
	out = append(out, m.shortTerm...)
	for _, id := range m.longTerm.Keys() {
		if t, ok := m.longTerm.Peek(id); ok {
			out = append(out, t)
		}
	}
	return out
}

// MarkRetrieved records that a long-term turn was returned by
// retrieval, refreshing its position in the eviction order. No-op for
// turns outside Long-Term.
func (m *Manager) MarkRetrieved(id int64) {
	m.longTerm.Get(id)
}

// SearchEntity returns all candidate turns whose entity set contains
// the normalized term: an index lookup over Long-Term plus a scan of
// Short-Term (whose turns are not yet indexed). Results come back in
// ascending turn order.
func (m *Manager) SearchEntity(term string) []*Turn {
	var out []*Turn
	for _, id := range m.index.Lookup(term) {
		if t, ok := m.longTerm.Peek(id); ok {
			out = append(out, t)
		}
	}
	for _, t := range m.shortTerm {
		for _, e := range entity.Extract(t.CompressedText) {
			if e == term {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// Index exposes the inverted index for read access (term counts,
// lookups). Callers must not mutate through it concurrently with
// ingestion.
func (m *Manager) Index() *entity.Index {
	return m.index
}
