// Package session wires the memory engine together into a
// per-conversation orchestrator: ingest turns, build retrieval-backed
// prompts and run the clue -> retrieve -> assemble -> respond loop.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/memclaw/internal/assembler"
	"github.com/nextlevelbuilder/memclaw/internal/clue"
	"github.com/nextlevelbuilder/memclaw/internal/compress"
	"github.com/nextlevelbuilder/memclaw/internal/memory"
	"github.com/nextlevelbuilder/memclaw/internal/retrieval"
	"github.com/nextlevelbuilder/memclaw/internal/tokens"
)

// GenNewID generates a new UUID v7 (time-ordered) session ID.
func GenNewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// Options configures a new session. Zero-value fields fall back to
// engine defaults.
type Options struct {
	Memory  memory.Config
	Weights retrieval.Weights
	TopK    int

	// Backend is the model used for compression, clue generation and
	// replies when the specific collaborator below is not set. Nil
	// selects the deterministic rule-based collaborators.
	Backend          compress.TextGenerator
	CompressorLimits compress.LLMConfig

	// Compressor produces the tier summaries. Nil selects the LLM
	// compressor when Backend is set, the heuristic one otherwise.
	Compressor compress.Compressor

	// Clues expands user queries into retrieval terms. Nil selects
	// LLM generation when Backend is set, rule-based extraction
	// otherwise.
	Clues clue.Generator

	// Responder generates the assistant reply for Respond. Nil falls
	// back to Backend; without either, Respond returns an error while
	// Ingest and BuildContext still work.
	Responder compress.TextGenerator

	Counter *tokens.Counter
}

// Session owns one conversation's memory and the collaborators that
// read and write it. All methods are safe for concurrent use; the
// session serializes access so the ingest cascade and retrieval never
// interleave.
type Session struct {
	id uuid.UUID
	mu sync.Mutex

	mem       *memory.Manager
	retriever *retrieval.Retriever
	asm       *assembler.Assembler
	clues     clue.Generator
	responder compress.TextGenerator
	topK      int
	tracer    trace.Tracer
}

// New creates a session with the given options.
func New(opts Options) (*Session, error) {
	counter := opts.Counter
	if counter == nil {
		counter = tokens.Default()
	}

	compressor := opts.Compressor
	if compressor == nil {
		if opts.Backend != nil {
			llm, err := compress.NewLLM(opts.Backend, counter, opts.CompressorLimits)
			if err != nil {
				return nil, fmt.Errorf("session: %w", err)
			}
			compressor = llm
		} else {
			compressor = compress.NewHeuristic(counter)
		}
	}

	mem, err := memory.NewManager(opts.Memory, compressor, counter)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	clues := opts.Clues
	if clues == nil {
		if opts.Backend != nil {
			gen, err := clue.NewLLM(opts.Backend, opts.CompressorLimits.Timeout)
			if err != nil {
				return nil, fmt.Errorf("session: %w", err)
			}
			clues = gen
		} else {
			clues = clue.RuleBased{}
		}
	}

	responder := opts.Responder
	if responder == nil {
		responder = opts.Backend
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}

	return &Session{
		id:        GenNewID(),
		mem:       mem,
		retriever: retrieval.New(mem, opts.Weights),
		asm:       assembler.New(counter),
		clues:     clues,
		responder: responder,
		topK:      topK,
		tracer:    otel.Tracer("memclaw/session"),
	}, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Ingest adds one turn to memory, running the promotion cascade.
func (s *Session) Ingest(ctx context.Context, role memory.Role, text string) *memory.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ingestLocked(ctx, role, text)
}

func (s *Session) ingestLocked(ctx context.Context, role memory.Role, text string) *memory.Turn {
	ctx, span := s.tracer.Start(ctx, "memclaw.ingest")
	defer span.End()

	t := s.mem.Ingest(ctx, role, text)
	span.SetAttributes(
		attribute.Int64("memclaw.turn_id", t.ID),
		attribute.String("memclaw.role", string(role)),
		attribute.Int("memclaw.raw_tokens", t.RawTokens),
	)
	return t
}

// BuildContext expands the query into clues, retrieves the best past
// turns and assembles the prompt. Clue-generator degradation is logged
// and absorbed; retrieval proceeds with the fallback clues.
func (s *Session) BuildContext(ctx context.Context, query string) assembler.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildContextLocked(ctx, query)
}

func (s *Session) buildContextLocked(ctx context.Context, query string) assembler.Context {
	ctx, span := s.tracer.Start(ctx, "memclaw.retrieve")
	defer span.End()

	sensory := s.mem.Sensory()

	clues, err := s.clues.GenerateClues(ctx, query, renderRecent(sensory))
	if err != nil {
		slog.Warn("clue generation degraded", "session", s.id, "error", err)
	}

	retrieved := s.retriever.Retrieve(clues, s.topK)
	out := s.asm.Assemble(query, sensory, retrieved)

	span.SetAttributes(
		attribute.Int("memclaw.clues", len(clues)),
		attribute.Int("memclaw.retrieved", len(retrieved)),
		attribute.Int("memclaw.prompt_tokens", out.Tokens),
	)
	return out
}

// Respond runs the full conversational loop: build a memory-grounded
// prompt for the user's utterance, generate a reply and ingest both
// turns. Returns the reply text.
func (s *Session) Respond(ctx context.Context, userText string) (string, error) {
	if s.responder == nil {
		return "", fmt.Errorf("session: no responder configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Context is built before the user turn is ingested so the query
	// does not retrieve itself.
	out := s.buildContextLocked(ctx, userText)
	s.ingestLocked(ctx, memory.RoleUser, userText)

	reply, err := s.responder.Generate(ctx, out.Prompt)
	if err != nil {
		return "", fmt.Errorf("session: generate reply: %w", err)
	}

	s.ingestLocked(ctx, memory.RoleAgent, reply)
	return reply, nil
}

// Stats reports the session's memory statistics.
func (s *Session) Stats() memory.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem.Stats()
}

// ApplyWeights swaps the retrieval weights, typically from a config
// hot-reload. Invalid weights are ignored.
func (s *Session) ApplyWeights(w retrieval.Weights) {
	s.retriever.SetWeights(w)
}

// SearchEntity returns turns mentioning the given entity term.
func (s *Session) SearchEntity(term string) []*memory.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem.SearchEntity(term)
}

// Snapshot exports the session's memory state.
func (s *Session) Snapshot() *memory.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.mem.Snapshot()
	return &snap
}

// Restore replaces the session's memory state with a snapshot.
func (s *Session) Restore(snap *memory.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem.Restore(*snap)
}

// renderRecent formats sensory turns as lightweight context for the
// clue generator.
func renderRecent(sensory []*memory.Turn) string {
	var out string
	for _, t := range sensory {
		out += fmt.Sprintf("[%s] %s\n", t.Role, t.RawText)
	}
	return out
}
