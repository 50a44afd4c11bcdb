package session

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/memclaw/internal/memory"
	"github.com/nextlevelbuilder/memclaw/internal/retrieval"
	"github.com/nextlevelbuilder/memclaw/internal/tokens"
)

// echoGen replies with a fixed prefix plus the last prompt line, enough
// to drive the conversational loop deterministically.
type echoGen struct {
	prompts []string
}

func (g *echoGen) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	return "echo: " + lines[len(lines)-1], nil
}

func newTestSession(t *testing.T, opts Options) *Session {
	t.Helper()
	if opts.Counter == nil {
		opts.Counter = tokens.NewEstimateCounter()
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSession_RespondLoop(t *testing.T) {
	gen := &echoGen{}
	s := newTestSession(t, Options{Responder: gen})
	ctx := context.Background()

	reply, err := s.Respond(ctx, "Q3 revenue was $6.2M, up 18% from Q2.")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.HasPrefix(reply, "echo: ") {
		t.Errorf("reply = %q", reply)
	}

	// Both the user turn and the reply were ingested.
	stats := s.Stats()
	if stats.CurrentTurn != 2 {
		t.Errorf("CurrentTurn = %d, want 2", stats.CurrentTurn)
	}
}

func TestSession_RetrievesCompressedHistory(t *testing.T) {
	gen := &echoGen{}
	s := newTestSession(t, Options{Responder: gen, TopK: 3})
	ctx := context.Background()

	s.Ingest(ctx, memory.RoleUser, "Q3 revenue was $6.2M, up 18% from Q2, driven by the enterprise tier.")
	for i := 0; i < 8; i++ {
		s.Ingest(ctx, memory.RoleAgent, fmt.Sprintf("Noted item %d about the weather and scheduling for the offsite.", i))
	}

	out := s.BuildContext(ctx, "What was Q3 revenue?")
	if !strings.Contains(out.Prompt, "What was Q3 revenue?") {
		t.Error("prompt missing query")
	}
	if !strings.Contains(strings.ToLower(out.Prompt), "q3") || !strings.Contains(strings.ToLower(out.Prompt), "revenue") {
		t.Errorf("prompt missing retrieved revenue turn:\n%s", out.Prompt)
	}
	if out.Tokens <= 0 {
		t.Error("prompt tokens not counted")
	}
}

func TestSession_RespondBuildsContextBeforeIngest(t *testing.T) {
	gen := &echoGen{}
	s := newTestSession(t, Options{Responder: gen})
	ctx := context.Background()

	if _, err := s.Respond(ctx, "hello there"); err != nil {
		t.Fatal(err)
	}
	// The prompt seen by the generator must not contain the user turn
	// as a sensory turn, only as the query.
	if strings.Count(gen.prompts[0], "hello there") != 1 {
		t.Errorf("query leaked into recent context:\n%s", gen.prompts[0])
	}
}

func TestSession_BackendDrivesAllCollaborators(t *testing.T) {
	gen := &echoGen{}
	s := newTestSession(t, Options{Backend: gen})
	ctx := context.Background()

	// Responder falls back to the backend.
	if _, err := s.Respond(ctx, "Q3 revenue was $6.2M."); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if len(gen.prompts) == 0 {
		t.Fatal("backend never called")
	}
}

func TestSession_RespondWithoutResponder(t *testing.T) {
	s := newTestSession(t, Options{})
	if _, err := s.Respond(context.Background(), "hi"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSession_SnapshotRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Options{})
	for i := 0; i < 10; i++ {
		s.Ingest(ctx, memory.RoleUser, fmt.Sprintf("Acme Corp deal number %d is worth $%dM in revenue.", i, i+1))
	}
	snap := s.Snapshot()

	restored := newTestSession(t, Options{})
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if got, want := restored.Stats().CurrentTurn, s.Stats().CurrentTurn; got != want {
		t.Errorf("CurrentTurn = %d, want %d", got, want)
	}
	if len(restored.SearchEntity("revenue")) == 0 {
		t.Error("restored index lost entity terms")
	}
}

func TestSession_ApplyWeights(t *testing.T) {
	s := newTestSession(t, Options{})
	s.ApplyWeights(retrieval.Weights{Semantic: 0.5, Entity: 0.25, Recency: 0.25})
	// Invalid weights are ignored.
	s.ApplyWeights(retrieval.Weights{Semantic: 2, Entity: 2, Recency: 2})

	if w := s.retriever.Weights(); w.Semantic != 0.5 {
		t.Errorf("Semantic = %v, want 0.5", w.Semantic)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := newTestSession(t, Options{})
	b := newTestSession(t, Options{})
	r.Add(a)
	r.Add(b)

	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}
	if got := r.Get(a.ID()); got != a {
		t.Error("Get returned wrong session")
	}

	r.Remove(a.ID())
	if r.Get(a.ID()) != nil {
		t.Error("session not removed")
	}
	if ids := r.IDs(); len(ids) != 1 || ids[0] != b.ID() {
		t.Errorf("IDs = %v", ids)
	}
}
