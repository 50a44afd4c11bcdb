package compress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/memclaw/internal/tokens"
)

const longTurn = "The user asked about quarterly performance and pipeline health. " +
	"Q3 revenue was $6.2M, up 20% from Q2 according to the finance review. " +
	"There was also a long digression about the weather and weekend plans. " +
	"Acme Corp remains the largest account with $1M in annual contracts."

func newHeuristic() *Heuristic {
	return NewHeuristic(tokens.NewEstimateCounter())
}

func TestHeuristic_Deterministic(t *testing.T) {
	h := newHeuristic()
	ctx := context.Background()

	for _, ratio := range []Ratio{RatioHalf, RatioTag} {
		first, err := h.Compress(ctx, longTurn, ratio)
		if err != nil {
			t.Fatalf("Compress(%d): %v", ratio, err)
		}
		for i := 0; i < 3; i++ {
			again, _ := h.Compress(ctx, longTurn, ratio)
			if again != first {
				t.Fatalf("ratio %d not deterministic:\n%q\n%q", ratio, first, again)
			}
		}
	}
}

func TestHeuristic_HalfReducesTokens(t *testing.T) {
	counter := tokens.NewEstimateCounter()
	h := NewHeuristic(counter)

	out, err := h.Compress(context.Background(), longTurn, RatioHalf)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if out == "" {
		t.Fatal("empty output")
	}
	if got, orig := counter.Count(out), counter.Count(longTurn); got > orig/2+1 {
		t.Errorf("half compression produced %d tokens, original %d", got, orig)
	}
}

func TestHeuristic_HalfKeepsShortTextVerbatim(t *testing.T) {
	h := newHeuristic()
	text := "Q3 revenue was $6.2M"

	out, _ := h.Compress(context.Background(), text, RatioHalf)
	if out != text {
		t.Errorf("short text changed by half compression: %q", out)
	}
}

func TestHeuristic_TagKeepsEntities(t *testing.T) {
	h := newHeuristic()

	out, _ := h.Compress(context.Background(), "Q3 revenue was $6.2M", RatioTag)
	for _, term := range []string{"q3", "revenue", "$6.2m"} {
		if !strings.Contains(out, term) {
			t.Errorf("tag %q missing term %q", out, term)
		}
	}
}

func TestHeuristic_TagFallbackOnNoEntities(t *testing.T) {
	h := newHeuristic()
	text := "well hmm okay sure fine whatever honestly maybe perhaps indeed truly certainly absolutely definitely"

	out, _ := h.Compress(context.Background(), text, RatioTag)
	if strings.TrimSpace(out) == "" {
		t.Fatal("tag fallback produced empty output")
	}
	if !strings.HasPrefix(text, out) {
		t.Errorf("fallback %q is not a prefix of the input", out)
	}
}

// fakeGen is a scripted TextGenerator.
type fakeGen struct {
	reply string
	err   error
	calls int
	block bool // when true, wait for ctx cancellation
}

func (f *fakeGen) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func TestLLM_CachesResults(t *testing.T) {
	gen := &fakeGen{reply: "q3 revenue summary"}
	c, err := NewLLM(gen, tokens.NewEstimateCounter(), LLMConfig{})
	if err != nil {
		t.Fatalf("NewLLM: %v", err)
	}

	ctx := context.Background()
	first, _ := c.Compress(ctx, longTurn, RatioHalf)
	second, _ := c.Compress(ctx, longTurn, RatioHalf)

	if first != "q3 revenue summary" || second != first {
		t.Errorf("unexpected outputs: %q, %q", first, second)
	}
	if gen.calls != 1 {
		t.Errorf("backend called %d times, want 1 (cache)", gen.calls)
	}
}

func TestLLM_FallbackOnBackendError(t *testing.T) {
	gen := &fakeGen{err: fmt.Errorf("boom")}
	c, err := NewLLM(gen, tokens.NewEstimateCounter(), LLMConfig{})
	if err != nil {
		t.Fatalf("NewLLM: %v", err)
	}

	out, err := c.Compress(context.Background(), longTurn, RatioTag)
	if err != nil {
		t.Fatalf("Compress returned error despite fallback: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Fatal("fallback produced empty output")
	}
	if !strings.Contains(out, "revenue") {
		t.Errorf("heuristic fallback missing entities: %q", out)
	}
}

func TestLLM_FallbackOnEmptyOutput(t *testing.T) {
	gen := &fakeGen{reply: "   "}
	c, _ := NewLLM(gen, tokens.NewEstimateCounter(), LLMConfig{})

	out, _ := c.Compress(context.Background(), longTurn, RatioHalf)
	if strings.TrimSpace(out) == "" {
		t.Fatal("empty compression output must fall back to truncation")
	}
}

func TestLLM_TimeoutFallsBack(t *testing.T) {
	gen := &fakeGen{block: true}
	c, _ := NewLLM(gen, tokens.NewEstimateCounter(), LLMConfig{Timeout: 20 * time.Millisecond})

	start := time.Now()
	out, err := c.Compress(context.Background(), longTurn, RatioHalf)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Fatal("timeout must fall back, not return empty")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("stalled backend blocked compression for %v", elapsed)
	}
}

func TestLLM_RateLimitSkipsBackend(t *testing.T) {
	gen := &fakeGen{reply: "summary"}
	c, _ := NewLLM(gen, tokens.NewEstimateCounter(), LLMConfig{MaxCallsPerMinute: 1})

	ctx := context.Background()
	c.Compress(ctx, longTurn, RatioHalf)

	// Different text so the cache cannot serve it; the limiter burst of
	// one is spent, so the backend must be skipped.
	calls := gen.calls
	out, _ := c.Compress(ctx, longTurn+" extended", RatioHalf)
	if gen.calls != calls {
		t.Errorf("backend called while rate limited")
	}
	if strings.TrimSpace(out) == "" {
		t.Fatal("rate-limited compression produced empty output")
	}
}

func TestLLM_NilGenerator(t *testing.T) {
	if _, err := NewLLM(nil, nil, LLMConfig{}); err == nil {
		t.Fatal("expected error for nil generator")
	}
}

func TestErrCollaboratorUnavailable_Wrapping(t *testing.T) {
	err := fmt.Errorf("compress: backend: boom: %w", ErrCollaboratorUnavailable)
	if !errors.Is(err, ErrCollaboratorUnavailable) {
		t.Fatal("wrapping lost the sentinel")
	}
}
