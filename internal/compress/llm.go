package compress

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/memclaw/internal/tokens"
)

const (
	halfPrompt = `Create a concise summary of this conversation turn:

%s

Extract the key information: main question or topic, key facts, numbers
and names, decisions or conclusions. Keep it brief, about %d tokens.
Focus on what would be needed to recall this turn later.

Concise summary:`

	tagPrompt = `Extract ONLY the most critical facts from this text:

%s

Required format, extremely brief: topic keywords, entity names, numbers.
Maximum %d tokens, no prose.

Critical facts:`
)

// LLMConfig configures the LLM-backed compressor.
type LLMConfig struct {
	Timeout           time.Duration // per-call deadline (default 10s)
	MaxCallsPerMinute int           // backend rate limit (default 30)
	CacheSize         int           // compression result cache entries (default 512)
}

func (c LLMConfig) withDefaults() LLMConfig {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxCallsPerMinute <= 0 {
		c.MaxCallsPerMinute = 30
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 512
	}
	return c
}

// LLM compresses turns by delegating to a text-generation collaborator.
// Calls are timeout-bounded, rate-limited and cached by (ratio, text)
// hash so a fixed input compresses to a fixed output without redundant
// backend calls. Any collaborator failure falls back to the rule-based
// compressor, which itself falls back to truncation.
type LLM struct {
	gen      TextGenerator
	counter  *tokens.Counter
	fallback *Heuristic
	limiter  *rate.Limiter
	cache    *lru.Cache[string, string]
	timeout  time.Duration
}

// NewLLM returns an LLM-backed compressor. gen must be non-nil.
func NewLLM(gen TextGenerator, counter *tokens.Counter, cfg LLMConfig) (*LLM, error) {
	if gen == nil {
		return nil, fmt.Errorf("compress: nil text generator")
	}
	if counter == nil {
		counter = tokens.Default()
	}
	cfg = cfg.withDefaults()

	cache, err := lru.New[string, string](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("compress: cache: %w", err)
	}

	return &LLM{
		gen:      gen,
		counter:  counter,
		fallback: NewHeuristic(counter),
		limiter:  rate.NewLimiter(rate.Limit(float64(cfg.MaxCallsPerMinute)/60.0), cfg.MaxCallsPerMinute),
		cache:    cache,
		timeout:  cfg.Timeout,
	}, nil
}

// Compress implements Compressor. Never returns an error: collaborator
// failures are recovered locally via the heuristic/truncation fallback.
func (l *LLM) Compress(ctx context.Context, text string, ratio Ratio) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || ratio == RatioNone {
		return trimmed, nil
	}

	key := cacheKey(ratio, trimmed)
	if cached, ok := l.cache.Get(key); ok {
		return cached, nil
	}

	out, err := l.generate(ctx, trimmed, ratio)
	if err != nil || strings.TrimSpace(out) == "" {
		if err != nil {
			slog.Warn("compress: falling back to heuristic", "ratio", int(ratio), "error", err)
		}
		out, _ = l.fallback.Compress(ctx, trimmed, ratio)
	}

	l.cache.Add(key, out)
	return out, nil
}

func (l *LLM) generate(ctx context.Context, text string, ratio Ratio) (string, error) {
	// A saturated backend must not stall ingestion: skip the call
	// instead of queueing behind it.
	if !l.limiter.Allow() {
		return "", fmt.Errorf("compress: rate limited: %w", ErrCollaboratorUnavailable)
	}

	target := l.counter.Count(text) * (100 - int(ratio)) / 100
	if target < minTagTokens {
		target = minTagTokens
	}

	var prompt string
	if ratio == RatioTag {
		prompt = fmt.Sprintf(tagPrompt, text, target)
	} else {
		prompt = fmt.Sprintf(halfPrompt, text, target)
	}

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	out, err := l.gen.Generate(callCtx, prompt)
	if err != nil {
		return "", fmt.Errorf("compress: backend: %v: %w", err, ErrCollaboratorUnavailable)
	}
	return out, nil
}

func cacheKey(ratio Ratio, text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%d:%x", ratio, h[:16])
}
