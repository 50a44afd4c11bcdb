package assembler

import (
	"strings"
	"testing"

	"github.com/nextlevelbuilder/memclaw/internal/memory"
	"github.com/nextlevelbuilder/memclaw/internal/tokens"
)

func TestAssemble(t *testing.T) {
	a := New(tokens.NewEstimateCounter())

	sensory := []*memory.Turn{
		{ID: 9, Role: memory.RoleUser, RawText: "What about Q2?", Tier: memory.TierSensory},
		{ID: 10, Role: memory.RoleAgent, RawText: "Q2 reached $5.0M.", Tier: memory.TierSensory},
	}
	retrieved := []*memory.Turn{
		{
			ID: 1, Role: memory.RoleUser, Level: memory.LevelTag,
			CompressedText: "q3, revenue, $6.2m",
			Entities:       []string{"q3", "revenue", "$6.2m"},
			Tier:           memory.TierLongTerm,
		},
	}

	ctx := a.Assemble("How did Q3 compare?", sensory, retrieved)

	for _, want := range []string{
		"What about Q2?",
		"Q2 reached $5.0M.",
		"q3, revenue, $6.2m",
		"entities: q3, revenue, $6.2m",
		"How did Q3 compare?",
		"95% compressed",
	} {
		if !strings.Contains(ctx.Prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, ctx.Prompt)
		}
	}

	if ctx.SensoryTurns != 2 || ctx.RetrievedTurns != 1 {
		t.Errorf("counts %d/%d, want 2/1", ctx.SensoryTurns, ctx.RetrievedTurns)
	}
	if ctx.Tokens <= 0 {
		t.Error("token count not reported")
	}
}

func TestAssemble_EmptyMemory(t *testing.T) {
	a := New(tokens.NewEstimateCounter())

	ctx := a.Assemble("hello", nil, nil)
	if !strings.Contains(ctx.Prompt, "hello") {
		t.Error("query missing from prompt")
	}
	if strings.Contains(ctx.Prompt, "Relevant Past Context") {
		t.Error("empty retrieval rendered a section")
	}
}
