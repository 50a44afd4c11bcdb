// Package assembler formats memory into the context block handed to
// the response-generating LLM: the Sensory tier verbatim, the retrieved
// turns as compressed summaries, then the current query.
package assembler

import (
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/memclaw/internal/memory"
	"github.com/nextlevelbuilder/memclaw/internal/tokens"
)

// Context is an assembled prompt context plus its size accounting.
type Context struct {
	Prompt         string
	SensoryTurns   int
	RetrievedTurns int
	Tokens         int
}

// Assembler builds prompt contexts. Stateless apart from the token
// counter.
type Assembler struct {
	counter *tokens.Counter
}

// New returns an assembler using counter for size reporting.
func New(counter *tokens.Counter) *Assembler {
	if counter == nil {
		counter = tokens.Default()
	}
	return &Assembler{counter: counter}
}

// Assemble merges the always-included sensory turns with the retrieved
// turns and the current query into one prompt context. Retrieved turns
// are rendered with their compression level so the model knows their
// fidelity.
func (a *Assembler) Assemble(query string, sensory, retrieved []*memory.Turn) Context {
	var b strings.Builder

	if len(sensory) > 0 {
		b.WriteString("# Recent Conversation (verbatim)\n")
		for _, t := range sensory {
			fmt.Fprintf(&b, "[Turn %d · %s] %s\n", t.ID, t.Role, t.RawText)
		}
	}

	if len(retrieved) > 0 {
		b.WriteString("\n# Relevant Past Context (compressed)\n")
		for _, t := range retrieved {
			fmt.Fprintf(&b, "[Turn %d · %s · %d%% compressed] %s\n", t.ID, t.Role, int(t.Level), t.CompressedText)
			if len(t.Entities) > 0 {
				fmt.Fprintf(&b, "  entities: %s\n", strings.Join(t.Entities, ", "))
			}
		}
	}

	b.WriteString("\n# Current User Query\n")
	fmt.Fprintf(&b, "User: %q\n", query)

	prompt := b.String()
	return Context{
		Prompt:         prompt,
		SensoryTurns:   len(sensory),
		RetrievedTurns: len(retrieved),
		Tokens:         a.counter.Count(prompt),
	}
}
