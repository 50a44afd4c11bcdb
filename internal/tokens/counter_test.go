package tokens

import (
	"strings"
	"testing"
)

func TestEstimateCounter_Count(t *testing.T) {
	c := NewEstimateCounter()

	if n := c.Count(""); n != 0 {
		t.Errorf("Count(\"\") = %d, want 0", n)
	}

	// 4 chars per token, rounded up.
	if n := c.Count("abcd"); n != 1 {
		t.Errorf("Count(4 chars) = %d, want 1", n)
	}
	if n := c.Count("abcde"); n != 2 {
		t.Errorf("Count(5 chars) = %d, want 2", n)
	}
}

func TestEstimateCounter_Truncate(t *testing.T) {
	c := NewEstimateCounter()
	text := strings.Repeat("word ", 50)

	out := c.Truncate(text, 10)
	if !strings.HasPrefix(text, out) {
		t.Error("truncated text is not a prefix of the input")
	}
	if got := c.Count(out); got > 10 {
		t.Errorf("truncated text counts %d tokens, want <= 10", got)
	}

	if out := c.Truncate(text, 0); out != "" {
		t.Errorf("Truncate(_, 0) = %q, want empty", out)
	}
	if out := c.Truncate("short", 100); out != "short" {
		t.Errorf("Truncate below limit = %q, want unchanged", out)
	}
}

func TestCounter_TruncateIsPrefix(t *testing.T) {
	// Holds for both the BPE and the estimate path.
	c := NewCounter()
	text := "Q3 revenue was $6.2M, up 20% from the prior quarter according to finance."

	for _, max := range []int{1, 3, 5, 100} {
		out := c.Truncate(text, max)
		if !strings.HasPrefix(text, out) {
			t.Errorf("Truncate(_, %d) = %q is not a prefix", max, out)
		}
	}
}
