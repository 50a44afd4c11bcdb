package config

import (
	"regexp"
	"strings"
)

// DefaultConversationName keys snapshots saved without an explicit name.
const DefaultConversationName = "default"

var (
	validNameRe  = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
	invalidChars = regexp.MustCompile(`[^a-z0-9_-]+`)
	leadingDash  = regexp.MustCompile(`^-+`)
	trailingDash = regexp.MustCompile(`-+$`)
)

// NormalizeConversationName converts a user-provided conversation name
// into a valid snapshot key:
//   - Lowercase, max 64 chars
//   - Only [a-z0-9_-] allowed
//   - Invalid chars replaced with "-"
//   - Leading/trailing dashes stripped
//   - Empty result falls back to "default"
func NormalizeConversationName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return DefaultConversationName
	}

	lower := strings.ToLower(trimmed)
	if validNameRe.MatchString(lower) {
		return lower
	}

	result := invalidChars.ReplaceAllString(lower, "-")
	result = leadingDash.ReplaceAllString(result, "")
	result = trailingDash.ReplaceAllString(result, "")

	if len(result) > 64 {
		result = result[:64]
	}

	if result == "" {
		return DefaultConversationName
	}
	return result
}
