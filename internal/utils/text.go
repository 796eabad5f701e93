package utils

import (
	"regexp"
	"strings"
)

// Citizen reports arrive from SMS gateways, web forms, and app clients with
// wildly inconsistent whitespace and the occasional control character. The
// cleaners normalize text before classification so lexicon matching sees the
// same shape regardless of channel.

const (
	// MaxTitleLength matches the complaints.title column.
	MaxTitleLength = 255
	// MaxDescriptionLength bounds free-form text against runaway payloads.
	MaxDescriptionLength = 10000
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	spaceRuns    = regexp.MustCompile(`[ \t]+`)
	uuidPattern  = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)
)

// CleanTitle flattens a report title to a single trimmed line.
func CleanTitle(s string) string {
	s = controlChars.ReplaceAllString(s, "")
	s = strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
	s = spaceRuns.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return truncate(s, MaxTitleLength)
}

// CleanDescription strips control characters and collapses horizontal
// whitespace while keeping line breaks, which carry sentence structure the
// intensity scorer relies on.
func CleanDescription(s string) string {
	s = controlChars.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = spaceRuns.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return truncate(s, MaxDescriptionLength)
}

// IsUUID reports whether s looks like a canonical lowercase-hex UUID.
func IsUUID(s string) bool {
	return uuidPattern.MatchString(strings.ToLower(s))
}

// EscapeForLogging flattens user text to one bounded line for log output.
func EscapeForLogging(text string, maxLen int) string {
	if len(text) > maxLen {
		text = text[:maxLen] + "..."
	}
	return strings.NewReplacer("\n", "\\n", "\r", "\\r", "\t", "\\t").Replace(text)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Cut on a rune boundary.
	for max > 0 && s[max]&0xC0 == 0x80 {
		max--
	}
	return s[:max]
}
