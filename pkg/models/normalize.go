package models

import (
	"strings"
	"time"
)

// DateLayout is the wire format for date-only fields.
const DateLayout = "2006-01-02"

// NullString coerces an optional wire string to its storage form: empty or
// whitespace-only becomes NULL.
func NullString(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// NullDate parses an optional YYYY-MM-DD wire string; empty becomes NULL.
// Form validation runs first, so a parse failure here also maps to NULL.
func NullDate(s string) *time.Time {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, trimmed)
	if err != nil {
		return nil
	}
	return &t
}

// FormatDate renders an optional stored date in the wire format.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
