package extract

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// SummaryLength bounds the excerpt embedded in document chat prompts.
	SummaryLength = 2000
	// MaxContentLength is the prompt content budget (4000 tokens at ~4 chars each).
	MaxContentLength = 4000 * 4
)

var (
	reHorizontalSpace = regexp.MustCompile(`[ \t\r\f\v]+`)
	reSpaceAroundNL   = regexp.MustCompile(` ?\n ?`)
	reMultiBlank      = regexp.MustCompile(`\n{3,}`)
)

// Sanitize keeps printable ASCII plus newlines, collapses runs of spaces and
// tabs to one space, caps blank-line runs at one empty line, and trims.
func Sanitize(s string) string {
	s = keepPrintable([]byte(s), true)
	s = reHorizontalSpace.ReplaceAllString(s, " ")
	s = reSpaceAroundNL.ReplaceAllString(s, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Summarize returns the sanitized text when it fits in maxLength, otherwise the
// first 70% and last 30% of the budget joined by a truncation marker that
// records the sanitized length.
func Summarize(s string, maxLength int) string {
	clean := Sanitize(s)
	if len(clean) <= maxLength {
		return clean
	}
	if maxLength < 0 {
		maxLength = 0
	}
	head := maxLength * 7 / 10
	tail := maxLength * 3 / 10
	return clean[:head] + TruncationMarker(len(clean)) + clean[len(clean)-tail:]
}

// TruncationMarker is the separator Summarize places between head and tail.
func TruncationMarker(total int) string {
	return fmt.Sprintf("\n\n[...Content truncated (%d characters total)...]\n\n", total)
}
