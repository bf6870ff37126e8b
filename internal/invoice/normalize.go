package invoice

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// Horizontal whitespace: ASCII blanks, Unicode space separators (NBSP
	// included) and the BOM that some PDF producers leave in text runs.
	horizontalSpaceRe = regexp.MustCompile(`[\t\v\f \p{Z}\x{FEFF}]+`)
	blankLinesRe      = regexp.MustCompile(`\n{3,}`)
)

// Normalize canonicalizes extracted document text so the field rules match
// regardless of formatting noise. It is total and idempotent.
func Normalize(text string) string {
	s := norm.NFC.String(text)
	s = strings.ReplaceAll(s, "\r", "\n")
	s = horizontalSpaceRe.ReplaceAllString(s, " ")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
