// Package sanitize cleans user-authored text before it leaves the system,
// e.g. as a CSV cell.
package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// horizontalSpace matches runs of spaces and tabs. Newlines are deliberately
// not included: multi-line milestone details keep their line breaks.
var horizontalSpace = regexp.MustCompile(`[ \t]+`)

// trimSet is the set of characters removed from both ends.
const trimSet = " \t\n\r\x00\x0B"

// Text strips markup, collapses horizontal whitespace to a single space and
// trims the ends. Internal newlines survive. Text never fails; empty input
// yields "".
//
// Text is idempotent: Text(Text(s)) == Text(s) for every s.
func Text(s string) string {
	if s == "" {
		return ""
	}

	s = stripTags(s)
	s = horizontalSpace.ReplaceAllString(s, " ")
	return strings.Trim(s, trimSet)
}

// stripTags removes tags until none are left. A single pass is not enough:
// "<<b>b>" becomes "<b>" after one pass.
func stripTags(s string) string {
	for {
		next := stripOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

// stripOnce keeps only the raw bytes of text tokens. Raw (not Text) is used
// so entities such as &amp; are left exactly as written.
func stripOnce(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))

	var b strings.Builder
	b.Grow(len(s))

	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF is the only error a strings.Reader can produce.
			return b.String()
		case html.TextToken:
			b.Write(z.Raw())
		}
	}
}
