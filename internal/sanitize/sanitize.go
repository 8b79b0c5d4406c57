// Package sanitize normalizes and bounds user-provided text before it is
// bound as a graph query parameter, and provides a defense-in-depth literal
// escaper for values that must ever be inlined into a query string.
package sanitize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Field length caps, per §7.
const (
	MaxStatementLen = 400
	MaxEvidenceLen  = 800
	MaxFilePathLen  = 240
)

// Text normalizes s to precomposed Unicode form, strips control characters
// other than tab and newline, and caps the result to maxLen runes.
func Text(s string, maxLen int) string {
	normalized := norm.NFC.String(s)
	stripped := stripControl(normalized)
	return capLen(stripped, maxLen)
}

// Statement sanitizes a decision/pattern statement field.
func Statement(s string) string { return Text(s, MaxStatementLen) }

// Evidence sanitizes an evidence/description field.
func Evidence(s string) string { return Text(s, MaxEvidenceLen) }

// FilePath sanitizes a file_path field.
func FilePath(s string) string { return Text(s, MaxFilePathLen) }

func stripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\t' || r == '\n' {
			b.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func capLen(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// CypherLiteral escapes backslashes and double quotes for the rare case a
// value must be inlined into a query string rather than bound as a
// parameter. Bound parameters remain the primary mechanism; this exists only
// as defense in depth per §7.
func CypherLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
