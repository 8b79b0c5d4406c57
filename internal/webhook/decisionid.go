package webhook

import "regexp"

// decisionIDPatterns are tried in order; the first match wins (§4.3).
var decisionIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Membria Decision:\s*(dec_[A-Za-z0-9_]+)`),
	regexp.MustCompile(`Decision:\s*(dec_[A-Za-z0-9_]+)`),
	regexp.MustCompile(`\[(dec_[A-Za-z0-9_]+)\]`),
	regexp.MustCompile(`(dec_[A-Za-z0-9_]+)`),
}

// ExtractDecisionID returns the first decision id found in free text, or ""
// if none of the four patterns match.
func ExtractDecisionID(text string) string {
	for _, re := range decisionIDPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}
