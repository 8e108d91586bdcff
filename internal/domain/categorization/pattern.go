package categorization

import (
	"regexp"
	"strings"
)

// DefaultNoiseTokens are trailing words that identify the legal form or
// the city of a merchant rather than the merchant itself.
var DefaultNoiseTokens = []string{"AB", "LTD", "INC", "CORP", "STOCKHOLM", "GÖTEBORG", "MALMÖ"}

// PatternExtractor derives a rule pattern from a transaction description.
type PatternExtractor struct {
	noise *regexp.Regexp
}

// NewPatternExtractor builds an extractor that strips the first of tokens
// (a whole word, any case) and everything after it.
func NewPatternExtractor(tokens []string) *PatternExtractor {
	quoted := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	if len(quoted) == 0 {
		return &PatternExtractor{}
	}
	return &PatternExtractor{
		noise: regexp.MustCompile(`(?is)\s+(?:` + strings.Join(quoted, "|") + `)(?:\s.*)?$`),
	}
}

// Extract returns the upper-cased first word of description once noise is
// stripped, e.g. "ICA MAXI STOCKHOLM" gives "ICA". When nothing is left it
// falls back to the whole trimmed description, upper-cased.
func (e *PatternExtractor) Extract(description string) string {
	stripped := description
	if e.noise != nil {
		stripped = e.noise.ReplaceAllString(description, "")
	}
	if fields := strings.Fields(stripped); len(fields) > 0 {
		return strings.ToUpper(fields[0])
	}
	return strings.ToUpper(strings.TrimSpace(description))
}
