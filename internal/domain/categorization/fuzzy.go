package categorization

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// DefaultSuggestThreshold is the minimum score a rule needs to be offered
// as a suggestion.
const DefaultSuggestThreshold = 50

// FuzzyMatcher ranks rule patterns by similarity to a description. It backs
// suggestions for uncategorized transactions and is never used to assign a
// category on its own.
type FuzzyMatcher struct {
	patterns []fuzzyPattern
}

type fuzzyPattern struct {
	normalized string // upper-cased pattern
	ruleID     int64
	categoryID int64
	priority   int
}

// NewFuzzyMatcher indexes the substring rules. Regex rules have no literal
// form to compare against and are left out.
func NewFuzzyMatcher(rules []CategoryRule) *FuzzyMatcher {
	fm := &FuzzyMatcher{patterns: make([]fuzzyPattern, 0, len(rules))}
	for _, rule := range rules {
		if rule.PatternType == PatternRegex {
			continue
		}
		normalized := strings.ToUpper(strings.TrimSpace(rule.Pattern))
		if normalized == "" {
			continue
		}
		fm.patterns = append(fm.patterns, fuzzyPattern{
			normalized: normalized,
			ruleID:     rule.ID,
			categoryID: rule.CategoryID,
			priority:   rule.Priority,
		})
	}
	return fm
}

// Rank returns at most limit suggestions scoring at least threshold, best
// first, with one entry per category.
func (fm *FuzzyMatcher) Rank(description string, threshold, limit int) []Suggestion {
	if fm == nil || len(fm.patterns) == 0 {
		return nil
	}

	normalized := strings.ToUpper(strings.TrimSpace(description))
	if normalized == "" {
		return nil
	}

	best := make(map[int64]Suggestion)
	bestPriority := make(map[int64]int)
	for _, p := range fm.patterns {
		score := fuzzyScore(normalized, p.normalized)
		if score < threshold {
			continue
		}
		cur, ok := best[p.categoryID]
		if !ok || score > cur.Score || (score == cur.Score && p.priority > bestPriority[p.categoryID]) {
			best[p.categoryID] = Suggestion{
				CategoryID: p.categoryID,
				RuleID:     p.ruleID,
				Pattern:    p.normalized,
				Score:      score,
			}
			bestPriority[p.categoryID] = p.priority
		}
	}

	results := make([]Suggestion, 0, len(best))
	for _, sug := range best {
		results = append(results, sug)
	}
	slices.SortFunc(results, func(a, b Suggestion) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.RuleID, b.RuleID)
	})

	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}

// PatternCount returns the number of patterns in the matcher
func (fm *FuzzyMatcher) PatternCount() int {
	if fm == nil {
		return 0
	}
	return len(fm.patterns)
}

// fuzzyScore rates how close a description is to a rule pattern, 0-100.
// Containment scores at least 75; otherwise the better of the edit
// distance ratio and an in-order subsequence match counts.
func fuzzyScore(description, pattern string) int {
	if description == pattern {
		return 100
	}

	dLen := utf8.RuneCountInString(description)
	pLen := utf8.RuneCountInString(pattern)
	if dLen == 0 || pLen == 0 {
		return 0
	}

	// merchant variations usually only add branch or city words
	if strings.Contains(description, pattern) {
		return 75 + 25*pLen/dLen
	}
	if strings.Contains(pattern, description) {
		return 75 + 25*dLen/pLen
	}

	longest := max(dLen, pLen)
	editScore := 100 * (longest - fuzzy.LevenshteinDistance(description, pattern)) / longest

	subseqScore := 0
	if extra := fuzzy.RankMatchNormalizedFold(pattern, description); extra >= 0 {
		subseqScore = 60 * pLen / (pLen + extra)
	}

	return max(editScore, subseqScore)
}
