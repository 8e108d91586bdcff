package categorization

import (
	"cmp"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/cloudflare/ahocorasick"
)

// snapshot is an immutable, fully compiled view of the rule set. It is
// replaced wholesale on every rule change and never mutated after build.
type snapshot struct {
	rules    []compiledRule
	matcher  *ahocorasick.Matcher // over lower-cased substring patterns
	fuzzy    *FuzzyMatcher
	loadedAt time.Time
}

type compiledRule struct {
	rule    CategoryRule
	dictIdx int            // index in the Aho-Corasick dictionary, substring rules only
	re      *regexp.Regexp // regex rules only
}

// sortRules orders rules by descending priority; equal priorities keep
// creation order (ascending id).
func sortRules(rules []CategoryRule) {
	slices.SortStableFunc(rules, func(a, b CategoryRule) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// buildSnapshot compiles rules. Regex rules that fail to compile and
// empty patterns are dropped with a warning so one bad rule cannot break
// categorization for everything else.
func buildSnapshot(rules []CategoryRule, logger *slog.Logger) *snapshot {
	sorted := slices.Clone(rules)
	sortRules(sorted)

	dict := make([][]byte, 0, len(sorted))
	dictIndex := make(map[string]int)
	compiled := make([]compiledRule, 0, len(sorted))

	for _, rule := range sorted {
		if strings.TrimSpace(rule.Pattern) == "" {
			logger.Warn("skipping rule with empty pattern", slog.Int64("rule_id", rule.ID))
			continue
		}

		switch rule.PatternType {
		case PatternRegex:
			re, err := compileRulePattern(rule.Pattern)
			if err != nil {
				logger.Warn("skipping rule with invalid regex",
					slog.Int64("rule_id", rule.ID),
					slog.String("pattern", rule.Pattern),
					slog.Any("error", err),
				)
				continue
			}
			compiled = append(compiled, compiledRule{rule: rule, dictIdx: -1, re: re})
		default:
			needle := strings.ToLower(rule.Pattern)
			idx, ok := dictIndex[needle]
			if !ok {
				idx = len(dict)
				dictIndex[needle] = idx
				dict = append(dict, []byte(needle))
			}
			compiled = append(compiled, compiledRule{rule: rule, dictIdx: idx})
		}
	}

	snap := &snapshot{
		rules:    compiled,
		fuzzy:    NewFuzzyMatcher(sorted),
		loadedAt: time.Now(),
	}
	if len(dict) > 0 {
		snap.matcher = ahocorasick.NewMatcher(dict)
	}
	return snap
}

func compileRulePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// match returns the first rule, in priority order, that matches description.
func (s *snapshot) match(description string) *CategoryRule {
	if len(s.rules) == 0 {
		return nil
	}

	// One pass over the text finds every substring pattern it contains.
	// Snapshots are shared by concurrent readers, so Match (which keeps
	// per-call state in the trie) cannot be used.
	var hits map[int]struct{}
	if s.matcher != nil {
		found := s.matcher.MatchThreadSafe([]byte(strings.ToLower(description)))
		hits = make(map[int]struct{}, len(found))
		for _, idx := range found {
			hits[idx] = struct{}{}
		}
	}

	for i := range s.rules {
		cr := &s.rules[i]
		if cr.re != nil {
			if cr.re.MatchString(description) {
				rule := cr.rule
				return &rule
			}
			continue
		}
		if _, ok := hits[cr.dictIdx]; ok {
			rule := cr.rule
			return &rule
		}
	}
	return nil
}

func (s *snapshot) size() int {
	return len(s.rules)
}
