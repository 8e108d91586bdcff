// Package categorization assigns categories to transaction descriptions
// from user-maintained rules and learns new rules from manual edits.
package categorization

import "time"

// PatternType selects how a rule pattern is compared to a description.
type PatternType string

const (
	// PatternSubstring matches when the pattern occurs anywhere in the
	// description, ignoring case.
	PatternSubstring PatternType = "substring"
	// PatternRegex matches when the case-insensitive regular expression
	// finds a match in the description.
	PatternRegex PatternType = "regex"
)

func (t PatternType) Valid() bool {
	return t == PatternSubstring || t == PatternRegex
}

// CategoryRule maps a description pattern to a category. Rules are
// evaluated by descending priority, then creation order.
type CategoryRule struct {
	ID          int64       `json:"id"`
	CategoryID  int64       `json:"category_id"`
	Pattern     string      `json:"pattern"`
	PatternType PatternType `json:"pattern_type"`
	Priority    int         `json:"priority"`
	CreatedAt   time.Time   `json:"created_at"`
}

// RuleInput is the caller-supplied part of a new rule.
type RuleInput struct {
	CategoryID  int64       `json:"category_id"`
	Pattern     string      `json:"pattern"`
	PatternType PatternType `json:"pattern_type"`
	Priority    int         `json:"priority"`
}

// Suggestion is a fuzzy candidate category for an uncategorized description.
type Suggestion struct {
	CategoryID int64  `json:"category_id"`
	RuleID     int64  `json:"rule_id"`
	Pattern    string `json:"pattern"`
	Score      int    `json:"score"`
}
