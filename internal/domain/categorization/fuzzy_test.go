package categorization

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuzzyMatcher_Rank(t *testing.T) {
	rules := []CategoryRule{
		{ID: 1, CategoryID: 10, Pattern: "ICA", PatternType: PatternSubstring},
		{ID: 2, CategoryID: 10, Pattern: "ICA MAXI", PatternType: PatternSubstring},
		{ID: 3, CategoryID: 20, Pattern: "SPOTIFY", PatternType: PatternSubstring},
		{ID: 4, CategoryID: 30, Pattern: `^ica`, PatternType: PatternRegex},
	}
	fm := NewFuzzyMatcher(rules)
	assert.Equal(t, 3, fm.PatternCount(), "regex rules are not indexed")

	t.Run("contains match", func(t *testing.T) {
		got := fm.Rank("ICA MAXI LINDHAGEN", DefaultSuggestThreshold, 5)
		require.Len(t, got, 1, "one suggestion per category")
		assert.Equal(t, int64(10), got[0].CategoryID)
		assert.Equal(t, int64(2), got[0].RuleID, "closest pattern represents the category")
	})

	t.Run("typo", func(t *testing.T) {
		got := fm.Rank("SPOTIFI", DefaultSuggestThreshold, 5)
		require.NotEmpty(t, got)
		assert.Equal(t, int64(20), got[0].CategoryID)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, fm.Rank("", DefaultSuggestThreshold, 5))
		assert.Empty(t, fm.Rank("ZZZZZZZZZZZZZZ", DefaultSuggestThreshold, 5))
	})
}

func TestFuzzyMatcher_PriorityBreaksTies(t *testing.T) {
	fm := NewFuzzyMatcher([]CategoryRule{
		{ID: 1, CategoryID: 10, Pattern: "UBER", PatternType: PatternSubstring, Priority: 0},
		{ID: 2, CategoryID: 10, Pattern: "uber", PatternType: PatternSubstring, Priority: 5},
	})

	got := fm.Rank("UBER", DefaultSuggestThreshold, 1)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].RuleID)
	assert.Equal(t, 100, got[0].Score)
}

func TestFuzzyMatcher_Limit(t *testing.T) {
	rules := make([]CategoryRule, 0, 10)
	for i := int64(1); i <= 10; i++ {
		rules = append(rules, CategoryRule{ID: i, CategoryID: i, Pattern: "HEMKOP", PatternType: PatternSubstring})
	}
	fm := NewFuzzyMatcher(rules)

	got := fm.Rank("HEMKOP ODENPLAN", DefaultSuggestThreshold, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{got[0].RuleID, got[1].RuleID, got[2].RuleID}, "equal scores keep rule order")
}

func TestFuzzyMatcher_Nil(t *testing.T) {
	var fm *FuzzyMatcher
	assert.Zero(t, fm.PatternCount())
	assert.Nil(t, fm.Rank("ICA", 0, 5))
}

func TestFuzzyScore(t *testing.T) {
	assert.Equal(t, 100, fuzzyScore("ICA", "ICA"))
	assert.Greater(t, fuzzyScore("ICA MAXI", "ICA"), 75)
	assert.Greater(t, fuzzyScore("ICA", "ICA MAXI"), 75)
	assert.Less(t, fuzzyScore("SPOTIFY", "HYRA"), DefaultSuggestThreshold)
}

func TestFuzzyScore_Typos(t *testing.T) {
	tests := []struct {
		description string
		pattern     string
		atLeast     int
	}{
		{"HEMKÖP", "HEMKOP", 80},
		{"SPOTIFI", "SPOTIFY", 80},
		{"NETFLX", "NETFLIX", 80},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s->%s", tc.description, tc.pattern), func(t *testing.T) {
			assert.GreaterOrEqual(t, fuzzyScore(tc.description, tc.pattern), tc.atLeast)
		})
	}
}

func TestFuzzyScore_Empty(t *testing.T) {
	assert.Zero(t, fuzzyScore("", "ICA"))
	assert.Zero(t, fuzzyScore("ICA", ""))
}

func BenchmarkFuzzyMatcher_Rank(b *testing.B) {
	rules := make([]CategoryRule, 1000)
	for i := range rules {
		rules[i] = CategoryRule{
			ID:          int64(i + 1),
			CategoryID:  int64(i%40 + 1),
			Pattern:     fmt.Sprintf("MERCHANT %d", i),
			PatternType: PatternSubstring,
		}
	}
	fm := NewFuzzyMatcher(rules)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fm.Rank("MERCHANT 500 STOCKHOLM", DefaultSuggestThreshold, 5)
	}
}
