package categorization

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
)

// MockRuleStore is an in-memory RuleStore for testing
type MockRuleStore struct {
	mu       sync.Mutex
	rules    []CategoryRule
	nextID   int64
	inserts  int
	loads    int
	loadErr  error
	findErr  error
	insertFn func(rule *CategoryRule) error
}

func (m *MockRuleStore) ListOrderedByPriority(ctx context.Context) ([]CategoryRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]CategoryRule, len(m.rules))
	copy(out, m.rules)
	sortRules(out)
	return out, nil
}

func (m *MockRuleStore) ListByCategory(ctx context.Context, categoryID int64) ([]CategoryRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []CategoryRule
	for _, r := range m.rules {
		if r.CategoryID == categoryID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockRuleStore) FindByPatternAndCategory(ctx context.Context, pattern string, categoryID int64) (*CategoryRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, r := range m.rules {
		if r.Pattern == pattern && r.CategoryID == categoryID {
			rule := r
			return &rule, nil
		}
	}
	return nil, nil
}

func (m *MockRuleStore) Insert(ctx context.Context, rule *CategoryRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertFn != nil {
		if err := m.insertFn(rule); err != nil {
			return err
		}
	}
	m.nextID++
	m.inserts++
	rule.ID = m.nextID
	m.rules = append(m.rules, *rule)
	return nil
}

func (m *MockRuleStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rules {
		if r.ID == id {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("rule", id)
}

func (m *MockRuleStore) add(rule CategoryRule) {
	m.nextID++
	rule.ID = m.nextID
	if rule.PatternType == "" {
		rule.PatternType = PatternSubstring
	}
	m.rules = append(m.rules, rule)
}

// MockCategories treats every id in the set as existing
type MockCategories map[int64]bool

func (m MockCategories) Exists(ctx context.Context, id int64) (bool, error) {
	return m[id], nil
}

func newTestService(store *MockRuleStore) *Service {
	return NewService(store, MockCategories{1: true, 2: true, 3: true}, discardLogger)
}

func TestCategorize_FirstMatchByPriority(t *testing.T) {
	store := &MockRuleStore{}
	store.add(CategoryRule{CategoryID: 1, Pattern: "ICA", Priority: 0})
	store.add(CategoryRule{CategoryID: 2, Pattern: "ICA MAXI", Priority: 10})
	svc := newTestService(store)
	ctx := context.Background()

	got, err := svc.Categorize(ctx, "ICA MAXI LINDHAGEN")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), *got)

	got, err = svc.Categorize(ctx, "ICA NARA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), *got)

	got, err = svc.Categorize(ctx, "SYSTEMBOLAGET")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCategorize_LoadsOnce(t *testing.T) {
	store := &MockRuleStore{}
	store.add(CategoryRule{CategoryID: 1, Pattern: "ICA"})
	svc := newTestService(store)

	for i := 0; i < 5; i++ {
		_, err := svc.Categorize(context.Background(), "ica")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.loads)
	assert.Equal(t, 1, svc.RuleCount())
}

func TestCategorize_LoadError(t *testing.T) {
	store := &MockRuleStore{loadErr: errors.New("db down")}
	svc := newTestService(store)

	_, err := svc.Categorize(context.Background(), "ica")
	assert.Error(t, err)
}

func TestCategorizeBatch(t *testing.T) {
	store := &MockRuleStore{}
	store.add(CategoryRule{CategoryID: 1, Pattern: "ICA"})
	store.add(CategoryRule{CategoryID: 3, Pattern: "SL "})
	svc := newTestService(store)

	got, err := svc.CategorizeBatch(context.Background(), []string{"ICA", "SL REMSA", "OKÄND"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1), *got[0])
	assert.Equal(t, int64(3), *got[1])
	assert.Nil(t, got[2])
}

func TestLearn_CreatesRuleAndInvalidatesCache(t *testing.T) {
	store := &MockRuleStore{}
	svc := newTestService(store)
	ctx := context.Background()

	before, err := svc.Categorize(ctx, "ICA NARA ODENPLAN")
	require.NoError(t, err)
	assert.Nil(t, before)

	rule, created, err := svc.Learn(ctx, "ICA MAXI STOCKHOLM", 2, 0)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ICA", rule.Pattern)
	assert.Equal(t, PatternSubstring, rule.PatternType)
	assert.Equal(t, int64(2), rule.CategoryID)

	after, err := svc.Categorize(ctx, "ICA NARA ODENPLAN")
	require.NoError(t, err)
	require.NotNil(t, after, "a learned rule is visible to the next categorization")
	assert.Equal(t, int64(2), *after)
}

func TestLearn_Idempotent(t *testing.T) {
	store := &MockRuleStore{}
	svc := newTestService(store)
	ctx := context.Background()

	first, created, err := svc.Learn(ctx, "Spotify AB", 3, 0)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.Learn(ctx, "SPOTIFY P3F2A", 3, 7)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 0, second.Priority, "existing rule is returned unchanged")
	assert.Equal(t, 1, store.inserts)
}

func TestLearn_SamePatternOtherCategory(t *testing.T) {
	store := &MockRuleStore{}
	svc := newTestService(store)
	ctx := context.Background()

	_, _, err := svc.Learn(ctx, "SWISH Anna", 1, 0)
	require.NoError(t, err)
	_, created, err := svc.Learn(ctx, "SWISH Erik", 2, 0)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, store.inserts)
}

func TestLearn_Errors(t *testing.T) {
	t.Run("empty description", func(t *testing.T) {
		svc := newTestService(&MockRuleStore{})
		_, _, err := svc.Learn(context.Background(), "   ", 1, 0)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("unknown category", func(t *testing.T) {
		svc := newTestService(&MockRuleStore{})
		_, _, err := svc.Learn(context.Background(), "ICA", 99, 0)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		store := &MockRuleStore{insertFn: func(*CategoryRule) error { return errors.New("boom") }}
		svc := newTestService(store)
		_, _, err := svc.Learn(context.Background(), "ICA", 1, 0)
		assert.Error(t, err)
	})
}

func TestLearn_ReloadFailureClearsCache(t *testing.T) {
	store := &MockRuleStore{}
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Categorize(ctx, "warm up")
	require.NoError(t, err)

	store.loadErr = errors.New("temporary")
	_, created, err := svc.Learn(ctx, "ICA", 1, 0)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 0, svc.RuleCount(), "stale snapshot is dropped")

	store.loadErr = nil
	got, err := svc.Categorize(ctx, "ICA KVANTUM")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), *got)
}

func TestLearn_Concurrent(t *testing.T) {
	store := &MockRuleStore{}
	svc := newTestService(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Learn(ctx, "WILLYS HEMMA", 1, 0)
			assert.NoError(t, err)
			_, err = svc.Categorize(ctx, "WILLYS")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.inserts, "concurrent learns of the same pattern create one rule")
}

func TestCreateRule(t *testing.T) {
	ctx := context.Background()

	t.Run("regex rule is applied", func(t *testing.T) {
		store := &MockRuleStore{}
		svc := newTestService(store)

		rule, err := svc.CreateRule(ctx, RuleInput{CategoryID: 1, Pattern: `^hyra\s+\d{4}`, PatternType: PatternRegex, Priority: 5})
		require.NoError(t, err)
		assert.NotZero(t, rule.ID)

		got, err := svc.Categorize(ctx, "HYRA 2024 MARS")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(1), *got)
	})

	t.Run("defaults to substring", func(t *testing.T) {
		svc := newTestService(&MockRuleStore{})
		rule, err := svc.CreateRule(ctx, RuleInput{CategoryID: 1, Pattern: " ica "})
		require.NoError(t, err)
		assert.Equal(t, PatternSubstring, rule.PatternType)
		assert.Equal(t, "ica", rule.Pattern)
	})

	tests := []struct {
		name  string
		input RuleInput
		want  error
	}{
		{"empty pattern", RuleInput{CategoryID: 1, Pattern: " "}, apperr.ErrValidation},
		{"bad regex", RuleInput{CategoryID: 1, Pattern: "(", PatternType: PatternRegex}, apperr.ErrValidation},
		{"bad type", RuleInput{CategoryID: 1, Pattern: "x", PatternType: "glob"}, apperr.ErrValidation},
		{"missing category", RuleInput{CategoryID: 42, Pattern: "x"}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockRuleStore{}
			svc := newTestService(store)
			_, err := svc.CreateRule(ctx, tt.input)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, store.inserts)
		})
	}
}

func TestDeleteRule_RemovesFromCache(t *testing.T) {
	store := &MockRuleStore{}
	store.add(CategoryRule{CategoryID: 1, Pattern: "ICA"})
	svc := newTestService(store)
	ctx := context.Background()

	got, err := svc.Categorize(ctx, "ICA")
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, svc.DeleteRule(ctx, 1))

	got, err = svc.Categorize(ctx, "ICA")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, svc.DeleteRule(ctx, 1), apperr.ErrNotFound)
}

func TestInvalidate_PicksUpExternalChanges(t *testing.T) {
	store := &MockRuleStore{}
	store.add(CategoryRule{CategoryID: 1, Pattern: "ICA"})
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Categorize(ctx, "ICA")
	require.NoError(t, err)

	// category delete cascades in the database behind the service's back
	store.rules = nil
	require.NoError(t, svc.Invalidate(ctx))

	got, err := svc.Categorize(ctx, "ICA")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSuggest(t *testing.T) {
	store := &MockRuleStore{}
	store.add(CategoryRule{CategoryID: 1, Pattern: "ICA"})
	store.add(CategoryRule{CategoryID: 3, Pattern: "SPOTIFY"})
	svc := newTestService(store)

	got, err := svc.Suggest(context.Background(), "ICA KVANTUM", 3)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, int64(1), got[0].CategoryID)
}

func TestListRules(t *testing.T) {
	store := &MockRuleStore{}
	store.add(CategoryRule{CategoryID: 1, Pattern: "ICA"})
	store.add(CategoryRule{CategoryID: 2, Pattern: "SL"})
	svc := newTestService(store)

	rules, err := svc.ListRules(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "ICA", rules[0].Pattern)
}
