package categorization

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
	"github.com/FACorreiaa/paycycle-budget/pkg/metrics"
)

// RuleStore persists category rules.
type RuleStore interface {
	ListOrderedByPriority(ctx context.Context) ([]CategoryRule, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]CategoryRule, error)
	FindByPatternAndCategory(ctx context.Context, pattern string, categoryID int64) (*CategoryRule, error)
	Insert(ctx context.Context, rule *CategoryRule) error
	Delete(ctx context.Context, id int64) error
}

// CategoryChecker reports whether a category exists.
type CategoryChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Service categorizes descriptions against a cached, compiled rule set.
// Readers use the current snapshot without locking; every change to the
// rules reloads the snapshot before returning, so a categorization that
// starts after a change completes always sees it.
type Service struct {
	store      RuleStore
	categories CategoryChecker
	extractor  *PatternExtractor
	logger     *slog.Logger
	metrics    *metrics.Metrics

	snap    atomic.Pointer[snapshot]
	writeMu sync.Mutex // serializes rule writes and reloads
}

// NewService creates a new categorization service
func NewService(store RuleStore, categories CategoryChecker, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		categories: categories,
		extractor:  NewPatternExtractor(DefaultNoiseTokens),
		logger:     logger,
	}
}

// WithMetrics sets the collectors used to record lookups.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// WithNoiseTokens replaces the words stripped when learning a pattern.
func (s *Service) WithNoiseTokens(tokens []string) *Service {
	s.extractor = NewPatternExtractor(tokens)
	return s
}

// Categorize returns the category of the first matching rule, or nil.
func (s *Service) Categorize(ctx context.Context, description string) (*int64, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	rule := snap.match(description)
	s.metrics.ObserveCategorize(rule != nil)
	if rule == nil {
		return nil, nil
	}
	id := rule.CategoryID
	return &id, nil
}

// CategorizeBatch categorizes descriptions against one snapshot.
func (s *Service) CategorizeBatch(ctx context.Context, descriptions []string) ([]*int64, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*int64, len(descriptions))
	for i, desc := range descriptions {
		if rule := snap.match(desc); rule != nil {
			id := rule.CategoryID
			results[i] = &id
		}
		s.metrics.ObserveCategorize(results[i] != nil)
	}
	return results, nil
}

// Learn turns a manual categorization into a substring rule. When a rule
// with the same pattern and category already exists it is returned with
// created=false and nothing is written.
func (s *Service) Learn(ctx context.Context, description string, categoryID int64, priority int) (rule *CategoryRule, created bool, err error) {
	pattern := s.extractor.Extract(description)
	if pattern == "" {
		return nil, false, apperr.Validation("cannot learn a rule from an empty description")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.requireCategory(ctx, categoryID); err != nil {
		return nil, false, err
	}

	existing, err := s.store.FindByPatternAndCategory(ctx, pattern, categoryID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	rule = &CategoryRule{
		CategoryID:  categoryID,
		Pattern:     pattern,
		PatternType: PatternSubstring,
		Priority:    priority,
	}
	if err := s.store.Insert(ctx, rule); err != nil {
		return nil, false, err
	}

	s.metrics.IncRulesLearned()
	s.logger.Info("learned category rule",
		slog.String("pattern", pattern),
		slog.Int64("category_id", categoryID),
		slog.Int64("rule_id", rule.ID),
	)

	s.reloadAfterWrite(ctx)
	return rule, true, nil
}

// CreateRule validates and stores a user-defined rule.
func (s *Service) CreateRule(ctx context.Context, in RuleInput) (*CategoryRule, error) {
	in.Pattern = strings.TrimSpace(in.Pattern)
	if in.Pattern == "" {
		return nil, apperr.Validation("pattern is required")
	}
	if in.PatternType == "" {
		in.PatternType = PatternSubstring
	}
	if !in.PatternType.Valid() {
		return nil, apperr.Validation("unknown pattern type %q", in.PatternType)
	}
	if in.PatternType == PatternRegex {
		if _, err := compileRulePattern(in.Pattern); err != nil {
			return nil, apperr.Validation("invalid regex %q: %v", in.Pattern, err)
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	rule := &CategoryRule{
		CategoryID:  in.CategoryID,
		Pattern:     in.Pattern,
		PatternType: in.PatternType,
		Priority:    in.Priority,
	}
	if err := s.store.Insert(ctx, rule); err != nil {
		return nil, err
	}

	s.reloadAfterWrite(ctx)
	return rule, nil
}

// DeleteRule removes a rule.
func (s *Service) DeleteRule(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.reloadAfterWrite(ctx)
	return nil
}

// ListRules returns the rules of a category.
func (s *Service) ListRules(ctx context.Context, categoryID int64) ([]CategoryRule, error) {
	return s.store.ListByCategory(ctx, categoryID)
}

// Invalidate reloads the snapshot. Callers that change rules outside this
// service, such as a category delete cascading to its rules, must call it.
func (s *Service) Invalidate(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.reloadLocked(ctx); err != nil {
		s.snap.Store(nil)
		return err
	}
	return nil
}

// Suggest ranks categories whose rule patterns resemble description.
func (s *Service) Suggest(ctx context.Context, description string, limit int) ([]Suggestion, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.fuzzy.Rank(description, DefaultSuggestThreshold, limit), nil
}

// RuleCount returns the number of rules in the active snapshot.
func (s *Service) RuleCount() int {
	if snap := s.snap.Load(); snap != nil {
		return snap.size()
	}
	return 0
}

func (s *Service) current(ctx context.Context) (*snapshot, error) {
	if snap := s.snap.Load(); snap != nil {
		return snap, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if snap := s.snap.Load(); snap != nil {
		return snap, nil
	}
	return s.reloadLocked(ctx)
}

func (s *Service) reloadLocked(ctx context.Context) (*snapshot, error) {
	rules, err := s.store.ListOrderedByPriority(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	snap := buildSnapshot(rules, s.logger)
	s.snap.Store(snap)
	s.metrics.SetRulesLoaded(snap.size())

	s.logger.Debug("category rules loaded", slog.Int("rules", snap.size()))
	return snap, nil
}

// reloadAfterWrite refreshes the snapshot after a committed write. If the
// reload fails the snapshot is dropped so the next lookup reloads instead
// of serving stale rules.
func (s *Service) reloadAfterWrite(ctx context.Context) {
	if _, err := s.reloadLocked(ctx); err != nil {
		s.snap.Store(nil)
		s.logger.Warn("rule reload failed, cache cleared", slog.Any("error", err))
	}
}

func (s *Service) requireCategory(ctx context.Context, id int64) error {
	if s.categories == nil {
		return nil
	}
	ok, err := s.categories.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("category", id)
	}
	return nil
}
