package period

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/category"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/transaction"
)

const (
	DefaultListLimit = 12
	MaxListLimit     = 60
)

var tracer = otel.Tracer("github.com/FACorreiaa/paycycle-budget/internal/domain/period")

// TransactionSource reads transactions dated within an inclusive range.
type TransactionSource interface {
	ListByDateRange(ctx context.Context, start, end time.Time) ([]transaction.Transaction, error)
}

// CategorySource resolves category ids for the summary.
type CategorySource interface {
	ByID(ctx context.Context) (map[int64]category.Category, error)
}

// CacheStore keeps a copy of computed period totals.
type CacheStore interface {
	Upsert(ctx context.Context, s Summary) error
}

// Service computes period summaries from the stored transactions.
type Service struct {
	calc         *Calculator
	aggregator   Aggregator
	transactions TransactionSource
	categories   CategorySource
	cache        CacheStore
	logger       *slog.Logger
}

func NewService(calc *Calculator, transactions TransactionSource, categories CategorySource, logger *slog.Logger) *Service {
	return &Service{
		calc:         calc,
		aggregator:   Aggregator{UncategorizedName: calc.Locale().Uncategorized},
		transactions: transactions,
		categories:   categories,
		logger:       logger,
	}
}

// WithCache enables RefreshCache.
func (s *Service) WithCache(cache CacheStore) *Service {
	s.cache = cache
	return s
}

func (s *Service) Calculator() *Calculator { return s.calc }

// CurrentSummary summarizes the period containing today.
func (s *Service) CurrentSummary(ctx context.Context) (*Summary, error) {
	return s.ForPeriod(ctx, s.calc.Current())
}

// ForPeriod summarizes p.
func (s *Service) ForPeriod(ctx context.Context, p Period) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "period.Summary")
	defer span.End()
	span.SetAttributes(attribute.String("period.label", p.Label))

	txs, err := s.transactions.ListByDateRange(ctx, p.Start, p.End)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list transactions")
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	cats, err := s.categories.ByID(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list categories")
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	summary := s.aggregator.Summarize(txs, p.Start, p.End, cats)
	summary.Label = p.Label
	span.SetAttributes(attribute.Int("period.transactions", summary.TransactionCount))
	return &summary, nil
}

// Summary summarizes an arbitrary range of calendar dates, both inclusive.
func (s *Service) Summary(ctx context.Context, start, end time.Time) (*Summary, error) {
	start, end = DayBounds(start, end)
	if end.Before(start) {
		return nil, apperr.Validation("start date %s is after end date %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return s.ForPeriod(ctx, Period{Start: start, End: end, Label: s.calc.Label(start, end)})
}

// List returns summaries for the current period and the limit-1 before it,
// newest first. All periods are computed from one range query.
func (s *Service) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		return nil, apperr.Validation("limit must be at most %d", MaxListLimit)
	}

	ctx, span := tracer.Start(ctx, "period.List")
	defer span.End()
	span.SetAttributes(attribute.Int("period.limit", limit))

	periods := make([]Period, limit)
	periods[0] = s.calc.Current()
	for i := 1; i < limit; i++ {
		periods[i] = s.calc.Previous(periods[i-1])
	}

	oldest, newest := periods[limit-1], periods[0]
	txs, err := s.transactions.ListByDateRange(ctx, oldest.Start, newest.End)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	cats, err := s.categories.ByID(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	out := make([]Summary, len(periods))
	for i, p := range periods {
		out[i] = s.aggregator.Summarize(txs, p.Start, p.End, cats)
		out[i].Label = p.Label
	}
	return out, nil
}

// RefreshCache recomputes the current and previous period and stores their
// totals. Without a cache it does nothing.
func (s *Service) RefreshCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	summaries, err := s.List(ctx, 2)
	if err != nil {
		return err
	}
	for _, summary := range summaries {
		if err := s.cache.Upsert(ctx, summary); err != nil {
			return fmt.Errorf("failed to cache period %s: %w", summary.Label, err)
		}
	}

	s.logger.Info("period cache refreshed",
		slog.String("current", summaries[0].Label),
		slog.Int("transactions", summaries[0].TransactionCount),
	)
	return nil
}
