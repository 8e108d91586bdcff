package transaction

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/categorization"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/category"
)

// Store persists transactions.
type Store interface {
	Get(ctx context.Context, id int64) (*Transaction, error)
	List(ctx context.Context, f Filter) ([]Transaction, error)
	Update(ctx context.Context, t *Transaction) error
	Delete(ctx context.Context, id int64) error
}

// Learner turns a manual categorization into a rule.
type Learner interface {
	Learn(ctx context.Context, description string, categoryID int64, priority int) (*categorization.CategoryRule, bool, error)
}

// Categories resolves category ids.
type Categories interface {
	ByID(ctx context.Context) (map[int64]category.Category, error)
}

// UpdateResult reports an edit and the rule it produced, if any.
type UpdateResult struct {
	Transaction *Transaction                 `json:"transaction"`
	Rule        *categorization.CategoryRule `json:"learned_rule,omitempty"`
}

// BulkResult reports a bulk categorization.
type BulkResult struct {
	Updated      int     `json:"updated"`
	NotFound     []int64 `json:"not_found,omitempty"`
	RulesLearned int     `json:"rules_learned"`
}

type Service struct {
	store      Store
	learner    Learner
	categories Categories
	logger     *slog.Logger
}

func NewService(store Store, learner Learner, categories Categories, logger *slog.Logger) *Service {
	return &Service{store: store, learner: learner, categories: categories, logger: logger}
}

func (s *Service) Get(ctx context.Context, id int64) (*Transaction, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Transaction, error) {
	return s.store.List(ctx, f.Normalize())
}

// Update applies p. When the category changes and learn is set, a rule is
// learned from the description so future imports get the same category.
func (s *Service) Update(ctx context.Context, id int64, p Patch, learn bool) (*UpdateResult, error) {
	if p.CategoryID != nil {
		if err := s.requireCategory(ctx, *p.CategoryID); err != nil {
			return nil, err
		}
	}

	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := p.Apply(t)
	if err := s.store.Update(ctx, t); err != nil {
		return nil, err
	}

	res := &UpdateResult{Transaction: t}
	if learn && changed && t.CategoryID != nil {
		res.Rule = s.learn(ctx, t)
	}
	return res, nil
}

// BulkCategorize sets categoryID on every listed transaction. Missing ids
// are reported, not treated as errors.
func (s *Service) BulkCategorize(ctx context.Context, ids []int64, categoryID int64, learn bool) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation("no transaction ids given")
	}
	if err := s.requireCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	res := &BulkResult{}
	for _, id := range ids {
		t, err := s.store.Get(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			res.NotFound = append(res.NotFound, id)
			continue
		}
		if err != nil {
			return res, err
		}

		if !(Patch{CategoryID: &categoryID}).Apply(t) {
			continue
		}
		if err := s.store.Update(ctx, t); err != nil {
			return res, err
		}
		res.Updated++

		if learn {
			if rule := s.learn(ctx, t); rule != nil {
				res.RulesLearned++
			}
		}
	}

	s.logger.Info("bulk categorized transactions",
		slog.Int64("category_id", categoryID),
		slog.Int("updated", res.Updated),
		slog.Int("not_found", len(res.NotFound)),
	)
	return res, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// learn is best effort: the edit is already stored, so a failure is logged
// and the edit still succeeds. Returns the rule only when it was created.
func (s *Service) learn(ctx context.Context, t *Transaction) *categorization.CategoryRule {
	if s.learner == nil {
		return nil
	}
	rule, created, err := s.learner.Learn(ctx, t.Description, *t.CategoryID, 0)
	if err != nil {
		s.logger.Warn("failed to learn rule from categorization",
			slog.Int64("transaction_id", t.ID),
			slog.Any("error", err),
		)
		return nil
	}
	if !created {
		return nil
	}
	return rule
}

func (s *Service) requireCategory(ctx context.Context, id int64) error {
	cats, err := s.categories.ByID(ctx)
	if err != nil {
		return err
	}
	if _, ok := cats[id]; !ok {
		return apperr.NotFound("category", id)
	}
	return nil
}

// exportRow is one line of the CSV export.
type exportRow struct {
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
	Balance     string `csv:"balance"`
	Category    string `csv:"category"`
	Account     string `csv:"account"`
}

// ExportCSV writes every transaction matching f as semicolon separated
// values, the layout Swedish spreadsheet programs open directly.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, f Filter) error {
	cats, err := s.categories.ByID(ctx)
	if err != nil {
		return err
	}

	var rows []*exportRow
	f.Offset = 0
	f.Limit = MaxLimit
	for {
		page, err := s.store.List(ctx, f)
		if err != nil {
			return err
		}
		for i := range page {
			rows = append(rows, toExportRow(&page[i], cats))
		}
		if len(page) < f.Limit {
			break
		}
		f.Offset += f.Limit
	}

	writer := csv.NewWriter(w)
	writer.Comma = ';'
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(writer)); err != nil {
		return fmt.Errorf("failed to write csv export: %w", err)
	}
	return nil
}

func toExportRow(t *Transaction, cats map[int64]category.Category) *exportRow {
	row := &exportRow{
		Date:        t.Date.Format(time.DateOnly),
		Description: t.Description,
		Amount:      t.Amount.StringFixed(2),
		Account:     t.AccountName,
	}
	if t.Balance != nil {
		row.Balance = t.Balance.StringFixed(2)
	}
	if t.CategoryID != nil {
		if c, ok := cats[*t.CategoryID]; ok {
			row.Category = c.Name
		}
	}
	return row
}
