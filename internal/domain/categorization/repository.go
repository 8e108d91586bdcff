package categorization

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
	"github.com/FACorreiaa/paycycle-budget/pkg/db"
)

const ruleColumns = `id, category_id, pattern, pattern_type, priority, created_at`

// Repository handles database operations for category rules
type Repository struct {
	db db.DBTX
}

// NewRepository creates a new rule repository
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// ListOrderedByPriority returns every rule, highest priority first.
func (r *Repository) ListOrderedByPriority(ctx context.Context) ([]CategoryRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM category_rules ORDER BY priority DESC, id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return collectRules(rows)
}

// ListByCategory returns the rules of one category, highest priority first.
func (r *Repository) ListByCategory(ctx context.Context, categoryID int64) ([]CategoryRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM category_rules WHERE category_id = $1 ORDER BY priority DESC, id ASC`

	rows, err := r.db.Query(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules for category %d: %w", categoryID, err)
	}
	return collectRules(rows)
}

// FindByPatternAndCategory returns nil, nil when no such rule exists.
func (r *Repository) FindByPatternAndCategory(ctx context.Context, pattern string, categoryID int64) (*CategoryRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM category_rules WHERE pattern = $1 AND category_id = $2 ORDER BY id LIMIT 1`

	rule, err := scanRule(r.db.QueryRow(ctx, query, pattern, categoryID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find rule: %w", err)
	}
	return rule, nil
}

// Insert stores rule and fills in its id and creation time.
func (r *Repository) Insert(ctx context.Context, rule *CategoryRule) error {
	query := `
		INSERT INTO category_rules (category_id, pattern, pattern_type, priority)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, rule.CategoryID, rule.Pattern, string(rule.PatternType), rule.Priority).
		Scan(&rule.ID, &rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	return nil
}

// Delete removes a rule by id.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM category_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("rule", id)
	}
	return nil
}

func collectRules(rows pgx.Rows) ([]CategoryRule, error) {
	defer rows.Close()

	var rules []CategoryRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

func scanRule(row pgx.Row) (*CategoryRule, error) {
	var (
		rule        CategoryRule
		patternType string
	)
	if err := row.Scan(&rule.ID, &rule.CategoryID, &rule.Pattern, &patternType, &rule.Priority, &rule.CreatedAt); err != nil {
		return nil, err
	}
	rule.PatternType = PatternType(patternType)
	return &rule, nil
}
