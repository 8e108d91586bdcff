package category

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
	"github.com/FACorreiaa/paycycle-budget/pkg/db"
)

const categoryColumns = `id, name, type, budget_limit, color, created_at`

// Repository handles database operations for categories
type Repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Get returns apperr.ErrNotFound when the category does not exist.
func (r *Repository) Get(ctx context.Context, id int64) (*Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("category", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// FindByName returns nil, nil when no category has that name.
func (r *Repository) FindByName(ctx context.Context, name string) (*Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return c, nil
}

func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check category: %w", err)
	}
	return exists, nil
}

func (r *Repository) Insert(ctx context.Context, c *Category) error {
	query := `
		INSERT INTO categories (name, type, budget_limit, color)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, c.Name, string(c.Type), c.BudgetLimit, c.Color).Scan(&c.ID, &c.CreatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Duplicate("category %q", c.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, c *Category) error {
	query := `UPDATE categories SET name = $2, type = $3, budget_limit = $4, color = $5 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, c.ID, c.Name, string(c.Type), c.BudgetLimit, c.Color)
	if db.IsUniqueViolation(err) {
		return apperr.Duplicate("category %q", c.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("category", c.ID)
	}
	return nil
}

// Delete removes a category. Its rules go with it and its transactions
// become uncategorized, both through foreign keys.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("category", id)
	}
	return nil
}

func scanCategory(row pgx.Row) (*Category, error) {
	var (
		c   Category
		typ string
	)
	if err := row.Scan(&c.ID, &c.Name, &typ, &c.BudgetLimit, &c.Color, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Type = Type(typ)
	return &c, nil
}
