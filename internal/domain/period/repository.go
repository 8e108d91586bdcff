package period

import (
	"context"
	"fmt"

	"github.com/FACorreiaa/paycycle-budget/pkg/db"
)

// Repository stores computed period totals in the periods table. The rows
// are a cache: summaries are always recomputed from transactions.
type Repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// Upsert writes the totals of s keyed by its start date.
func (r *Repository) Upsert(ctx context.Context, s Summary) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO periods (start_date, end_date, label, total_income, total_expenses,
			total_fixed, total_variable, transaction_count, refreshed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (start_date) DO UPDATE SET
			end_date = EXCLUDED.end_date,
			label = EXCLUDED.label,
			total_income = EXCLUDED.total_income,
			total_expenses = EXCLUDED.total_expenses,
			total_fixed = EXCLUDED.total_fixed,
			total_variable = EXCLUDED.total_variable,
			transaction_count = EXCLUDED.transaction_count,
			refreshed_at = now()`,
		s.StartDate, s.EndDate, s.Label, s.TotalIncome, s.TotalExpenses,
		s.TotalFixed, s.TotalVariable, s.TransactionCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert period: %w", err)
	}
	return nil
}
