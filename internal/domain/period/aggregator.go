package period

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/paycycle-budget/internal/domain/category"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/transaction"
)

// UncategorizedID is the bucket for expenses without a category.
const UncategorizedID int64 = 0

// UncategorizedColor is the neutral slate used for the uncategorized bucket.
const UncategorizedColor = "#94a3b8"

type CategoryTotal struct {
	CategoryID   int64            `json:"category_id"`
	CategoryName string           `json:"category_name"`
	CategoryType category.Type    `json:"category_type"`
	Total        decimal.Decimal  `json:"total"`
	BudgetLimit  *decimal.Decimal `json:"budget_limit"`
	Color        *string          `json:"color"`
}

type Summary struct {
	StartDate        time.Time       `json:"start_date"`
	EndDate          time.Time       `json:"end_date"`
	Label            string          `json:"label"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	TotalFixed       decimal.Decimal `json:"total_fixed"`
	TotalVariable    decimal.Decimal `json:"total_variable"`
	Net              decimal.Decimal `json:"net"`
	Categories       []CategoryTotal `json:"categories"`
	TransactionCount int             `json:"transaction_count"`
}

// Aggregator totals transactions into a Summary.
type Aggregator struct {
	// UncategorizedName labels the bucket for expenses without a known category.
	UncategorizedName string
}

// Summarize uses the English uncategorized label.
func Summarize(txs []transaction.Transaction, start, end time.Time, categories map[int64]category.Category) Summary {
	return Aggregator{UncategorizedName: English.Uncategorized}.Summarize(txs, start, end, categories)
}

// Summarize totals the transactions dated within [start, end]. Positive
// amounts are income, negative amounts are expenses (reported as positive
// totals) and zero amounts only count toward TransactionCount. Expenses are
// grouped by category and split into fixed and variable by category type;
// an unknown or missing category counts as variable.
func (a Aggregator) Summarize(txs []transaction.Transaction, start, end time.Time, categories map[int64]category.Category) Summary {
	s := Summary{
		StartDate:     start,
		EndDate:       end,
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		TotalFixed:    decimal.Zero,
		TotalVariable: decimal.Zero,
		Categories:    []CategoryTotal{},
	}

	buckets := make(map[int64]int) // category id -> index in s.Categories

	for i := range txs {
		tx := &txs[i]
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}
		s.TransactionCount++

		switch {
		case tx.Amount.IsPositive():
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			continue
		case tx.Amount.IsZero():
			continue
		}

		expense := tx.Amount.Neg()
		s.TotalExpenses = s.TotalExpenses.Add(expense)

		id := UncategorizedID
		if tx.CategoryID != nil {
			id = *tx.CategoryID
		}
		cat, known := categories[id]

		if known && cat.Type == category.TypeFixed {
			s.TotalFixed = s.TotalFixed.Add(expense)
		} else {
			s.TotalVariable = s.TotalVariable.Add(expense)
		}

		idx, ok := buckets[id]
		if !ok {
			idx = len(s.Categories)
			buckets[id] = idx
			s.Categories = append(s.Categories, a.newBucket(id, cat, known))
		}
		s.Categories[idx].Total = s.Categories[idx].Total.Add(expense)
	}

	// stable: equal totals keep first-seen order
	slices.SortStableFunc(s.Categories, func(x, y CategoryTotal) int {
		return y.Total.Cmp(x.Total)
	})

	s.Net = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

func (a Aggregator) newBucket(id int64, cat category.Category, known bool) CategoryTotal {
	if known {
		return CategoryTotal{
			CategoryID:   id,
			CategoryName: cat.Name,
			CategoryType: cat.Type,
			Total:        decimal.Zero,
			BudgetLimit:  cat.BudgetLimit,
			Color:        cat.Color,
		}
	}
	color := UncategorizedColor
	return CategoryTotal{
		CategoryID:   id,
		CategoryName: a.UncategorizedName,
		CategoryType: category.TypeVariable,
		Total:        decimal.Zero,
		Color:        &color,
	}
}
