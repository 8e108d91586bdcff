package period

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/paycycle-budget/pkg/money"
)

const (
	periodsSheet    = "Periods"
	categoriesSheet = "Categories"
	amountFormat    = "#,##0.00"
)

var (
	periodHeaders   = []any{"Period", "Start", "End", "Income", "Expenses", "Fixed", "Variable", "Net", "Transactions"}
	categoryHeaders = []any{"Period", "Category", "Type", "Spent", "Budget", "Budget used %"}
)

// ExportXLSX writes a workbook with one row per period on the first sheet
// and one row per period and category on the second, newest period first.
func (s *Service) ExportXLSX(ctx context.Context, w io.Writer, limit int) error {
	summaries, err := s.List(ctx, limit)
	if err != nil {
		return err
	}

	f, err := buildWorkbook(summaries)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func buildWorkbook(summaries []Summary) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", periodsSheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(categoriesSheet); err != nil {
		f.Close()
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	amount, err := f.NewStyle(&excelize.Style{CustomNumFmt: ptrTo(amountFormat)})
	if err != nil {
		f.Close()
		return nil, err
	}

	periodRows := make([][]any, 0, len(summaries))
	var categoryRows [][]any
	for _, s := range summaries {
		periodRows = append(periodRows, []any{
			s.Label,
			s.StartDate.Format("2006-01-02"),
			s.EndDate.Format("2006-01-02"),
			s.TotalIncome.InexactFloat64(),
			s.TotalExpenses.InexactFloat64(),
			s.TotalFixed.InexactFloat64(),
			s.TotalVariable.InexactFloat64(),
			s.Net.InexactFloat64(),
			s.TransactionCount,
		})
		for _, c := range s.Categories {
			row := []any{s.Label, c.CategoryName, string(c.CategoryType), c.Total.InexactFloat64(), nil, nil}
			if c.BudgetLimit != nil {
				spent := money.SEKFromDecimal(c.Total)
				row[4] = c.BudgetLimit.InexactFloat64()
				row[5] = spent.PercentageOf(money.SEKFromDecimal(*c.BudgetLimit)).InexactFloat64()
			}
			categoryRows = append(categoryRows, row)
		}
	}

	if err := writeSheet(f, periodsSheet, periodHeaders, periodRows, bold, amount, 4, 8); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSheet(f, categoriesSheet, categoryHeaders, categoryRows, bold, amount, 4, 5); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// writeSheet writes a header row and data rows, formatting columns
// firstAmount..lastAmount (1-based) as amounts.
func writeSheet(f *excelize.File, sheet string, headers []any, rows [][]any, headerStyle, amountStyle, firstAmount, lastAmount int) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}

	if len(rows) > 0 {
		from, _ := excelize.CoordinatesToCellName(firstAmount, 2)
		to, _ := excelize.CoordinatesToCellName(lastAmount, len(rows)+1)
		if err := f.SetCellStyle(sheet, from, to, amountStyle); err != nil {
			return err
		}
	}

	end, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetColWidth(sheet, "A", end, 16)
}

func ptrTo[T any](v T) *T { return &v }
