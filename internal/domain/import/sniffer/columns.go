package sniffer

import (
	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
)

// ColumnAliases maps each logical column to the header names that may carry
// it. Order matters: the first alias present in the file wins.
type ColumnAliases struct {
	Date        []string
	Description []string
	Amount      []string
	Balance     []string
}

// DefaultAliases covers SEB and other Swedish exports plus English headers.
var DefaultAliases = ColumnAliases{
	Date:        []string{"bokföringsdatum", "datum", "date", "bokforingsdatum"},
	Description: []string{"text/beteckning", "text", "beskrivning", "description", "beteckning"},
	Amount:      []string{"belopp", "amount"},
	Balance:     []string{"saldo", "balance"},
}

// Columns holds the resolved header name per logical column. Balance is
// empty when the file has no balance column.
type Columns struct {
	Date        string
	Description string
	Amount      string
	Balance     string
}

// HasBalance reports whether a balance column was found.
func (c Columns) HasBalance() bool {
	return c.Balance != ""
}

// Resolve picks the first alias present in headers for every column.
// Headers must already be normalized. Missing date, description or amount
// columns produce a FormatError.
func (a ColumnAliases) Resolve(headers []string) (Columns, error) {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[h] = struct{}{}
	}

	pick := func(aliases []string) string {
		for _, alias := range aliases {
			if _, ok := present[NormalizeHeader(alias)]; ok {
				return NormalizeHeader(alias)
			}
		}
		return ""
	}

	cols := Columns{
		Date:        pick(a.Date),
		Description: pick(a.Description),
		Amount:      pick(a.Amount),
		Balance:     pick(a.Balance),
	}

	switch {
	case cols.Date == "":
		return Columns{}, apperr.NewFormatError("no date column among headers %v", headers)
	case cols.Description == "":
		return Columns{}, apperr.NewFormatError("no description column among headers %v", headers)
	case cols.Amount == "":
		return Columns{}, apperr.NewFormatError("no amount column among headers %v", headers)
	}

	return cols, nil
}
