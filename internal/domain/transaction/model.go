// Package transaction stores imported bank transactions and the edits users
// make to them.
package transaction

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one statement row. Positive amounts are income, negative
// amounts are expenses. ImportHash is unique across the store.
type Transaction struct {
	ID                    int64            `json:"id"`
	Date                  time.Time        `json:"date"`
	Description           string           `json:"description"`
	Amount                decimal.Decimal  `json:"amount"`
	Balance               *decimal.Decimal `json:"balance,omitempty"`
	CategoryID            *int64           `json:"category_id,omitempty"`
	AccountName           string           `json:"account_name"`
	ImportHash            string           `json:"import_hash"`
	IsManuallyCategorized bool             `json:"is_manually_categorized"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// IsIncome reports whether the transaction brought money in.
func (t *Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

// Patch is a partial update. Nil fields are left untouched; ClearCategory
// removes the category even though CategoryID is nil.
type Patch struct {
	CategoryID    *int64  `json:"category_id,omitempty"`
	ClearCategory bool    `json:"clear_category,omitempty"`
	Description   *string `json:"description,omitempty"`
}

// Apply merges p into t and reports whether the category changed.
// A category change marks the transaction as manually categorized.
func (p Patch) Apply(t *Transaction) (categoryChanged bool) {
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}

	switch {
	case p.CategoryID != nil:
		categoryChanged = t.CategoryID == nil || *t.CategoryID != *p.CategoryID
		id := *p.CategoryID
		t.CategoryID = &id
	case p.ClearCategory:
		categoryChanged = t.CategoryID != nil
		t.CategoryID = nil
	}

	if categoryChanged {
		t.IsManuallyCategorized = true
	}
	return categoryChanged
}

// Filter narrows List queries. Zero values disable a criterion.
type Filter struct {
	Start      *time.Time
	End        *time.Time
	CategoryID *int64
	// Uncategorized selects transactions without a category and wins over CategoryID.
	Uncategorized bool
	Search        string
	Offset        int
	Limit         int
}

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Normalize clamps paging values.
func (f Filter) Normalize() Filter {
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}
