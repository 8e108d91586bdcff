// Package category manages the budget categories transactions are sorted into.
package category

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
)

// Type classifies a category for the fixed/variable expense split.
type Type string

const (
	TypeIncome   Type = "income"
	TypeFixed    Type = "fixed"
	TypeVariable Type = "variable"
)

func (t Type) Valid() bool {
	switch t {
	case TypeIncome, TypeFixed, TypeVariable:
		return true
	}
	return false
}

type Category struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Type        Type             `json:"type"`
	BudgetLimit *decimal.Decimal `json:"budget_limit,omitempty"`
	Color       *string          `json:"color,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Input is the payload for creating a category.
type Input struct {
	Name        string           `json:"name"`
	Type        Type             `json:"type"`
	BudgetLimit *decimal.Decimal `json:"budget_limit,omitempty"`
	Color       *string          `json:"color,omitempty"`
}

func (in *Input) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperr.Validation("name is required")
	}
	if in.Type == "" {
		in.Type = TypeVariable
	}
	if !in.Type.Valid() {
		return apperr.Validation("unknown category type %q", in.Type)
	}
	if in.BudgetLimit != nil && in.BudgetLimit.IsNegative() {
		return apperr.Validation("budget limit must not be negative")
	}
	return nil
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Name        *string          `json:"name,omitempty"`
	Type        *Type            `json:"type,omitempty"`
	BudgetLimit *decimal.Decimal `json:"budget_limit,omitempty"`
	Color       *string          `json:"color,omitempty"`
}

// Apply validates p and merges it into c.
func (p Patch) Apply(c *Category) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return apperr.Validation("name must not be empty")
		}
		c.Name = name
	}
	if p.Type != nil {
		if !p.Type.Valid() {
			return apperr.Validation("unknown category type %q", *p.Type)
		}
		c.Type = *p.Type
	}
	if p.BudgetLimit != nil {
		if p.BudgetLimit.IsNegative() {
			return apperr.Validation("budget limit must not be negative")
		}
		limit := *p.BudgetLimit
		c.BudgetLimit = &limit
	}
	if p.Color != nil {
		color := *p.Color
		c.Color = &color
	}
	return nil
}
