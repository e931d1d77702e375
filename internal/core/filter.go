package core

import (
	"slices"
	"strings"
)

// Matches reports whether e satisfies every criterion set on f.
// A nil filter matches everything.
func (f *ExpenseFilter) Matches(e Expense) bool {
	if f == nil {
		return true
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, e.Category.ID) {
		return false
	}
	if f.DateRange != nil {
		if e.Date.Before(f.DateRange.Start) || e.Date.After(f.DateRange.End) {
			return false
		}
	}
	if f.MinAmount != nil && e.Amount < *f.MinAmount {
		return false
	}
	if f.MaxAmount != nil && e.Amount > *f.MaxAmount {
		return false
	}
	if f.SearchText != "" && !matchesSearch(e, strings.ToLower(f.SearchText)) {
		return false
	}
	if len(f.PaymentMethods) > 0 {
		if e.PaymentMethod == nil || !slices.Contains(f.PaymentMethods, e.PaymentMethod.ID) {
			return false
		}
	}
	if len(f.Tags) > 0 {
		found := slices.ContainsFunc(e.Tags, func(t Tag) bool {
			return slices.Contains(f.Tags, t.ID)
		})
		if !found {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the filter has no criteria.
func (f *ExpenseFilter) IsEmpty() bool {
	return f == nil || (len(f.Categories) == 0 && f.DateRange == nil &&
		f.MinAmount == nil && f.MaxAmount == nil && f.SearchText == "" &&
		len(f.PaymentMethods) == 0 && len(f.Tags) == 0)
}

func matchesSearch(e Expense, needle string) bool {
	if strings.Contains(strings.ToLower(e.Description), needle) ||
		strings.Contains(strings.ToLower(e.Vendor), needle) ||
		strings.Contains(strings.ToLower(e.Notes), needle) {
		return true
	}
	for _, t := range e.Tags {
		if strings.Contains(strings.ToLower(t.Name), needle) {
			return true
		}
	}
	return false
}

// FilterExpenses returns the expenses matching f in their original order.
// The result is never nil.
func FilterExpenses(expenses []Expense, f *ExpenseFilter) []Expense {
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}
