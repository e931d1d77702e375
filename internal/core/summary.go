package core

import "sort"

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   float64
	Count    int
}

// Summary is a compact overview of a set of expenses.
type Summary struct {
	Total      float64
	Count      int
	ByCategory []CategoryAmount
}

// CalculateTotal is the plain sum of the amounts. NaN propagates.
func CalculateTotal(expenses []Expense) float64 {
	var total float64
	for _, e := range expenses {
		total += e.Amount
	}
	return total
}

// GroupExpensesByCategory buckets expenses by category id, keeping input order within each bucket.
func GroupExpensesByCategory(expenses []Expense) map[string][]Expense {
	groups := make(map[string][]Expense)
	for _, e := range expenses {
		groups[e.Category.ID] = append(groups[e.Category.ID], e)
	}
	return groups
}

// Summarize totals the expenses and breaks them down per category,
// largest amount first.
func Summarize(expenses []Expense) Summary {
	s := Summary{Total: CalculateTotal(expenses), Count: len(expenses)}

	index := make(map[string]int)
	for _, e := range expenses {
		i, ok := index[e.Category.ID]
		if !ok {
			i = len(s.ByCategory)
			index[e.Category.ID] = i
			s.ByCategory = append(s.ByCategory, CategoryAmount{Category: e.Category})
		}
		s.ByCategory[i].Amount += e.Amount
		s.ByCategory[i].Count++
	}
	for i := range s.ByCategory {
		s.ByCategory[i].Amount = RoundAmount(s.ByCategory[i].Amount)
	}

	sort.SliceStable(s.ByCategory, func(i, j int) bool {
		return s.ByCategory[i].Amount > s.ByCategory[j].Amount
	})
	return s
}
