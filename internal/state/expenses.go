package state

import (
	"context"
	"slices"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// CreateExpense stores a new expense and appends it to the cache.
// Failures are recorded and also returned.
func (s *Store) CreateExpense(ctx context.Context, in core.ExpenseInput) (string, error) {
	s.begin()
	id, err := s.engine.CreateExpense(ctx, in)
	if err != nil {
		s.fail(ctx, "create_expense", err)
		return "", err
	}
	s.vendorCache.Clear()

	now := time.Now().UTC()
	e := core.Expense{
		ID:            id,
		Amount:        in.Amount,
		Description:   in.Description,
		Vendor:        in.Vendor,
		Category:      in.Category,
		Date:          in.Date,
		Currency:      in.Currency,
		PaymentMethod: in.PaymentMethod,
		Tags:          slices.Clone(in.Tags),
		Location:      in.Location,
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if e.Tags == nil {
		e.Tags = []core.Tag{}
	}
	s.succeed(func(st *State) {
		st.Expenses = append(st.Expenses, e)
	})

	return id, nil
}

// UpdateExpense applies a partial update and refreshes the cached copy.
// Failures are recorded in state only.
func (s *Store) UpdateExpense(ctx context.Context, id string, u core.ExpenseUpdate) {
	s.begin()
	if err := s.engine.UpdateExpense(ctx, id, u); err != nil {
		s.fail(ctx, "update_expense", err)
		return
	}
	if u.Vendor != nil || u.Amount != nil {
		s.vendorCache.Clear()
	}

	fresh, err := s.engine.GetExpense(ctx, id)
	if err != nil {
		s.logger.DebugContext(ctx, "Refetch after update failed, patching cache", log.FieldExpenseID, id, log.FieldError, err)
	}
	s.succeed(func(st *State) {
		for i := range st.Expenses {
			if st.Expenses[i].ID != id {
				continue
			}
			if err == nil {
				st.Expenses[i] = fresh
			} else {
				patchExpense(&st.Expenses[i], u, st)
			}
			return
		}
	})
}

// DeleteExpense removes the expense from storage and the cache.
func (s *Store) DeleteExpense(ctx context.Context, id string) {
	s.begin()
	if err := s.engine.DeleteExpense(ctx, id); err != nil {
		s.fail(ctx, "delete_expense", err)
		return
	}
	s.vendorCache.Clear()
	s.succeed(func(st *State) {
		st.Expenses = slices.DeleteFunc(st.Expenses, func(e core.Expense) bool { return e.ID == id })
	})
}

// LoadExpenses replaces the expense cache with the rows matching filter.
// The health check only produces a warning; the query runs regardless.
func (s *Store) LoadExpenses(ctx context.Context, filter *core.ExpenseFilter) {
	s.begin()
	s.loadExpenses(ctx, filter, 0)
	s.Update(func(st *State) { st.IsLoading = false })
}

// loadExpenses applies its result only if seq is zero or still the latest
// filter generation.
func (s *Store) loadExpenses(ctx context.Context, filter *core.ExpenseFilter, seq uint64) {
	if !s.engine.CheckDatabaseHealth(ctx) {
		s.logger.WarnContext(ctx, "Database reported unhealthy, querying anyway")
	}
	list, err := s.engine.GetExpenses(ctx, filter, 0, 0)
	if seq != 0 && s.filterSeq.Load() != seq {
		return
	}
	if err != nil {
		s.recordError(ctx, "load_expenses", err)
		return
	}
	s.Update(func(st *State) { st.Expenses = list })
}

// SetFilter stores the filter and reloads expenses in the background.
// Call Wait before relying on the reloaded list.
func (s *Store) SetFilter(ctx context.Context, filter *core.ExpenseFilter) {
	f := cloneFilter(filter)
	seq := s.filterSeq.Add(1)
	s.Update(func(st *State) { st.Filter = cloneFilter(f) })

	bg := context.WithoutCancel(ctx)
	s.reloads.Add(1)
	go func() {
		defer s.reloads.Done()
		s.begin()
		s.loadExpenses(bg, f, seq)
		s.Update(func(st *State) { st.IsLoading = false })
	}()
}

// SetSearchText updates the search text of the current filter once typing
// pauses for the configured debounce interval.
func (s *Store) SetSearchText(ctx context.Context, text string) {
	s.debouncer.Do(func() {
		f := cloneFilter(s.GetState().Filter)
		if f == nil {
			f = &core.ExpenseFilter{}
		}
		f.SearchText = text
		if f.IsEmpty() {
			f = nil
		}
		s.SetFilter(ctx, f)
	})
}

// Summary totals the cached expenses that match the current filter.
func (s *Store) Summary() core.Summary {
	st := s.GetState()
	return core.Summarize(core.FilterExpenses(st.Expenses, st.Filter))
}

// patchExpense applies u in place, resolving ids against the cached lists.
func patchExpense(e *core.Expense, u core.ExpenseUpdate, st *State) {
	if u.Amount != nil {
		e.Amount = *u.Amount
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Vendor != nil {
		e.Vendor = *u.Vendor
	}
	if u.CategoryID != nil {
		e.Category = core.Category{ID: *u.CategoryID}
		if i := slices.IndexFunc(st.Categories, func(c core.Category) bool { return c.ID == *u.CategoryID }); i >= 0 {
			e.Category = st.Categories[i]
		}
	}
	if u.Date != nil {
		e.Date = *u.Date
	}
	if u.CurrencyCode != nil {
		e.Currency = core.Currency{Code: *u.CurrencyCode}
		if i := slices.IndexFunc(st.Currencies, func(c core.Currency) bool { return c.Code == *u.CurrencyCode }); i >= 0 {
			e.Currency = st.Currencies[i]
		}
	}
	if u.PaymentMethodID != nil {
		if *u.PaymentMethodID == "" {
			e.PaymentMethod = nil
		} else {
			pm := core.PaymentMethod{ID: *u.PaymentMethodID}
			if i := slices.IndexFunc(st.PaymentMethods, func(p core.PaymentMethod) bool { return p.ID == pm.ID }); i >= 0 {
				pm = st.PaymentMethods[i]
			}
			e.PaymentMethod = &pm
		}
	}
	if u.TagIDs != nil {
		tags := make([]core.Tag, 0, len(*u.TagIDs))
		for _, tagID := range *u.TagIDs {
			tag := core.Tag{ID: tagID}
			if i := slices.IndexFunc(st.Tags, func(t core.Tag) bool { return t.ID == tagID }); i >= 0 {
				tag = st.Tags[i]
			}
			tags = append(tags, tag)
		}
		e.Tags = tags
	}
	if u.Location != nil {
		e.Location = *u.Location
	}
	if u.Notes != nil {
		e.Notes = *u.Notes
	}
	e.UpdatedAt = time.Now().UTC()
}
