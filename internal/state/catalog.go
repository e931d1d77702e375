package state

import (
	"context"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// LoadCategories replaces the category cache. On failure the current list,
// the built-in defaults at startup, is kept and no error is recorded.
func (s *Store) LoadCategories(ctx context.Context) {
	s.loadCategories(ctx)
}

func (s *Store) loadCategories(ctx context.Context) {
	list, err := s.engine.GetCategories(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load categories, keeping current list", log.FieldError, err)
		s.Update(func(st *State) {
			if len(st.Categories) == 0 {
				st.Categories = core.DefaultCategories()
			}
		})
		return
	}
	s.Update(func(st *State) { st.Categories = list })
}

// LoadCurrencies behaves like LoadCategories for currencies.
func (s *Store) LoadCurrencies(ctx context.Context) {
	s.loadCurrencies(ctx)
}

func (s *Store) loadCurrencies(ctx context.Context) {
	list, err := s.engine.GetCurrencies(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load currencies, keeping current list", log.FieldError, err)
		s.Update(func(st *State) {
			if len(st.Currencies) == 0 {
				st.Currencies = core.DefaultCurrencies()
			}
		})
		return
	}
	s.Update(func(st *State) { st.Currencies = list })
}

// CreateCategory stores a category and reloads the list. Failures are
// recorded and returned, as for every category mutation.
func (s *Store) CreateCategory(ctx context.Context, in core.CategoryInput) (string, error) {
	s.begin()
	id, err := s.engine.CreateCategory(ctx, in)
	if err != nil {
		s.fail(ctx, "create_category", err)
		return "", err
	}
	s.loadCategories(ctx)
	s.succeed(nil)
	return id, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id string, u core.CategoryUpdate) error {
	return s.categoryAction(ctx, "update_category", func() error {
		return s.engine.UpdateCategory(ctx, id, u)
	})
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.categoryAction(ctx, "delete_category", func() error {
		return s.engine.DeleteCategory(ctx, id)
	})
}

// MoveCategoryToParent re-parents a category; an empty parentID makes it a root.
func (s *Store) MoveCategoryToParent(ctx context.Context, id, parentID string) error {
	return s.categoryAction(ctx, "move_category", func() error {
		return s.engine.MoveCategoryToParent(ctx, id, parentID)
	})
}

func (s *Store) categoryAction(ctx context.Context, op string, fn func() error) error {
	s.begin()
	if err := fn(); err != nil {
		s.fail(ctx, op, err)
		return err
	}
	s.loadCategories(ctx)
	s.succeed(nil)
	return nil
}

// GetCategoryTree returns the category forest from storage, or built from
// the cached list when storage is unavailable.
func (s *Store) GetCategoryTree(ctx context.Context) []*core.CategoryNode {
	tree, err := s.engine.GetCategoryTree(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load category tree, using cached categories", log.FieldError, err)
		return core.BuildCategoryTree(s.GetState().Categories)
	}
	return tree
}

// LoadPaymentMethods replaces the payment method cache. Failures are recorded.
func (s *Store) LoadPaymentMethods(ctx context.Context) {
	s.loadPaymentMethods(ctx)
}

func (s *Store) loadPaymentMethods(ctx context.Context) {
	list, err := s.engine.GetPaymentMethods(ctx)
	if err != nil {
		s.recordError(ctx, "load_payment_methods", err)
		return
	}
	s.Update(func(st *State) { st.PaymentMethods = list })
}

// CreatePaymentMethod stores a payment method and reloads the list.
// It returns the new id, or "" with the failure recorded in state.
func (s *Store) CreatePaymentMethod(ctx context.Context, in core.PaymentMethodInput) string {
	s.begin()
	id, err := s.engine.CreatePaymentMethod(ctx, in)
	if err != nil {
		s.fail(ctx, "create_payment_method", err)
		return ""
	}
	s.loadPaymentMethods(ctx)
	s.succeed(nil)
	return id
}

func (s *Store) UpdatePaymentMethod(ctx context.Context, id string, u core.PaymentMethodUpdate) {
	s.mutate(ctx, "update_payment_method", func() error {
		return s.engine.UpdatePaymentMethod(ctx, id, u)
	}, s.loadPaymentMethods, log.FieldPaymentID, id)
}

// DeletePaymentMethod deactivates the method; it disappears from the list.
func (s *Store) DeletePaymentMethod(ctx context.Context, id string) {
	s.mutate(ctx, "delete_payment_method", func() error {
		return s.engine.DeletePaymentMethod(ctx, id)
	}, s.loadPaymentMethods, log.FieldPaymentID, id)
}

// LoadTags replaces the tag cache. Failures are recorded.
func (s *Store) LoadTags(ctx context.Context) {
	s.loadTags(ctx)
}

func (s *Store) loadTags(ctx context.Context) {
	list, err := s.engine.GetTags(ctx)
	if err != nil {
		s.recordError(ctx, "load_tags", err)
		return
	}
	s.Update(func(st *State) { st.Tags = list })
}

// CreateTag stores a tag and reloads the list. It returns the new id, or ""
// with the failure recorded in state.
func (s *Store) CreateTag(ctx context.Context, in core.TagInput) string {
	s.begin()
	id, err := s.engine.CreateTag(ctx, in)
	if err != nil {
		s.fail(ctx, "create_tag", err)
		return ""
	}
	s.loadTags(ctx)
	s.succeed(nil)
	return id
}

func (s *Store) UpdateTag(ctx context.Context, id string, u core.TagUpdate) {
	s.mutate(ctx, "update_tag", func() error {
		return s.engine.UpdateTag(ctx, id, u)
	}, s.loadTags, log.FieldTagID, id)
}

func (s *Store) DeleteTag(ctx context.Context, id string) {
	s.mutate(ctx, "delete_tag", func() error {
		return s.engine.DeleteTag(ctx, id)
	}, s.loadTags, log.FieldTagID, id)
}

// GetOrCreateTag finds a tag by case-insensitive name, creating it if needed.
func (s *Store) GetOrCreateTag(ctx context.Context, name string) (core.Tag, error) {
	s.begin()
	tag, err := s.engine.GetOrCreateTag(ctx, name)
	if err != nil {
		s.fail(ctx, "get_or_create_tag", err)
		return core.Tag{}, err
	}
	s.loadTags(ctx)
	s.succeed(nil)
	return tag, nil
}

// SearchTags passes the query through to storage without touching state.
func (s *Store) SearchTags(ctx context.Context, query string) ([]core.Tag, error) {
	return s.engine.SearchTags(ctx, query)
}

// mutate runs a write whose failure is only recorded in state, then reloads.
func (s *Store) mutate(ctx context.Context, op string, fn func() error, reload func(context.Context), attrs ...any) {
	s.begin()
	if err := fn(); err != nil {
		s.fail(ctx, op, err, attrs...)
		return
	}
	reload(ctx)
	s.succeed(nil)
}
