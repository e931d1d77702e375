package core

import (
	"regexp"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	if n := len(DefaultCurrencies()); n != 9 {
		t.Fatalf("expected 9 default currencies, got %d", n)
	}
	cats := DefaultCategories()
	if len(cats) != 16 {
		t.Fatalf("expected 16 default categories, got %d", len(cats))
	}
	seen := map[string]bool{}
	for _, c := range cats {
		if c.ParentID != "" {
			t.Fatalf("default category %s should be a root", c.ID)
		}
		if seen[c.ID] {
			t.Fatalf("duplicate category id %s", c.ID)
		}
		seen[c.ID] = true
	}
	for _, tpl := range DefaultPaymentMethodTemplates() {
		if !tpl.Type.Valid() {
			t.Fatalf("template %s has invalid type", tpl.Name)
		}
	}

	p := DefaultUserPreferences()
	if p.DefaultCurrency.Code != "USD" || p.Theme != ThemeSystem || p.Language != "en" ||
		p.DateFormat != "MMM dd, yyyy" || p.FirstDayOfWeek != 0 {
		t.Fatalf("unexpected default preferences: %+v", p)
	}
}

func TestUserPreferencesUpdateApply(t *testing.T) {
	base := DefaultUserPreferences()
	got := UserPreferencesUpdate{Theme: Ptr(ThemeDark), FirstDayOfWeek: Ptr(1)}.Apply(base)
	if got.Theme != ThemeDark || got.FirstDayOfWeek != 1 {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.Language != base.Language || got.DefaultCurrency != base.DefaultCurrency {
		t.Fatalf("untouched fields changed: %+v", got)
	}
}

func TestExpenseUpdateIsEmpty(t *testing.T) {
	if !(ExpenseUpdate{}).IsEmpty() {
		t.Fatalf("zero update should be empty")
	}
	d := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if (ExpenseUpdate{Date: &d}).IsEmpty() {
		t.Fatalf("update with date should not be empty")
	}
}

var idPattern = regexp.MustCompile(`^[a-z0-9]+$`)

func TestGenerateID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := GenerateID()
		if len(id) != 25 || !idPattern.MatchString(id) {
			t.Fatalf("unexpected id %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
