package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

var errTest = errors.New("Create failed")

func TestNewStore_InitialState(t *testing.T) {
	s, _ := newTestStore(t)
	st := s.GetState()

	assert.Equal(t, core.DefaultCategories(), st.Categories)
	assert.Equal(t, core.DefaultCurrencies(), st.Currencies)
	assert.Empty(t, st.Expenses)
	assert.Nil(t, st.UserPreferences)
	assert.Nil(t, st.Filter)
	assert.False(t, st.IsLoading)
	assert.False(t, st.IsAppInitialized)
	assert.Empty(t, st.Error)
}

func TestNewStore_VendorCacheSize(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		cached bool
	}{
		{"unset uses default", 0, true},
		{"explicit size", 5, true},
		{"negative disables", -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(nil, Options{VendorCacheSize: tt.size})
			t.Cleanup(s.Close)

			c := s.VendorCache()
			c.Set("star", []core.Vendor{{Name: "Starbucks", UsageCount: 1}})
			_, ok := c.Get("star")
			assert.Equal(t, tt.cached, ok)
		})
	}
}

func TestInitializeApp_LoadsEverything(t *testing.T) {
	ctx := context.Background()
	s, fe := newTestStore(t)

	s.InitializeApp(ctx)
	st := s.GetState()

	assert.True(t, st.IsAppInitialized)
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Error)
	assert.Equal(t, core.DefaultCategories(), st.Categories)
	assert.Len(t, st.Currencies, 9)
	assert.Empty(t, st.Expenses)
	assert.Empty(t, st.PaymentMethods)

	require.NotNil(t, st.UserPreferences)
	assert.Equal(t, core.DefaultUserPreferences(), *st.UserPreferences)

	stored, err := fe.Engine.GetUserPreferences(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored, "defaults are persisted when no row exists")
	assert.Equal(t, core.ThemeSystem, stored.Theme)

	assert.Equal(t, 1, fe.count("Initialize"))
	assert.Equal(t, 0, fe.count("ResetDatabase"))
	assert.Equal(t, 1, fe.count("GetExpenses"))
	assert.Equal(t, 50, fe.lastVendorLimit())
}

func TestInitializeApp_ResetsOnFailure(t *testing.T) {
	s, fe := newTestStore(t)
	fe.failOnce("Initialize", errors.New("database disk image is malformed"))

	s.InitializeApp(context.Background())
	st := s.GetState()

	assert.Equal(t, 1, fe.count("ResetDatabase"))
	assert.True(t, st.IsAppInitialized)
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Error)
	assert.Equal(t, core.DefaultCategories(), st.Categories)
}

func TestInitializeApp_OfflineFallback(t *testing.T) {
	s, fe := newTestStore(t)
	fe.failOn("Initialize", errors.New("Database initialization failed"))
	fe.failOn("ResetDatabase", errors.New("disk full"))

	s.InitializeApp(context.Background())
	st := s.GetState()

	assert.True(t, st.IsAppInitialized)
	assert.False(t, st.IsLoading)
	assert.Equal(t, "disk full", st.Error)
	assert.Equal(t, core.DefaultCategories(), st.Categories)
	assert.Equal(t, core.DefaultCurrencies(), st.Currencies)
	assert.Empty(t, st.Expenses)
	require.NotNil(t, st.UserPreferences)
	assert.Equal(t, core.UserPreferences{
		DefaultCurrency: core.DefaultCurrencies()[0],
		Theme:           core.ThemeSystem,
		Language:        "en",
		DateFormat:      "MMM dd, yyyy",
		FirstDayOfWeek:  0,
	}, *st.UserPreferences)
	assert.Equal(t, 0, fe.count("GetExpenses"))
}

func TestInitializeApp_ConcurrentCallsShareOneAttempt(t *testing.T) {
	s, fe := newTestStore(t)
	release := fe.block("Initialize")

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.InitializeApp(context.Background())
		}()
	}

	time.Sleep(20 * time.Millisecond)
	release()
	wg.Wait()

	assert.Equal(t, 1, fe.count("Initialize"))
	assert.True(t, s.GetState().IsAppInitialized)
}

func TestInitializeApp_ResetInitialization(t *testing.T) {
	ctx := context.Background()
	s, fe := newTestStore(t)

	s.InitializeApp(ctx)
	s.InitializeApp(ctx)
	assert.Equal(t, 1, fe.count("Initialize"))

	s.ResetInitialization()
	s.InitializeApp(ctx)
	assert.Equal(t, 2, fe.count("Initialize"))
}

func TestCreateExpense(t *testing.T) {
	ctx := context.Background()
	s, fe := newReadyStore(t)
	in := fakeExpense("food")

	id, err := s.CreateExpense(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	st := s.GetState()
	require.Len(t, st.Expenses, 1)
	got := st.Expenses[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, in.Amount, got.Amount)
	assert.Equal(t, in.Vendor, got.Vendor)
	assert.Equal(t, "food", got.Category.ID)
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Error)

	stored, err := fe.Engine.GetExpense(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, in.Description, stored.Description)
}

func TestCreateExpense_Failure(t *testing.T) {
	s, fe := newReadyStore(t)
	fe.failOn("CreateExpense", errTest)

	id, err := s.CreateExpense(context.Background(), fakeExpense("food"))

	require.ErrorIs(t, err, errTest)
	assert.Empty(t, id)
	st := s.GetState()
	assert.Equal(t, "Create failed", st.Error)
	assert.Empty(t, st.Expenses)
	assert.False(t, st.IsLoading)
}

func TestCreateExpense_ConstraintPassthrough(t *testing.T) {
	s, _ := newReadyStore(t)

	_, err := s.CreateExpense(context.Background(), fakeExpense("no-such-category"))

	require.Error(t, err)
	assert.Contains(t, s.GetState().Error, "FOREIGN KEY")
	assert.Empty(t, s.GetState().Expenses)
}

func TestCreateExpense_ConcurrentFailuresAreIsolated(t *testing.T) {
	ctx := context.Background()
	s, fe := newReadyStore(t)
	fe.failVendor = "Broken Vendor"

	inputs := []core.ExpenseInput{fakeExpense("food"), fakeExpense("travel"), fakeExpense("food")}
	inputs[1].Vendor = "Broken Vendor"

	errs := make([]error, len(inputs))
	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.CreateExpense(ctx, in)
		}()
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.Error(t, errs[1])
	assert.NoError(t, errs[2])
	assert.Len(t, s.GetState().Expenses, 2)

	s.ClearError()
	assert.Empty(t, s.GetState().Error)
}

func TestCreateExpense_MixedSequence(t *testing.T) {
	ctx := context.Background()
	s, fe := newReadyStore(t)

	_, err := s.CreateExpense(ctx, fakeExpense("food"))
	require.NoError(t, err)

	fe.failOnce("CreateExpense", errTest)
	_, err = s.CreateExpense(ctx, fakeExpense("food"))
	require.Error(t, err)
	assert.Equal(t, "Create failed", s.GetState().Error)

	_, err = s.CreateExpense(ctx, fakeExpense("food"))
	require.NoError(t, err)
	assert.Empty(t, s.GetState().Error, "a new action clears the previous error")
	assert.Len(t, s.GetState().Expenses, 2)
}

func TestIsLoadingWhileActionInFlight(t *testing.T) {
	s, fe := newReadyStore(t)
	release := fe.block("CreateExpense")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.CreateExpense(context.Background(), fakeExpense("food"))
	}()

	require.Eventually(t, func() bool { return fe.count("CreateExpense") == 1 }, time.Second, time.Millisecond)
	assert.True(t, s.GetState().IsLoading)

	release()
	<-done
	assert.False(t, s.GetState().IsLoading)
}

func TestUpdateExpense(t *testing.T) {
	ctx := context.Background()
	s, _ := newReadyStore(t)
	id, err := s.CreateExpense(ctx, fakeExpense("food"))
	require.NoError(t, err)

	s.UpdateExpense(ctx, id, core.ExpenseUpdate{
		Amount: core.Ptr(30.0),
		Vendor: core.Ptr("Updated Vendor"),
	})

	st := s.GetState()
	require.Len(t, st.Expenses, 1)
	assert.Equal(t, 30.0, st.Expenses[0].Amount)
	assert.Equal(t, "Updated Vendor", st.Expenses[0].Vendor)
	assert.Equal(t, "Food & Dining", st.Expenses[0].Category.Name)
	assert.Empty(t, st.Error)
}

func TestUpdateExpense_PatchesWhenRefetchFails(t *testing.T) {
	ctx := context.Background()
	s, fe := newReadyStore(t)
	id, err := s.CreateExpense(ctx, fakeExpense("food"))
	require.NoError(t, err)
	fe.failOn("GetExpense", errors.New("boom"))

	s.UpdateExpense(ctx, id, core.ExpenseUpdate{CategoryID: core.Ptr("travel")})

	st := s.GetState()
	assert.Empty(t, st.Error)
	assert.Equal(t, "travel", st.Expenses[0].Category.ID)
	assert.Equal(t, "Travel", st.Expenses[0].Category.Name)
}

func TestUpdateExpense_PatchedTagsFollowUpdate(t *testing.T) {
	ctx := context.Background()
	s, fe := newReadyStore(t)
	travel, err := s.GetOrCreateTag(ctx, "Travel")
	require.NoError(t, err)
	work, err := s.GetOrCreateTag(ctx, "Work")
	require.NoError(t, err)

	in := fakeExpense("food")
	in.Tags = []core.Tag{travel}
	id, err := s.CreateExpense(ctx, in)
	require.NoError(t, err)
	fe.failOn("GetExpense", errors.New("boom"))

	s.UpdateExpense(ctx, id, core.ExpenseUpdate{TagIDs: &[]string{work.ID}})

	st := s.GetState()
	assert.Empty(t, st.Error)
	require.Len(t, st.Expenses[0].Tags, 1)
	assert.Equal(t, work.ID, st.Expenses[0].Tags[0].ID)
	assert.Equal(t, "Work", st.Expenses[0].Tags[0].Name)

	s.UpdateExpense(ctx, id, core.ExpenseUpdate{TagIDs: &[]string{}})
	assert.Empty(t, s.GetState().Expenses[0].Tags)
}

func TestUpdateExpense_Failure(t *testing.T) {
	ctx := context.Background()
	s, fe := newReadyStore(t)
	in := fakeExpense("food")
	id, err := s.CreateExpense(ctx, in)
	require.NoError(t, err)
	fe.failOn("UpdateExpense", errors.New("Update failed"))

	s.UpdateExpense(ctx, id, core.ExpenseUpdate{Amount: core.Ptr(99.0)})

	st := s.GetState()
	assert.Equal(t, "Update failed", st.Error)
	assert.Equal(t, in.Amount, st.Expenses[0].Amount)
	assert.False(t, st.IsLoading)
}

func TestDeleteExpense(t *testing.T) {
	ctx := context.Background()
	s, fe := newReadyStore(t)
	keep, err := s.CreateExpense(ctx, fakeExpense("food"))
	require.NoError(t, err)
	drop, err := s.CreateExpense(ctx, fakeExpense("food"))
	require.NoError(t, err)

	s.DeleteExpense(ctx, drop)

	st := s.GetState()
	require.Len(t, st.Expenses, 1)
	assert.Equal(t, keep, st.Expenses[0].ID)

	_, err = fe.Engine.GetExpense(ctx, drop)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteExpense_Failure(t *testing.T) {
	ctx := context.Background()
	s, fe := newReadyStore(t)
	id, err := s.CreateExpense(ctx, fakeExpense("food"))
	require.NoError(t, err)
	fe.failOn("DeleteExpense", errors.New("Delete failed"))

	s.DeleteExpense(ctx, id)

	assert.Equal(t, "Delete failed", s.GetState().Error)
	assert.Len(t, s.GetState().Expenses, 1)
}

func TestLoadExpenses(t *testing.T) {
	ctx := context.Background()
	s, fe := newReadyStore(t)
	for range 3 {
		_, err := fe.Engine.CreateExpense(ctx, fakeExpense("food"))
		require.NoError(t, err)
	}
	_, err := fe.Engine.CreateExpense(ctx, fakeExpense("travel"))
	require.NoError(t, err)

	s.LoadExpenses(ctx, nil)
	assert.Len(t, s.GetState().Expenses, 4)

	s.LoadExpenses(ctx, &core.ExpenseFilter{Categories: []string{"travel"}})
	assert.Len(t, s.GetState().Expenses, 1)
	assert.False(t, s.GetState().IsLoading)
}

func TestLoadExpenses_UnhealthyStillQueries(t *testing.T) {
	ctx := context.Background()
	s, fe := newReadyStore(t)
	_, err := fe.Engine.CreateExpense(ctx, fakeExpense("food"))
	require.NoError(t, err)
	fe.unhealthy = true

	s.LoadExpenses(ctx, nil)

	assert.Len(t, s.GetState().Expenses, 1)
	assert.Empty(t, s.GetState().Error)
}

func TestLoadExpenses_Failure(t *testing.T) {
	ctx := context.Background()
	s, fe := newReadyStore(t)
	_, err := s.CreateExpense(ctx, fakeExpense("food"))
	require.NoError(t, err)
	fe.failOn("GetExpenses", errors.New("Database connection lost"))

	s.LoadExpenses(ctx, nil)

	st := s.GetState()
	assert.Equal(t, "Database connection lost", st.Error)
	assert.False(t, st.IsLoading)
	assert.Len(t, st.Expenses, 1, "cache is left as it was")
}

func TestSetFilter(t *testing.T) {
	ctx := context.Background()
	s, fe := newReadyStore(t)
	_, err := fe.Engine.CreateExpense(ctx, fakeExpense("food"))
	require.NoError(t, err)
	_, err = fe.Engine.CreateExpense(ctx, fakeExpense("travel"))
	require.NoError(t, err)

	filter := &core.ExpenseFilter{Categories: []string{"food"}}
	s.SetFilter(ctx, filter)
	s.Wait()

	st := s.GetState()
	assert.Equal(t, filter, st.Filter)
	require.Len(t, st.Expenses, 1)
	assert.Equal(t, "food", st.Expenses[0].Category.ID)

	s.SetFilter(ctx, nil)
	s.Wait()
	st = s.GetState()
	assert.Nil(t, st.Filter)
	assert.Len(t, st.Expenses, 2)
}

func TestSetFilter_SnapshotIsIndependent(t *testing.T) {
	s, _ := newReadyStore(t)
	filter := &core.ExpenseFilter{Categories: []string{"food"}}

	s.SetFilter(context.Background(), filter)
	s.Wait()
	filter.Categories[0] = "travel"

	assert.Equal(t, []string{"food"}, s.GetState().Filter.Categories)
}

func TestSetSearchText_Debounced(t *testing.T) {
	ctx := context.Background()
	s, fe := newReadyStore(t)
	starbucks := fakeExpense("food")
	starbucks.Vendor = "Starbucks"
	_, err := fe.Engine.CreateExpense(ctx, starbucks)
	require.NoError(t, err)
	other := fakeExpense("food")
	other.Vendor = "Local Bakery"
	other.Description = "bread"
	_, err = fe.Engine.CreateExpense(ctx, other)
	require.NoError(t, err)

	s.debouncer = core.NewDebouncer(time.Hour)
	before := fe.count("GetExpenses")
	s.SetSearchText(ctx, "s")
	s.SetSearchText(ctx, "st")
	s.SetSearchText(ctx, "starb")
	s.Wait()

	st := s.GetState()
	require.NotNil(t, st.Filter)
	assert.Equal(t, "starb", st.Filter.SearchText)
	require.Len(t, st.Expenses, 1)
	assert.Equal(t, "Starbucks", st.Expenses[0].Vendor)
	assert.Equal(t, before+1, fe.count("GetExpenses"))

	s.SetSearchText(ctx, "")
	s.Wait()
	assert.Nil(t, s.GetState().Filter)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	s, _ := newReadyStore(t)
	for _, in := range []core.ExpenseInput{
		{Amount: 10, Vendor: "A", Category: core.Category{ID: "food"}, Currency: core.Currency{Code: "USD"}, Date: time.Now()},
		{Amount: 5.5, Vendor: "B", Category: core.Category{ID: "food"}, Currency: core.Currency{Code: "USD"}, Date: time.Now()},
		{Amount: 20, Vendor: "C", Category: core.Category{ID: "travel"}, Currency: core.Currency{Code: "USD"}, Date: time.Now()},
	} {
		_, err := s.CreateExpense(ctx, in)
		require.NoError(t, err)
	}

	sum := s.Summary()

	assert.Equal(t, 35.5, sum.Total)
	assert.Equal(t, 3, sum.Count)
	require.Len(t, sum.ByCategory, 2)
	assert.Equal(t, "travel", sum.ByCategory[0].Category.ID)
	assert.Equal(t, 15.5, sum.ByCategory[1].Amount)
}

func TestSetters(t *testing.T) {
	s, _ := newTestStore(t)

	s.SetError("Something broke")
	assert.Equal(t, "Something broke", s.GetState().Error)
	s.ClearError()
	assert.Empty(t, s.GetState().Error)

	s.SetLoading(true)
	assert.True(t, s.GetState().IsLoading)
	s.SetLoading(false)
	assert.False(t, s.GetState().IsLoading)
}
