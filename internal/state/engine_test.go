package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

// faultyEngine wraps a real engine and injects failures, delays and call
// counting per operation name.
type faultyEngine struct {
	Engine

	mu           sync.Mutex
	failures     map[string]*failure
	calls        map[string]int
	gates        map[string]chan struct{}
	unhealthy    bool
	failVendor   string
	vendorLimits []int
}

type failure struct {
	err       error
	remaining int // 0 means every call fails
}

func newFaultyEngine(inner Engine) *faultyEngine {
	return &faultyEngine{
		Engine:   inner,
		failures: make(map[string]*failure),
		calls:    make(map[string]int),
		gates:    make(map[string]chan struct{}),
	}
}

func (f *faultyEngine) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = &failure{err: err}
}

func (f *faultyEngine) failOnce(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = &failure{err: err, remaining: 1}
}

func (f *faultyEngine) recover(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, op)
}

// block makes op wait until the returned release function is called.
func (f *faultyEngine) block(op string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[op] = gate
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (f *faultyEngine) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *faultyEngine) enter(op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.gates[op]
	var err error
	if fl, ok := f.failures[op]; ok {
		err = fl.err
		if fl.remaining > 0 {
			fl.remaining--
			if fl.remaining == 0 {
				delete(f.failures, op)
			}
		}
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return err
}

func (f *faultyEngine) Initialize(ctx context.Context) error {
	if err := f.enter("Initialize"); err != nil {
		return err
	}
	return f.Engine.Initialize(ctx)
}

func (f *faultyEngine) ResetDatabase(ctx context.Context) error {
	if err := f.enter("ResetDatabase"); err != nil {
		return err
	}
	return f.Engine.ResetDatabase(ctx)
}

func (f *faultyEngine) CheckDatabaseHealth(ctx context.Context) bool {
	_ = f.enter("CheckDatabaseHealth")
	f.mu.Lock()
	unhealthy := f.unhealthy
	f.mu.Unlock()
	if unhealthy {
		return false
	}
	return f.Engine.CheckDatabaseHealth(ctx)
}

func (f *faultyEngine) CreateExpense(ctx context.Context, in core.ExpenseInput) (string, error) {
	if err := f.enter("CreateExpense"); err != nil {
		return "", err
	}
	f.mu.Lock()
	failVendor := f.failVendor
	f.mu.Unlock()
	if failVendor != "" && in.Vendor == failVendor {
		return "", errTest
	}
	return f.Engine.CreateExpense(ctx, in)
}

func (f *faultyEngine) UpdateExpense(ctx context.Context, id string, u core.ExpenseUpdate) error {
	if err := f.enter("UpdateExpense"); err != nil {
		return err
	}
	return f.Engine.UpdateExpense(ctx, id, u)
}

func (f *faultyEngine) DeleteExpense(ctx context.Context, id string) error {
	if err := f.enter("DeleteExpense"); err != nil {
		return err
	}
	return f.Engine.DeleteExpense(ctx, id)
}

func (f *faultyEngine) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	if err := f.enter("GetExpense"); err != nil {
		return core.Expense{}, err
	}
	return f.Engine.GetExpense(ctx, id)
}

func (f *faultyEngine) GetExpenses(ctx context.Context, filter *core.ExpenseFilter, limit, offset int) ([]core.Expense, error) {
	if err := f.enter("GetExpenses"); err != nil {
		return nil, err
	}
	return f.Engine.GetExpenses(ctx, filter, limit, offset)
}

func (f *faultyEngine) CreateCategory(ctx context.Context, in core.CategoryInput) (string, error) {
	if err := f.enter("CreateCategory"); err != nil {
		return "", err
	}
	return f.Engine.CreateCategory(ctx, in)
}

func (f *faultyEngine) GetCategories(ctx context.Context) ([]core.Category, error) {
	if err := f.enter("GetCategories"); err != nil {
		return nil, err
	}
	return f.Engine.GetCategories(ctx)
}

func (f *faultyEngine) GetCategoryTree(ctx context.Context) ([]*core.CategoryNode, error) {
	if err := f.enter("GetCategoryTree"); err != nil {
		return nil, err
	}
	return f.Engine.GetCategoryTree(ctx)
}

func (f *faultyEngine) GetCurrencies(ctx context.Context) ([]core.Currency, error) {
	if err := f.enter("GetCurrencies"); err != nil {
		return nil, err
	}
	return f.Engine.GetCurrencies(ctx)
}

func (f *faultyEngine) GetPaymentMethods(ctx context.Context) ([]core.PaymentMethod, error) {
	if err := f.enter("GetPaymentMethods"); err != nil {
		return nil, err
	}
	return f.Engine.GetPaymentMethods(ctx)
}

func (f *faultyEngine) CreatePaymentMethod(ctx context.Context, in core.PaymentMethodInput) (string, error) {
	if err := f.enter("CreatePaymentMethod"); err != nil {
		return "", err
	}
	return f.Engine.CreatePaymentMethod(ctx, in)
}

func (f *faultyEngine) GetTags(ctx context.Context) ([]core.Tag, error) {
	if err := f.enter("GetTags"); err != nil {
		return nil, err
	}
	return f.Engine.GetTags(ctx)
}

func (f *faultyEngine) CreateTag(ctx context.Context, in core.TagInput) (string, error) {
	if err := f.enter("CreateTag"); err != nil {
		return "", err
	}
	return f.Engine.CreateTag(ctx, in)
}

func (f *faultyEngine) DeleteTag(ctx context.Context, id string) error {
	if err := f.enter("DeleteTag"); err != nil {
		return err
	}
	return f.Engine.DeleteTag(ctx, id)
}

func (f *faultyEngine) SearchVendors(ctx context.Context, query string, limit int) ([]core.Vendor, error) {
	if err := f.enter("SearchVendors"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.vendorLimits = append(f.vendorLimits, limit)
	f.mu.Unlock()
	return f.Engine.SearchVendors(ctx, query, limit)
}

func (f *faultyEngine) GetPopularVendors(ctx context.Context, limit int) ([]core.Vendor, error) {
	if err := f.enter("GetPopularVendors"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.vendorLimits = append(f.vendorLimits, limit)
	f.mu.Unlock()
	return f.Engine.GetPopularVendors(ctx, limit)
}

func (f *faultyEngine) lastVendorLimit() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.vendorLimits) == 0 {
		return 0
	}
	return f.vendorLimits[len(f.vendorLimits)-1]
}

func (f *faultyEngine) GetUserPreferences(ctx context.Context) (*core.UserPreferences, error) {
	if err := f.enter("GetUserPreferences"); err != nil {
		return nil, err
	}
	return f.Engine.GetUserPreferences(ctx)
}

func (f *faultyEngine) SaveUserPreferences(ctx context.Context, p core.UserPreferences) error {
	if err := f.enter("SaveUserPreferences"); err != nil {
		return err
	}
	return f.Engine.SaveUserPreferences(ctx, p)
}

// newTestStore returns a store over a fresh on-disk database. The database
// is not initialized; call InitializeApp or use newReadyStore.
func newTestStore(t *testing.T) (*Store, *faultyEngine) {
	t.Helper()

	m := storage.NewManager(storage.NewSQLiteDriver(t.TempDir()), storage.DefaultDatabaseName)
	t.Cleanup(func() { _ = m.Close() })

	fe := newFaultyEngine(m)
	s := NewStore(fe, Options{SearchDebounce: 20 * time.Millisecond})
	t.Cleanup(s.Close)
	return s, fe
}

func newReadyStore(t *testing.T) (*Store, *faultyEngine) {
	t.Helper()
	s, fe := newTestStore(t)
	s.InitializeApp(context.Background())
	require.True(t, s.GetState().IsAppInitialized)
	require.Empty(t, s.GetState().Error)
	return s, fe
}

func fakeExpense(categoryID string) core.ExpenseInput {
	return core.ExpenseInput{
		Amount:      core.RoundAmount(gofakeit.Price(1, 500)),
		Description: gofakeit.Sentence(4),
		Vendor:      gofakeit.Company(),
		Category:    core.Category{ID: categoryID},
		Date:        time.Date(2025, time.Month(gofakeit.Number(1, 12)), gofakeit.Number(1, 28), 12, 0, 0, 0, time.UTC),
		Currency:    core.Currency{Code: "USD", Symbol: "$", Name: "US Dollar"},
	}
}
