package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/storage"
)

// Engine is the storage surface the store drives. *storage.Manager implements it.
type Engine interface {
	Initialize(ctx context.Context) error
	ResetDatabase(ctx context.Context) error
	CheckDatabaseHealth(ctx context.Context) bool

	CreateExpense(ctx context.Context, in core.ExpenseInput) (string, error)
	UpdateExpense(ctx context.Context, id string, u core.ExpenseUpdate) error
	DeleteExpense(ctx context.Context, id string) error
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	GetExpenses(ctx context.Context, filter *core.ExpenseFilter, limit, offset int) ([]core.Expense, error)

	CreateCategory(ctx context.Context, in core.CategoryInput) (string, error)
	GetCategories(ctx context.Context) ([]core.Category, error)
	GetCategoryTree(ctx context.Context) ([]*core.CategoryNode, error)
	UpdateCategory(ctx context.Context, id string, u core.CategoryUpdate) error
	DeleteCategory(ctx context.Context, id string) error
	MoveCategoryToParent(ctx context.Context, id, parentID string) error

	GetCurrencies(ctx context.Context) ([]core.Currency, error)

	CreatePaymentMethod(ctx context.Context, in core.PaymentMethodInput) (string, error)
	GetPaymentMethods(ctx context.Context) ([]core.PaymentMethod, error)
	UpdatePaymentMethod(ctx context.Context, id string, u core.PaymentMethodUpdate) error
	DeletePaymentMethod(ctx context.Context, id string) error

	CreateTag(ctx context.Context, in core.TagInput) (string, error)
	GetTags(ctx context.Context) ([]core.Tag, error)
	UpdateTag(ctx context.Context, id string, u core.TagUpdate) error
	DeleteTag(ctx context.Context, id string) error
	SearchTags(ctx context.Context, query string) ([]core.Tag, error)
	GetOrCreateTag(ctx context.Context, name string) (core.Tag, error)

	SearchVendors(ctx context.Context, query string, limit int) ([]core.Vendor, error)
	GetPopularVendors(ctx context.Context, limit int) ([]core.Vendor, error)

	GetUserPreferences(ctx context.Context) (*core.UserPreferences, error)
	SaveUserPreferences(ctx context.Context, p core.UserPreferences) error
}

// Init paths reported in logs.
const (
	InitPathNormal  = "normal"
	InitPathReset   = "reset"
	InitPathOffline = "offline"
)

type Options struct {
	VendorSuggestionLimit int
	PopularVendorLimit    int
	SearchDebounce        time.Duration
	VendorCacheSize       int // 0 uses the default, negative disables caching
	VendorCacheTTL        time.Duration

	Logger  *log.Logger
	Metrics metrics.Recorder
}

func DefaultOptions() Options {
	return Options{
		VendorSuggestionLimit: 10,
		PopularVendorLimit:    50,
		SearchDebounce:        300 * time.Millisecond,
		VendorCacheSize:       100,
		VendorCacheTTL:        5 * time.Minute,
	}
}

// Store is the application state plus the actions that mutate it.
// Every action settles the state fields it touches before returning.
type Store struct {
	*Container

	engine  Engine
	opts    Options
	logger  *log.Logger
	metrics metrics.Recorder

	initGroup   singleflight.Group
	initialized atomic.Bool

	vendorCache *cache.LRUCache[[]core.Vendor]
	debouncer   *core.Debouncer
	reloads     sync.WaitGroup
	filterSeq   atomic.Uint64
}

func NewStore(engine Engine, opts Options) *Store {
	defaults := DefaultOptions()
	if opts.VendorSuggestionLimit <= 0 {
		opts.VendorSuggestionLimit = defaults.VendorSuggestionLimit
	}
	if opts.PopularVendorLimit <= 0 {
		opts.PopularVendorLimit = defaults.PopularVendorLimit
	}
	if opts.SearchDebounce < 0 {
		opts.SearchDebounce = 0
	}
	// Zero means unset; a negative size turns the vendor cache off.
	if opts.VendorCacheSize == 0 {
		opts.VendorCacheSize = defaults.VendorCacheSize
	}
	if opts.VendorCacheTTL <= 0 {
		opts.VendorCacheTTL = defaults.VendorCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}

	return &Store{
		Container:   NewContainer(initialState()),
		engine:      engine,
		opts:        opts,
		logger:      opts.Logger.WithComponent(log.ComponentState),
		metrics:     opts.Metrics,
		vendorCache: cache.NewLRUCache[[]core.Vendor](opts.VendorCacheSize, opts.VendorCacheTTL),
		debouncer:   core.NewDebouncer(opts.SearchDebounce),
	}
}

func initialState() State {
	return State{
		Expenses:       []core.Expense{},
		Categories:     core.DefaultCategories(),
		Currencies:     core.DefaultCurrencies(),
		PaymentMethods: []core.PaymentMethod{},
		Tags:           []core.Tag{},
		Vendors:        []core.Vendor{},
	}
}

// VendorCache exposes the suggestion cache so it can be registered for sweeping.
func (s *Store) VendorCache() *cache.LRUCache[[]core.Vendor] {
	return s.vendorCache
}

// InitializeApp brings the store up once. Concurrent callers share a single
// attempt. It always finishes with IsAppInitialized set, falling back to a
// reset database and then to built-in defaults.
func (s *Store) InitializeApp(ctx context.Context) {
	if s.initialized.Load() {
		return
	}
	_, _, _ = s.initGroup.Do("initialize", func() (any, error) {
		if s.initialized.Load() {
			return nil, nil
		}
		s.initialize(ctx)
		s.initialized.Store(true)
		return nil, nil
	})
}

// ResetInitialization lets the next InitializeApp run a real initialization again.
func (s *Store) ResetInitialization() {
	s.initialized.Store(false)
}

func (s *Store) initialize(ctx context.Context) {
	start := time.Now()
	s.begin()

	path := InitPathNormal
	if err := s.engine.Initialize(ctx); err != nil {
		s.logger.WarnContext(ctx, "Database initialization failed, resetting database", log.FieldError, err)
		if rerr := s.engine.ResetDatabase(ctx); rerr != nil {
			s.logger.ErrorContext(ctx, "Database reset failed, continuing offline", log.FieldError, rerr)
			s.enterOffline(rerr)
			s.logInitDone(ctx, InitPathOffline, start)
			return
		}
		path = InitPathReset
	}

	s.loadAll(ctx)
	s.ensurePreferences(ctx)

	s.Update(func(st *State) {
		st.IsLoading = false
		st.IsAppInitialized = true
	})
	s.logInitDone(ctx, path, start)
}

func (s *Store) logInitDone(ctx context.Context, path string, start time.Time) {
	fields := log.NewFields().
		WithOperation("initialize_app").
		WithDuration(time.Since(start).Milliseconds(), path != InitPathOffline)
	fields[log.FieldInitPath] = path
	if path == InitPathOffline {
		s.logger.WarnContext(ctx, "App initialized", fields.ToSlice()...)
		return
	}
	s.logger.InfoContext(ctx, "App initialized", fields.ToSlice()...)
}

// loadAll refreshes every cache. Loads are independent; each one handles
// its own failure.
func (s *Store) loadAll(ctx context.Context) {
	var g errgroup.Group
	for _, load := range []func(context.Context){
		s.loadCategories,
		s.loadCurrencies,
		s.loadPaymentMethods,
		s.loadTags,
		s.loadVendors,
		s.loadUserPreferences,
	} {
		g.Go(func() error {
			load(ctx)
			return nil
		})
	}
	g.Go(func() error {
		s.loadExpenses(ctx, nil, 0)
		return nil
	})
	_ = g.Wait()
}

// ensurePreferences persists the defaults when no preferences row exists.
func (s *Store) ensurePreferences(ctx context.Context) {
	if s.GetState().UserPreferences != nil {
		return
	}
	prefs := core.DefaultUserPreferences()
	if err := s.engine.SaveUserPreferences(ctx, prefs); err != nil {
		s.logger.WarnContext(ctx, "Failed to save default preferences", log.FieldError, err)
	}
	s.Update(func(st *State) {
		if st.UserPreferences == nil {
			st.UserPreferences = &prefs
		}
	})
}

func (s *Store) enterOffline(cause error) {
	prefs := core.DefaultUserPreferences()
	s.Update(func(st *State) {
		st.Expenses = []core.Expense{}
		st.Categories = core.DefaultCategories()
		st.Currencies = core.DefaultCurrencies()
		st.PaymentMethods = []core.PaymentMethod{}
		st.Tags = []core.Tag{}
		st.Vendors = []core.Vendor{}
		st.UserPreferences = &prefs
		st.Error = cause.Error()
		st.IsLoading = false
		st.IsAppInitialized = true
	})
}

// SetError records msg as the current error.
func (s *Store) SetError(msg string) {
	s.Update(func(st *State) { st.Error = msg })
}

func (s *Store) ClearError() {
	s.Update(func(st *State) { st.Error = "" })
}

func (s *Store) SetLoading(loading bool) {
	s.Update(func(st *State) { st.IsLoading = loading })
}

// Wait runs any pending debounced search now and blocks until background
// reloads have finished.
func (s *Store) Wait() {
	s.debouncer.Wait()
	s.reloads.Wait()
}

// Close drops pending debounced work and waits for background reloads.
func (s *Store) Close() {
	s.debouncer.Stop()
	s.debouncer.Wait()
	s.reloads.Wait()
}

// begin marks an action as started.
func (s *Store) begin() {
	s.Update(func(st *State) {
		st.IsLoading = true
		st.Error = ""
	})
}

// succeed applies fn and settles the flags for a successful action. The
// error was cleared by begin; a failed follow-up reload may have set it again.
func (s *Store) succeed(fn func(*State)) {
	s.Update(func(st *State) {
		if fn != nil {
			fn(st)
		}
		st.IsLoading = false
	})
}

// fail records err as the current error without touching the caches.
// attrs are extra key/value pairs for the log line.
func (s *Store) fail(ctx context.Context, op string, err error, attrs ...any) {
	s.logger.ErrorContext(ctx, "Action failed", failureAttrs(op, err, attrs)...)
	s.Update(func(st *State) {
		st.IsLoading = false
		st.Error = err.Error()
	})
}

// recordError sets the current error but leaves IsLoading alone, for loads
// that run inside a larger action.
func (s *Store) recordError(ctx context.Context, op string, err error) {
	s.logger.ErrorContext(ctx, "Load failed", failureAttrs(op, err, nil)...)
	s.Update(func(st *State) { st.Error = err.Error() })
}

func failureAttrs(op string, err error, extra []any) []any {
	attrs := []any{log.FieldOperation, op, log.FieldErrorType, errorType(err), log.FieldError, err}
	return append(attrs, extra...)
}

// errorType classifies err for logging.
func errorType(err error) string {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return log.ErrorTypeNotFound
	case errors.Is(err, storage.ErrCategoryHasChildren),
		errors.Is(err, storage.ErrCategoryInUse),
		errors.Is(err, storage.ErrCategoryCycle),
		errors.Is(err, storage.ErrCategoryTooDeep):
		return log.ErrorTypeConstraint
	default:
		return log.ErrorTypeDatabase
	}
}
