// Package state holds the in-memory application state of the expense
// tracker and the actions that keep it in step with the storage engine.
package state

import (
	"slices"
	"sync"

	"expensetracker/internal/core"
)

// State is a snapshot of everything the UI reads.
type State struct {
	Expenses         []core.Expense
	Categories       []core.Category
	Currencies       []core.Currency
	PaymentMethods   []core.PaymentMethod
	Tags             []core.Tag
	Vendors          []core.Vendor
	UserPreferences  *core.UserPreferences
	Filter           *core.ExpenseFilter
	IsLoading        bool
	Error            string // empty when there is no error
	IsAppInitialized bool
}

// Listener receives a snapshot after every change.
type Listener func(State)

// Container serializes reads and writes of a State and fans changes out to
// subscribers. Snapshots handed out never alias the live state.
type Container struct {
	mu    sync.RWMutex
	state State

	subMu     sync.Mutex
	listeners map[uint64]Listener
	nextSub   uint64
}

func NewContainer(initial State) *Container {
	return &Container{
		state:     initial.clone(),
		listeners: make(map[uint64]Listener),
	}
}

// GetState returns a copy of the current state.
func (c *Container) GetState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

// Update applies fn to the live state and notifies subscribers.
func (c *Container) Update(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.notify(snapshot)
}

// Subscribe registers l and returns a function that removes it.
func (c *Container) Subscribe(l Listener) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = l
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.listeners, id)
			c.subMu.Unlock()
		})
	}
}

func (c *Container) notify(s State) {
	c.subMu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.subMu.Unlock()

	for _, l := range listeners {
		l(s)
	}
}

func (s State) clone() State {
	out := s
	out.Expenses = cloneExpenses(s.Expenses)
	out.Categories = slices.Clone(s.Categories)
	out.Currencies = slices.Clone(s.Currencies)
	out.PaymentMethods = slices.Clone(s.PaymentMethods)
	out.Tags = slices.Clone(s.Tags)
	out.Vendors = slices.Clone(s.Vendors)
	if s.UserPreferences != nil {
		p := *s.UserPreferences
		out.UserPreferences = &p
	}
	out.Filter = cloneFilter(s.Filter)
	return out
}

func cloneExpenses(in []core.Expense) []core.Expense {
	if in == nil {
		return nil
	}
	out := make([]core.Expense, len(in))
	for i, e := range in {
		if e.PaymentMethod != nil {
			pm := *e.PaymentMethod
			e.PaymentMethod = &pm
		}
		e.Tags = slices.Clone(e.Tags)
		out[i] = e
	}
	return out
}

func cloneFilter(f *core.ExpenseFilter) *core.ExpenseFilter {
	if f == nil {
		return nil
	}
	out := *f
	out.Categories = slices.Clone(f.Categories)
	out.PaymentMethods = slices.Clone(f.PaymentMethods)
	out.Tags = slices.Clone(f.Tags)
	if f.DateRange != nil {
		dr := *f.DateRange
		out.DateRange = &dr
	}
	if f.MinAmount != nil {
		out.MinAmount = core.Ptr(*f.MinAmount)
	}
	if f.MaxAmount != nil {
		out.MaxAmount = core.Ptr(*f.MaxAmount)
	}
	return &out
}
