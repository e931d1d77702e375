package state

import (
	"context"
	"strings"

	"expensetracker/internal/core"
)

// LoadVendors fills the vendor cache with the most used vendors.
func (s *Store) LoadVendors(ctx context.Context) {
	s.loadVendors(ctx)
}

func (s *Store) loadVendors(ctx context.Context) {
	list, err := s.engine.GetPopularVendors(ctx, s.opts.PopularVendorLimit)
	if err != nil {
		s.recordError(ctx, "load_vendors", err)
		return
	}
	s.Update(func(st *State) { st.Vendors = list })
}

// SearchVendors returns vendor suggestions for query. Results are cached
// until the next expense write or until they expire.
func (s *Store) SearchVendors(ctx context.Context, query string) ([]core.Vendor, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if cached, ok := s.vendorCache.Get(key); ok {
		s.metrics.ObserveCacheLookup(true)
		return cached, nil
	}
	s.metrics.ObserveCacheLookup(false)

	list, err := s.engine.SearchVendors(ctx, query, s.opts.VendorSuggestionLimit)
	if err != nil {
		return nil, err
	}
	s.vendorCache.Set(key, list)
	return list, nil
}

// GetPopularVendors returns the top vendors by usage. A non-positive limit
// uses the suggestion limit.
func (s *Store) GetPopularVendors(ctx context.Context, limit int) ([]core.Vendor, error) {
	if limit <= 0 {
		limit = s.opts.VendorSuggestionLimit
	}
	return s.engine.GetPopularVendors(ctx, limit)
}
