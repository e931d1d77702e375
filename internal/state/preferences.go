package state

import (
	"context"

	"expensetracker/internal/core"
)

// LoadUserPreferences reads the stored preferences. On failure the error is
// recorded; cached preferences are kept, or the defaults used if there are none.
func (s *Store) LoadUserPreferences(ctx context.Context) {
	s.loadUserPreferences(ctx)
}

func (s *Store) loadUserPreferences(ctx context.Context) {
	prefs, err := s.engine.GetUserPreferences(ctx)
	if err != nil {
		s.recordError(ctx, "load_user_preferences", err)
		s.Update(func(st *State) {
			if st.UserPreferences == nil {
				p := core.DefaultUserPreferences()
				st.UserPreferences = &p
			}
		})
		return
	}
	s.Update(func(st *State) { st.UserPreferences = prefs })
}

// UpdateUserPreferences merges u into the current preferences and saves
// the result. Failures are recorded in state only.
func (s *Store) UpdateUserPreferences(ctx context.Context, u core.UserPreferencesUpdate) {
	s.begin()
	current := core.DefaultUserPreferences()
	if p := s.GetState().UserPreferences; p != nil {
		current = *p
	}
	merged := u.Apply(current)

	if err := s.engine.SaveUserPreferences(ctx, merged); err != nil {
		s.fail(ctx, "update_user_preferences", err)
		return
	}
	s.succeed(func(st *State) { st.UserPreferences = &merged })
}
