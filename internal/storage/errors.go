package storage

import "errors"

// Messages are user-facing and matched verbatim by callers.
var (
	ErrNotInitialized      = errors.New("Database not initialized")
	ErrCategoryHasChildren = errors.New("Cannot delete category with child categories")
	ErrCategoryInUse       = errors.New("Cannot delete category that is used in expenses")
	ErrCategoryCycle       = errors.New("Cannot move category to its own descendant")
	ErrCategoryTooDeep     = errors.New("Maximum category depth exceeded")
	ErrNotFound            = errors.New("not found")
)
