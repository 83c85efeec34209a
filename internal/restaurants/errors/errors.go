package errors

import "errors"

var (
	ErrNotFound = errors.New("restaurant not found")

	ErrEmptyBusinessID = errors.New("business id cannot be empty")

	ErrEmptyCuisine = errors.New("cuisine cannot be empty")

	// ErrSearchFailed wraps every search backend failure so callers need not
	// know which backend is configured.
	ErrSearchFailed = errors.New("restaurant search failed")
)
