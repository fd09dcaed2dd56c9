package domain

import "errors"

var (
	// ErrBackendUnavailable is returned when the search backend could not load a results page
	ErrBackendUnavailable = errors.New("search backend unavailable")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrRunInProgress is returned when a lookup run is requested while another one is active
	ErrRunInProgress = errors.New("lookup run already in progress")

	// ErrNotFound is returned when a product name has no stored lookup result
	ErrNotFound = errors.New("lookup result not found")

	// ErrSourceUnreadable is returned when an offer file exists but cannot be parsed
	ErrSourceUnreadable = errors.New("offer source unreadable")

	// ErrStoreUnavailable is returned when the result store cannot be reached
	ErrStoreUnavailable = errors.New("result store unavailable")
)
