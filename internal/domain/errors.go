package domain

import "errors"

// Resolution outcomes visible to callers. Provider-level failures never
// escape the chain; these are the only errors Resolve can return.
var (
	// ErrEmptyQuery rejects empty or whitespace-only input before any
	// provider is consulted.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrNoResults means at least one provider was consulted successfully
	// but none returned a match.
	ErrNoResults = errors.New("no matching places found")

	// ErrAllProvidersFailed means every enabled provider errored or timed
	// out (or no provider is enabled). Fatal for the call, not the service.
	ErrAllProvidersFailed = errors.New("all geocoding providers failed")
)
