package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidRule is returned when a rule fails load-time validation
	ErrInvalidRule = errors.New("invalid rule definition")

	// ErrNoCandidates is returned when the catalog yields no products to evaluate
	ErrNoCandidates = errors.New("no candidate products found")

	// ErrSnapshotUnavailable is returned when no rule snapshot has been loaded yet
	ErrSnapshotUnavailable = errors.New("rule snapshot unavailable")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrIntentMatcher is returned when the intent matcher cannot score a product
	ErrIntentMatcher = errors.New("intent matcher failure")

	// ErrCacheMiss is returned when a key is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
