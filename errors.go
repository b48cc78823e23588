package batchpool

import "errors"

var (
	// ErrInvalidConcurrency is returned when the concurrency is below one.
	ErrInvalidConcurrency = errors.New("batchpool: concurrency must be at least 1")

	// ErrInvalidPolicy is returned for an unknown [Policy] value.
	ErrInvalidPolicy = errors.New("batchpool: invalid policy")

	// ErrObserverType is returned by [New] when the observer registered via
	// [WithObserver] does not match the pool's value type.
	ErrObserverType = errors.New("batchpool: observer value type does not match pool")
)
