package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation wraps parameter errors detected before any dispatch.
	ErrValidation = errors.New("fetch: invalid request")

	// ErrDispatch wraps failures reported by the Dispatcher.
	ErrDispatch = errors.New("fetch: dispatch failed")

	// ErrTimeout indicates the dispatch exceeded the fetch timeout. It also
	// matches ErrDispatch.
	ErrTimeout = fmt.Errorf("%w: upstream timeout", ErrDispatch)

	// ErrStopped is returned by a coordinator after Stop.
	ErrStopped = errors.New("fetch: coordinator stopped")

	// ErrInvalidConfig indicates a configuration value is out of range.
	ErrInvalidConfig = errors.New("fetch: invalid config")

	// ErrNilDispatcher is returned by New when no dispatcher is given.
	ErrNilDispatcher = errors.New("fetch: dispatcher is nil")
)
