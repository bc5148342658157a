package fetch

import (
	"context"

	"github.com/clycites/geofetch/fingerprint"
)

//go:generate mockgen -package=mock -source=dispatcher.go -destination=mock/dispatcher.go

// Dispatcher performs the upstream call for one request.
//
// Contract:
//   - Concurrency: must be safe for concurrent use.
//   - Context: ctx carries the fetch timeout and the cancellation of
//     abandoned requests; implementations should abort when it ends.
//   - Ownership: the returned payload is owned by the caller and cached as is.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind fingerprint.Kind, params fingerprint.Params) ([]byte, error)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, kind fingerprint.Kind, params fingerprint.Params) ([]byte, error)

// Dispatch calls f(ctx, kind, params).
func (f DispatcherFunc) Dispatch(ctx context.Context, kind fingerprint.Kind, params fingerprint.Params) ([]byte, error) {
	return f(ctx, kind, params)
}

var _ Dispatcher = DispatcherFunc(nil)
