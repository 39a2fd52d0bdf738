// Package bridge adapts a synchronous fetch function to run behind a
// bounded worker pool so cursors always call it via the same
// suspension-equivalent path, mirroring the
// AsyncMultithreadWrapper/ensure_async machinery in
// original_source — a synchronous client wrapped so every call is
// dispatched through a fixed-size pool rather than run inline.
package bridge

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/gocrowd/internal/observability"
	"github.com/IshaanNene/gocrowd/internal/streaming/cursor"
	"github.com/IshaanNene/gocrowd/internal/types"
)

// SyncFetch is a blocking fetch call against the remote platform.
type SyncFetch[T types.Item] func(req types.SearchRequest, sort string) (cursor.Page[T], error)

// SyncAdapter wraps a SyncFetch so it can be handed to cursor.NewBase
// as a cursor.FetchFunc: every call is dispatched onto a bounded
// worker pool (via an errgroup.Group with SetLimit) instead of
// executing inline on the caller's goroutine, and the call result (or
// panic-free error) is returned unchanged.
type SyncAdapter[T types.Item] struct {
	fn         SyncFetch[T]
	group      *errgroup.Group
	collection string
	metrics    *observability.Metrics
}

// NewSyncAdapter builds an adapter bounded to maxConcurrent in-flight
// calls. maxConcurrent <= 0 means unbounded. collection labels fetch
// metrics (e.g. "assignments"); it may be empty if unused.
func NewSyncAdapter[T types.Item](fn SyncFetch[T], maxConcurrent int, collection string) *SyncAdapter[T] {
	g := &errgroup.Group{}
	if maxConcurrent > 0 {
		g.SetLimit(maxConcurrent)
	}
	return &SyncAdapter[T]{fn: fn, group: g, collection: collection}
}

// WithMetrics attaches a Metrics sink; every Fetch call past this
// point records success/failure under the adapter's collection label.
func (a *SyncAdapter[T]) WithMetrics(m *observability.Metrics) *SyncAdapter[T] {
	a.metrics = m
	return a
}

// Fetch satisfies cursor.FetchFunc: it runs fn on a pooled goroutine
// and blocks the caller until that goroutine finishes or ctx is
// cancelled first, whichever comes first. A ctx cancellation does not
// stop the underlying synchronous call — it has no cancellation
// hook — it only stops the caller from waiting on it further.
func (a *SyncAdapter[T]) Fetch(ctx context.Context, req types.SearchRequest, sort string) (cursor.Page[T], error) {
	type result struct {
		page cursor.Page[T]
		err  error
	}
	done := make(chan result, 1)

	a.group.Go(func() error {
		page, err := a.fn(req, sort)
		done <- result{page: page, err: err}
		return nil
	})

	select {
	case r := <-done:
		if a.metrics != nil {
			a.metrics.ObserveFetch(a.collection, r.err)
		}
		return r.page, r.err
	case <-ctx.Done():
		return cursor.Page[T]{}, ctx.Err()
	}
}
