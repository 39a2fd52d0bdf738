// Package transform chains named, composable processing stages over a
// cursor event batch before it reaches an observer handler — the same
// middleware-chain shape the teacher used for scraped-item
// post-processing (field filter, rename, dedup, trim), generalized
// from its map[string]any Item representation to typed cursor events.
package transform

import (
	"log/slog"

	"github.com/IshaanNene/gocrowd/internal/streaming/cursor"
	"github.com/IshaanNene/gocrowd/internal/types"
)

// Middleware transforms or filters one event. Returning ok=false drops
// the event from the batch without an error.
type Middleware[T types.Item] interface {
	Name() string
	Process(e cursor.Event[T]) (out cursor.Event[T], ok bool, err error)
}

// MiddlewareFunc adapts a plain function to Middleware.
type MiddlewareFunc[T types.Item] struct {
	name string
	fn   func(cursor.Event[T]) (cursor.Event[T], bool, error)
}

// NewMiddlewareFunc builds a Middleware from a name and function.
func NewMiddlewareFunc[T types.Item](name string, fn func(cursor.Event[T]) (cursor.Event[T], bool, error)) *MiddlewareFunc[T] {
	return &MiddlewareFunc[T]{name: name, fn: fn}
}

func (m *MiddlewareFunc[T]) Name() string { return m.name }

func (m *MiddlewareFunc[T]) Process(e cursor.Event[T]) (cursor.Event[T], bool, error) {
	return m.fn(e)
}

// Chain runs a batch of events through an ordered list of Middleware
// before handing survivors to a handler, so an observer's handler sees
// already-filtered, already-transformed events instead of needing its
// own ad-hoc logic for dedup or shaping.
type Chain[T types.Item] struct {
	stages []Middleware[T]
	logger *slog.Logger
}

// NewChain builds an empty Chain.
func NewChain[T types.Item](logger *slog.Logger) *Chain[T] {
	return &Chain[T]{logger: logger.With("component", "transform")}
}

// Use appends a stage to the chain.
func (c *Chain[T]) Use(m Middleware[T]) *Chain[T] {
	c.stages = append(c.stages, m)
	return c
}

// Len returns the number of stages.
func (c *Chain[T]) Len() int { return len(c.stages) }

// Process runs events through every stage in order, dropping any event
// a stage rejects, and returns the survivors.
func (c *Chain[T]) Process(events []cursor.Event[T]) ([]cursor.Event[T], error) {
	out := make([]cursor.Event[T], 0, len(events))
	for _, e := range events {
		current := e
		dropped := false
		for _, stage := range c.stages {
			next, ok, err := stage.Process(current)
			if err != nil {
				return nil, &types.TransformError{Stage: stage.Name(), ItemID: e.Item.ID(), Err: err}
			}
			if !ok {
				c.logger.Debug("event dropped", "stage", stage.Name(), "id", e.Item.ID())
				dropped = true
				break
			}
			current = next
		}
		if !dropped {
			out = append(out, current)
		}
	}
	return out, nil
}

// Handler wraps a handler with this chain, so it can be passed directly
// to observer.Simple's On/OnAny.
func (c *Chain[T]) Handler(next func([]cursor.Event[T]) error) func([]cursor.Event[T]) error {
	return func(events []cursor.Event[T]) error {
		processed, err := c.Process(events)
		if err != nil {
			return err
		}
		if len(processed) == 0 {
			return nil
		}
		return next(processed)
	}
}

// DedupByID drops events whose item id has already been seen by this
// middleware instance, independent of (and in addition to) the
// cursor's own seen-id tracking — useful when a single Chain is shared
// across observers that may surface overlapping ids.
func DedupByID[T types.Item]() Middleware[T] {
	seen := make(map[string]struct{})
	return NewMiddlewareFunc[T]("dedup_by_id", func(e cursor.Event[T]) (cursor.Event[T], bool, error) {
		id := e.Item.ID()
		if _, ok := seen[id]; ok {
			return e, false, nil
		}
		seen[id] = struct{}{}
		return e, true, nil
	})
}

// FilterEventType keeps only events whose EventType is in allowed.
func FilterEventType[T types.Item](allowed ...string) Middleware[T] {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return NewMiddlewareFunc[T]("filter_event_type", func(e cursor.Event[T]) (cursor.Event[T], bool, error) {
		_, ok := set[e.EventType]
		return e, ok, nil
	})
}
