// Package observer implements the collaborator contract the Pipeline
// drives: a unit of user logic that wraps one or more cursors,
// dispatches newly-seen events to handler callbacks, and declares
// whether another invocation could still yield work.
package observer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/IshaanNene/gocrowd/internal/observability"
	"github.com/IshaanNene/gocrowd/internal/streaming/cursor"
	"github.com/IshaanNene/gocrowd/internal/types"
)

// Observer is the collaborator contract from SPEC_FULL.md §4.4:
// Call performs one unit of work, ShouldResume reports whether another
// invocation could yield more, UniqueKey is a deterministic identity
// used as a storage key, and Inject copies another observer's
// persisted state in (used to restore state loaded from Storage).
type Observer interface {
	Call(ctx context.Context) error
	ShouldResume() bool
	UniqueKey() string
	Inject(other Observer)
	MarshalState() ([]byte, error)
	UnmarshalState(data []byte) error
}

// Simple binds exactly one cursor to a set of handlers keyed by event
// type, draining the cursor to exhaustion on each Call and invoking
// the matching handler per event type in first-seen order. It reports
// ShouldResume true whenever the last Call emitted at least one event
// — a fresh page just appeared, so another invocation is likely to
// find more, matching the toloka-kit AssignmentsObserver convention of
// resuming so long as the previous drive wasn't empty.
type Simple[T types.Item] struct {
	mu         sync.Mutex
	key        string
	cur        *cursor.Base[T, cursor.Event[T]]
	handlers   map[string]func([]cursor.Event[T]) error
	anyHandler func([]cursor.Event[T]) error
	logger     *slog.Logger
	metrics    *observability.Metrics
	resume     bool
}

// WithMetrics wires a Metrics instance so every event this observer
// drains is counted and its lag gauged, labeled by this observer's key.
func (o *Simple[T]) WithMetrics(m *observability.Metrics) *Simple[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.metrics = m
	return o
}

// NewSimple builds a Simple observer identified by key, driving cur.
func NewSimple[T types.Item](key string, cur *cursor.Base[T, cursor.Event[T]], logger *slog.Logger) *Simple[T] {
	return &Simple[T]{
		key:      key,
		cur:      cur,
		handlers: make(map[string]func([]cursor.Event[T]) error),
		logger:   logger.With("component", "observer", "key", key),
		resume:   true,
	}
}

// On registers a handler for one event type. Returns the receiver so
// registration can be chained at construction time.
func (o *Simple[T]) On(eventType string, handler func([]cursor.Event[T]) error) *Simple[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers[eventType] = handler
	return o
}

// OnAny registers a catch-all handler used for events whose type has
// no specific handler registered (including cursors with no event
// type at all, where EventType is empty).
func (o *Simple[T]) OnAny(handler func([]cursor.Event[T]) error) *Simple[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.anyHandler = handler
	return o
}

func (o *Simple[T]) UniqueKey() string { return o.key }

func (o *Simple[T]) ShouldResume() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.resume
}

// Call drives the cursor one full pass and dispatches the events it
// produced, grouped by event type, to their registered handlers.
func (o *Simple[T]) Call(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	byType := make(map[string][]cursor.Event[T])
	var order []string
	count := 0

	err := o.cur.Next(ctx, func(e cursor.Event[T]) {
		count++
		if _, ok := byType[e.EventType]; !ok {
			order = append(order, e.EventType)
		}
		byType[e.EventType] = append(byType[e.EventType], e)
		if o.metrics != nil {
			o.metrics.ObserveEvent(o.key, e.EventType, e.EventTime)
		}
	})
	o.resume = count > 0
	if err != nil {
		o.logger.Error("cursor fetch failed", "error", err)
		return err
	}

	o.logger.Debug("drained cursor", "events", count)
	for _, et := range order {
		handler := o.handlers[et]
		if handler == nil {
			handler = o.anyHandler
		}
		if handler == nil {
			continue
		}
		if err := handler(byType[et]); err != nil {
			return err
		}
	}
	return nil
}

// Inject copies other's persisted cursor state into this observer's
// cursor, provided other is also a *Simple[T]. Mismatched types are a
// no-op — the Pipeline only ever injects an observer's own saved
// counterpart.
func (o *Simple[T]) Inject(other Observer) {
	so, ok := other.(*Simple[T])
	if !ok {
		return
	}
	o.cur.Inject(so.cur)
}

func (o *Simple[T]) MarshalState() ([]byte, error) {
	return json.Marshal(o.cur.GetState())
}

func (o *Simple[T]) UnmarshalState(data []byte) error {
	var s cursor.State
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.cur.InjectState(s)
	return nil
}
