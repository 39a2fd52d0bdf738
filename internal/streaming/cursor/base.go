// Package cursor implements resumable, time-ordered, deduplicating
// iteration over a paginated remote collection (BaseCursor, its
// typed variants, and the ById sub-cursor used to drain oversized
// timestamp buckets).
package cursor

import (
	"context"
	"sync"
	"time"

	"github.com/IshaanNene/gocrowd/internal/types"
)

// DatetimeMin is the sentinel lower bound every cursor's T_gte is
// seeded with when the caller supplies no floor of its own. It
// compares less than any timestamp a real item can carry.
var DatetimeMin = time.Unix(0, 0).UTC()

// Page is one page of a remote collection response.
type Page[T types.Item] struct {
	Items   []T
	HasMore bool
}

// FetchFunc issues one paginated request against the remote platform,
// sorted by the named field ("id" or a time field).
type FetchFunc[T types.Item] func(ctx context.Context, req types.SearchRequest, sort string) (Page[T], error)

// EventConstructor builds the event yielded for a freshly-seen item.
type EventConstructor[T types.Item, E any] func(item T) E

// State is a cursor's externally observable, persistable position:
// the next request to issue and the set of ids still guarding against
// duplicate delivery. It is what Storage saves and loads, and what
// Inject copies between cursor instances.
type State struct {
	Request types.SearchRequest
	SeenIDs map[string]struct{}
}

func (s State) clone() State {
	seen := make(map[string]struct{}, len(s.SeenIDs))
	for id := range s.SeenIDs {
		seen[id] = struct{}{}
	}
	return State{Request: s.Request, SeenIDs: seen}
}

// Base is a resumable, time-ordered, deduplicating cursor over one
// remote collection. It implements the algorithm from SPEC_FULL.md
// §4.2: per page, advance T_gte as items are emitted, trim seen_ids to
// the last page once a page is fully processed, and delegate to the
// ById sub-cursor whenever an entire page shares one timestamp so a
// bucket larger than one page is still drained without gaps.
type Base[T types.Item, E any] struct {
	mu        sync.Mutex
	fetch     FetchFunc[T]
	timeField string
	construct EventConstructor[T, E]

	request  types.SearchRequest
	prevPage *Page[T]
	seenIDs  map[string]struct{}
}

// NewBase constructs a cursor over fetch, sorting and filtering on
// timeField, starting from req. If req carries no T_gte, DatetimeMin
// is used so the frontier is always well-defined.
func NewBase[T types.Item, E any](fetch FetchFunc[T], timeField string, req types.SearchRequest, construct EventConstructor[T, E]) *Base[T, E] {
	if _, ok := req.Gte(); !ok {
		req = req.WithGte(DatetimeMin)
	}
	return &Base[T, E]{
		fetch:     fetch,
		timeField: timeField,
		construct: construct,
		request:   req,
		seenIDs:   make(map[string]struct{}),
	}
}

// Next drives the cursor through every page currently available,
// invoking emit for each newly-seen event, until the remote collection
// reports no further data for this pass (an empty page, or has_more
// false). It returns when the pass is exhausted or the fetch errors;
// on error the fetch error propagates unchanged and the cursor's state
// reflects everything emitted before the failure, so a later call
// resumes from there.
func (c *Base[T, E]) Next(ctx context.Context, emit func(E)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		page, err := c.fetch(ctx, c.request, c.timeField)
		if err != nil {
			return err
		}
		if len(page.Items) == 0 {
			return nil
		}

		maxTime := page.Items[len(page.Items)-1].TimeField(c.timeField)
		pageCopy := page
		c.prevPage = &pageCopy

		for _, item := range page.Items {
			if _, ok := c.seenIDs[item.ID()]; ok {
				continue
			}
			c.request = c.request.WithGte(item.TimeField(c.timeField))
			c.seenIDs[item.ID()] = struct{}{}
			emit(c.construct(item))
		}

		if !page.HasMore {
			return nil
		}

		if page.Items[0].TimeField(c.timeField).Equal(maxTime) {
			fixed := c.request.WithLte(maxTime)
			drain := newByID(c.fetch, fixed)
			if err := drain.run(ctx, func(item T) {
				if _, ok := c.seenIDs[item.ID()]; ok {
					return
				}
				c.seenIDs[item.ID()] = struct{}{}
				emit(c.construct(item))
			}); err != nil {
				return err
			}
			c.request = c.request.WithGt(maxTime)
		}

		trimmed := make(map[string]struct{}, len(page.Items))
		for _, item := range page.Items {
			trimmed[item.ID()] = struct{}{}
		}
		c.seenIDs = trimmed
	}
}

func (c *Base[T, E]) getState() State {
	return State{Request: c.request, SeenIDs: c.seenIDs}.clone()
}

func (c *Base[T, E]) setState(s State) {
	c.request = s.Request
	c.seenIDs = s.SeenIDs
}

// GetState returns a deep copy of the cursor's current position, for
// callers that checkpoint it to Storage.
func (c *Base[T, E]) GetState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getState()
}

// Inject overwrites this cursor's state with a deep copy of other's —
// used by the Pipeline to restore persisted state at startup.
func (c *Base[T, E]) Inject(other *Base[T, E]) {
	other.mu.Lock()
	s := other.getState()
	other.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.setState(s)
}

// InjectState overwrites this cursor's state with a deep copy of s —
// used to restore a State loaded directly from Storage.
func (c *Base[T, E]) InjectState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setState(s.clone())
}

// FetchScope is returned by TryFetchAll: it lets the caller process a
// batch transactionally, accepting the cursor's post-iteration state
// only once processing has succeeded.
type FetchScope[T types.Item, E any] struct {
	cursor    *Base[T, E]
	start     State
	finish    State
	committed bool
	mu        sync.Mutex
}

// Commit accepts the state the iteration pass produced. Safe to call
// at most meaningfully once; later calls (e.g. from a deferred
// Rollback) are no-ops.
func (s *FetchScope[T, E]) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed {
		return
	}
	s.committed = true
	s.cursor.mu.Lock()
	defer s.cursor.mu.Unlock()
	s.cursor.setState(s.finish)
}

// Rollback restores the cursor to its state at scope entry. It is a
// no-op once Commit has run, so callers can unconditionally
// `defer scope.Rollback()` right after a successful TryFetchAll and
// only call Commit on the success path.
func (s *FetchScope[T, E]) Rollback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed {
		return
	}
	s.cursor.mu.Lock()
	defer s.cursor.mu.Unlock()
	s.cursor.setState(s.start)
}

// TryFetchAll runs one full iteration pass, buffering every event
// produced. It leaves the cursor's persisted state exactly as it was
// on entry — regardless of whether the pass succeeds — and returns a
// FetchScope the caller uses to commit the post-iteration state once
// it has finished processing the buffer. If processing never calls
// Commit (e.g. because the caller panics or returns an error first),
// the cursor has not advanced, satisfying the transactional-rollback
// invariant in SPEC_FULL.md §8.
func (c *Base[T, E]) TryFetchAll(ctx context.Context) (*FetchScope[T, E], []E, error) {
	c.mu.Lock()
	start := c.getState()
	c.mu.Unlock()

	var buf []E
	err := c.Next(ctx, func(e E) { buf = append(buf, e) })

	c.mu.Lock()
	finish := c.getState()
	c.setState(start)
	c.mu.Unlock()

	if err != nil {
		return nil, nil, err
	}
	return &FetchScope[T, E]{cursor: c, start: start, finish: finish}, buf, nil
}
