package cursor

import (
	"context"
	"testing"
	"time"

	"github.com/IshaanNene/gocrowd/internal/types"
)

// fakeItem is a minimal types.Item used only by these tests.
type fakeItem struct {
	id string
	t  time.Time
}

func (f fakeItem) ID() string                      { return f.id }
func (f fakeItem) TimeField(field string) time.Time { return f.t }

func at(seconds int64) time.Time { return time.Unix(seconds, 0).UTC() }

func identity(item fakeItem) fakeItem { return item }

// sequenceFetch returns one canned Page[fakeItem] per call, in order,
// regardless of the request passed in; it panics if called more times
// than there are pages, since that signals a test wrote the wrong
// expectation rather than a legitimate empty-page terminator.
func sequenceFetch(t *testing.T, pages ...Page[fakeItem]) FetchFunc[fakeItem] {
	i := 0
	return func(ctx context.Context, req types.SearchRequest, sortField string) (Page[fakeItem], error) {
		if i >= len(pages) {
			t.Fatalf("fetch called more times than pages provided (call %d)", i+1)
		}
		p := pages[i]
		i++
		return p, nil
	}
}

func ids(items []fakeItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

func assertEqualIDs(t *testing.T, got []string, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d ids %v, want %d ids %v", len(got), got, len(want), want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("id mismatch at %d: got %v, want %v", i, got, want)
		}
	}
}

// S1 — Simple incremental fetch.
func TestBaseSimpleIncrementalFetch(t *testing.T) {
	fetch := sequenceFetch(t,
		Page[fakeItem]{Items: []fakeItem{{"a", at(1)}, {"b", at(2)}}, HasMore: false},
		Page[fakeItem]{Items: []fakeItem{{"c", at(3)}}, HasMore: false},
	)
	c := NewBase(fetch, "t", types.NewSearchRequest("t"), identity)

	var first []fakeItem
	if err := c.Next(context.Background(), func(e fakeItem) { first = append(first, e) }); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	assertEqualIDs(t, ids(first), []string{"a", "b"})

	var second []fakeItem
	if err := c.Next(context.Background(), func(e fakeItem) { second = append(second, e) }); err != nil {
		t.Fatalf("second Next: %v", err)
	}
	assertEqualIDs(t, ids(second), []string{"c"})
}

// S2 — Bucket overflow: a page fully sharing one timestamp delegates
// to the ById sub-cursor to drain the rest of that bucket.
func TestBaseBucketOverflow(t *testing.T) {
	fetch := sequenceFetch(t,
		// time-sorted page: all three share t=5, has_more true signals
		// more of the bucket remains.
		Page[fakeItem]{Items: []fakeItem{{"x1", at(5)}, {"x2", at(5)}, {"x3", at(5)}}, HasMore: true},
		// id-sorted drain of the t=5 bucket (ById), in id order.
		Page[fakeItem]{Items: []fakeItem{{"x4", at(5)}, {"x5", at(5)}}, HasMore: false},
		// next time-sorted page, strictly past t=5.
		Page[fakeItem]{Items: []fakeItem{{"y1", at(6)}}, HasMore: false},
	)
	c := NewBase(fetch, "t", types.NewSearchRequest("t"), identity)

	var out []fakeItem
	if err := c.Next(context.Background(), func(e fakeItem) { out = append(out, e) }); err != nil {
		t.Fatalf("Next: %v", err)
	}
	assertEqualIDs(t, ids(out), []string{"x1", "x2", "x3", "x4", "x5", "y1"})
}

// S3 — Reordered arrival: a later page may resend an item with the same
// time as the last-seen item; it must be deduplicated.
func TestBaseReorderedArrival(t *testing.T) {
	fetch := sequenceFetch(t,
		Page[fakeItem]{Items: []fakeItem{{"a", at(1)}, {"b", at(2)}}, HasMore: false},
		Page[fakeItem]{Items: []fakeItem{{"c", at(2)}, {"d", at(3)}}, HasMore: false},
	)
	c := NewBase(fetch, "t", types.NewSearchRequest("t"), identity)

	var first []fakeItem
	if err := c.Next(context.Background(), func(e fakeItem) { first = append(first, e) }); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	assertEqualIDs(t, ids(first), []string{"a", "b"})

	var second []fakeItem
	if err := c.Next(context.Background(), func(e fakeItem) { second = append(second, e) }); err != nil {
		t.Fatalf("second Next: %v", err)
	}
	assertEqualIDs(t, ids(second), []string{"c", "d"})
}

// S4 — Transactional rollback: if a caller never commits the scope
// (e.g. it errored out partway through processing the buffer), the
// cursor's persisted state is exactly as it was on entry, and the next
// TryFetchAll reproduces the identical buffer.
func TestBaseTryFetchAllRollsBackWithoutCommit(t *testing.T) {
	fetch := FetchFunc[fakeItem](func(ctx context.Context, req types.SearchRequest, sortField string) (Page[fakeItem], error) {
		return Page[fakeItem]{Items: []fakeItem{{"e1", at(1)}, {"e2", at(2)}}, HasMore: false}, nil
	})
	c := NewBase(fetch, "t", types.NewSearchRequest("t"), identity)

	before := c.GetState()

	// First TryFetchAll succeeds and is never committed by this test,
	// simulating a caller that errors out before calling Commit.
	scope, buf, err := c.TryFetchAll(context.Background())
	if err != nil {
		t.Fatalf("TryFetchAll: %v", err)
	}
	assertEqualIDs(t, ids(buf), []string{"e1", "e2"})
	scope.Rollback()

	after := c.GetState()
	if !sameState(before, after) {
		t.Fatalf("state changed despite rollback: before=%+v after=%+v", before, after)
	}

	// Re-running yields the identical buffer, proving nothing advanced.
	scope2, buf2, err := c.TryFetchAll(context.Background())
	if err != nil {
		t.Fatalf("second TryFetchAll: %v", err)
	}
	assertEqualIDs(t, ids(buf2), []string{"e1", "e2"})
	scope2.Rollback()
}

func sameState(a, b State) bool {
	if len(a.SeenIDs) != len(b.SeenIDs) {
		return false
	}
	for id := range a.SeenIDs {
		if _, ok := b.SeenIDs[id]; !ok {
			return false
		}
	}
	agte, aok := a.Request.Gte()
	bgte, bok := b.Request.Gte()
	return aok == bok && agte.Equal(bgte)
}

// Invariant 4 — seen-set bound: after processing a page of size k,
// |seen_ids| == k (once the pass has fully drained a terminal page).
func TestBaseSeenSetBound(t *testing.T) {
	fetch := sequenceFetch(t,
		Page[fakeItem]{Items: []fakeItem{{"a", at(1)}, {"b", at(2)}, {"c", at(3)}}, HasMore: false},
	)
	c := NewBase(fetch, "t", types.NewSearchRequest("t"), identity)
	if err := c.Next(context.Background(), func(fakeItem) {}); err != nil {
		t.Fatalf("Next: %v", err)
	}
	state := c.GetState()
	if len(state.SeenIDs) != 3 {
		t.Fatalf("expected 3 seen ids, got %d", len(state.SeenIDs))
	}
}

// Injecting a cursor's own copied state into itself is a no-op.
func TestBaseInjectIdentity(t *testing.T) {
	fetch := sequenceFetch(t,
		Page[fakeItem]{Items: []fakeItem{{"a", at(1)}}, HasMore: false},
	)
	c := NewBase(fetch, "t", types.NewSearchRequest("t"), identity)
	if err := c.Next(context.Background(), func(fakeItem) {}); err != nil {
		t.Fatalf("Next: %v", err)
	}
	before := c.GetState()
	c.InjectState(c.GetState())
	after := c.GetState()
	if !sameState(before, after) {
		t.Fatalf("inject(copy_of_state) changed state: before=%+v after=%+v", before, after)
	}
}
