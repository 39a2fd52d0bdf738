package types

import "time"

// SearchRequest is an immutable filter set sent to the remote
// platform. Every With* method returns a new value with one predicate
// replaced — mirroring attrs.evolve in the Python source this package
// is grounded on — so cursors can hold a request and hand out
// modified copies without ever mutating the original.
type SearchRequest struct {
	timeField string
	gte       *time.Time
	gt        *time.Time
	lte       *time.Time
	idGt      string
	filters   map[string]any
}

// NewSearchRequest returns a zero-valued request scoped to timeField
// (e.g. "created", "submitted") — the field BaseCursor's predicates
// (Gte/Gt/Lte) are understood to apply to.
func NewSearchRequest(timeField string) SearchRequest {
	return SearchRequest{timeField: timeField}
}

func (r SearchRequest) TimeField() string { return r.timeField }

func (r SearchRequest) Gte() (time.Time, bool) {
	if r.gte == nil {
		return time.Time{}, false
	}
	return *r.gte, true
}

func (r SearchRequest) Gt() (time.Time, bool) {
	if r.gt == nil {
		return time.Time{}, false
	}
	return *r.gt, true
}

func (r SearchRequest) Lte() (time.Time, bool) {
	if r.lte == nil {
		return time.Time{}, false
	}
	return *r.lte, true
}

func (r SearchRequest) IDGt() (string, bool) {
	return r.idGt, r.idGt != ""
}

// Filter returns an auxiliary scoping value (e.g. "pool_id") attached
// via WithFilter.
func (r SearchRequest) Filter(key string) (any, bool) {
	v, ok := r.filters[key]
	return v, ok
}

// WithGte returns a copy with the ">=" time predicate replaced, and
// the "<=", ">" and id_gt predicates cleared — setting a new floor
// always starts a fresh page.
func (r SearchRequest) WithGte(t time.Time) SearchRequest {
	c := r.clone()
	c.gte = &t
	c.gt = nil
	c.lte = nil
	c.idGt = ""
	return c
}

// WithGt returns a copy with the exclusive ">" time predicate set and
// every other predicate cleared — used by BaseCursor to step strictly
// past a fully-drained timestamp bucket.
func (r SearchRequest) WithGt(t time.Time) SearchRequest {
	c := r.clone()
	c.gt = &t
	c.gte = nil
	c.lte = nil
	c.idGt = ""
	return c
}

// WithLte returns a copy with the "<=" time predicate replaced,
// leaving the rest of the request untouched — used to fix the upper
// bound of an id-sorted drain of a single timestamp bucket.
func (r SearchRequest) WithLte(t time.Time) SearchRequest {
	c := r.clone()
	c.lte = &t
	return c
}

// WithIDGt returns a copy with the id_gt pagination cursor replaced.
func (r SearchRequest) WithIDGt(id string) SearchRequest {
	c := r.clone()
	c.idGt = id
	return c
}

// WithFilter returns a copy with one auxiliary scoping value set (e.g.
// pool_id, user_id). Filters are never touched by cursor paging logic.
func (r SearchRequest) WithFilter(key string, value any) SearchRequest {
	c := r.clone()
	c.filters = make(map[string]any, len(r.filters)+1)
	for k, v := range r.filters {
		c.filters[k] = v
	}
	c.filters[key] = value
	return c
}

func (r SearchRequest) clone() SearchRequest {
	return SearchRequest{
		timeField: r.timeField,
		gte:       r.gte,
		gt:        r.gt,
		lte:       r.lte,
		idGt:      r.idGt,
		filters:   r.filters,
	}
}

// Filters returns a copy of every auxiliary scoping value attached to
// this request, for callers that need to serialize it whole.
func (r SearchRequest) Filters() map[string]any {
	out := make(map[string]any, len(r.filters))
	for k, v := range r.filters {
		out[k] = v
	}
	return out
}

// RestoreSearchRequest reconstructs a SearchRequest from its parts —
// used when deserializing a checkpointed cursor state, where the
// predicates were persisted as plain fields rather than built up
// through the With* evolution methods.
func RestoreSearchRequest(timeField string, gte, gt, lte *time.Time, idGt string, filters map[string]any) SearchRequest {
	return SearchRequest{timeField: timeField, gte: gte, gt: gt, lte: lte, idGt: idGt, filters: filters}
}
