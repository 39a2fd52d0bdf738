package remote

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/IshaanNene/gocrowd/internal/streaming/cursor"
	"github.com/IshaanNene/gocrowd/internal/types"
)

// Fake is an in-memory Fetcher for tests and the bundled example: it
// holds one slice per item type and serves FindX calls by filtering,
// sorting, and paging over it exactly as the real platform would,
// including the tie-break bucket the ById sub-cursor drains — set
// PageSize small in tests to exercise that path deliberately.
type Fake struct {
	mu sync.Mutex

	PageSize int

	assignments      []*types.Assignment
	tasks            []*types.Task
	userBonuses      []*types.UserBonus
	userSkills       []*types.UserSkill
	userRestrictions []*types.UserRestriction
	messageThreads   []*types.MessageThread
	pools            []*types.Pool
}

// NewFake builds a Fake with the given page size (items per response
// page before has_more is reported true).
func NewFake(pageSize int) *Fake {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Fake{PageSize: pageSize}
}

// NewAssignmentID mints a synthetic identifier suitable for seeding
// fixtures (exported so tests and the example program share one
// source of unique ids).
func NewAssignmentID() string { return uuid.NewString() }

func (f *Fake) AddAssignment(a *types.Assignment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments = append(f.assignments, a)
}

func (f *Fake) AddTask(t *types.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, t)
}

func (f *Fake) AddUserBonus(b *types.UserBonus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userBonuses = append(f.userBonuses, b)
}

func (f *Fake) AddUserSkill(s *types.UserSkill) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userSkills = append(f.userSkills, s)
}

func (f *Fake) AddUserRestriction(r *types.UserRestriction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userRestrictions = append(f.userRestrictions, r)
}

func (f *Fake) AddMessageThread(m *types.MessageThread) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messageThreads = append(f.messageThreads, m)
}

func (f *Fake) AddPool(p *types.Pool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pools = append(f.pools, p)
}

func (f *Fake) FindAssignments(_ context.Context, req types.SearchRequest, sort string) (cursor.Page[*types.Assignment], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]*types.Assignment, len(f.assignments))
	copy(items, f.assignments)
	return paginate(items, req, sort, f.PageSize, matchesAssignment), nil
}

func (f *Fake) FindTasks(_ context.Context, req types.SearchRequest, sort string) (cursor.Page[*types.Task], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]*types.Task, len(f.tasks))
	copy(items, f.tasks)
	return paginate(items, req, sort, f.PageSize, matchesTask), nil
}

func (f *Fake) FindUserBonuses(_ context.Context, req types.SearchRequest, sort string) (cursor.Page[*types.UserBonus], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]*types.UserBonus, len(f.userBonuses))
	copy(items, f.userBonuses)
	return paginate(items, req, sort, f.PageSize, matchesUserBonus), nil
}

func (f *Fake) FindUserSkills(_ context.Context, req types.SearchRequest, sort string) (cursor.Page[*types.UserSkill], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]*types.UserSkill, len(f.userSkills))
	copy(items, f.userSkills)
	return paginate(items, req, sort, f.PageSize, matchesUserSkill), nil
}

func (f *Fake) FindUserRestrictions(_ context.Context, req types.SearchRequest, sort string) (cursor.Page[*types.UserRestriction], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]*types.UserRestriction, len(f.userRestrictions))
	copy(items, f.userRestrictions)
	return paginate(items, req, sort, f.PageSize, matchesUserRestriction), nil
}

func (f *Fake) FindMessageThreads(_ context.Context, req types.SearchRequest, sort string) (cursor.Page[*types.MessageThread], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]*types.MessageThread, len(f.messageThreads))
	copy(items, f.messageThreads)
	return paginate(items, req, sort, f.PageSize, matchesMessageThread), nil
}

func (f *Fake) FindPools(_ context.Context, req types.SearchRequest, sort string) (cursor.Page[*types.Pool], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]*types.Pool, len(f.pools))
	copy(items, f.pools)
	return paginate(items, req, sort, f.PageSize, matchesPool), nil
}

func matchesAssignment(a *types.Assignment, req types.SearchRequest) bool {
	if v, ok := req.Filter("pool_id"); ok && a.PoolID != v {
		return false
	}
	if v, ok := req.Filter("user_id"); ok && a.UserID != v {
		return false
	}
	if v, ok := req.Filter("status"); ok && a.Status != v {
		return false
	}
	return true
}

func matchesTask(t *types.Task, req types.SearchRequest) bool {
	if v, ok := req.Filter("pool_id"); ok && t.PoolID != v {
		return false
	}
	return true
}

func matchesUserBonus(b *types.UserBonus, req types.SearchRequest) bool {
	if v, ok := req.Filter("user_id"); ok && b.UserID != v {
		return false
	}
	return true
}

func matchesUserSkill(s *types.UserSkill, req types.SearchRequest) bool {
	if v, ok := req.Filter("user_id"); ok && s.UserID != v {
		return false
	}
	return true
}

func matchesUserRestriction(r *types.UserRestriction, req types.SearchRequest) bool {
	if v, ok := req.Filter("user_id"); ok && r.UserID != v {
		return false
	}
	if v, ok := req.Filter("scope"); ok && r.Scope != v {
		return false
	}
	return true
}

func matchesMessageThread(_ *types.MessageThread, _ types.SearchRequest) bool { return true }

func matchesPool(p *types.Pool, req types.SearchRequest) bool {
	if v, ok := req.Filter("status"); ok && p.Status != v {
		return false
	}
	if v, ok := req.Filter("pool_id"); ok && p.PoolID != v {
		return false
	}
	return true
}

// paginate sorts items ascending by the cursor's sort field (by id
// when sortField == "id", else by the named time field), applies req's
// bounds and the given filter predicate, then caps the result to
// pageSize, reporting has_more when it truncated.
func paginate[T types.Item](items []T, req types.SearchRequest, sortField string, pageSize int, keep func(T, types.SearchRequest) bool) cursor.Page[T] {
	if sortField == "id" {
		sort.SliceStable(items, func(i, j int) bool { return items[i].ID() < items[j].ID() })
	} else {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].TimeField(sortField).Before(items[j].TimeField(sortField))
		})
	}

	var filtered []T
	for _, it := range items {
		if !keep(it, req) {
			continue
		}
		if sortField == "id" {
			if idGt, ok := req.IDGt(); ok && it.ID() <= idGt {
				continue
			}
			t := it.TimeField(req.TimeField())
			if gte, ok := req.Gte(); ok && t.Before(gte) {
				continue
			}
			if gt, ok := req.Gt(); ok && !t.After(gt) {
				continue
			}
			if lte, ok := req.Lte(); ok && t.After(lte) {
				continue
			}
		} else {
			t := it.TimeField(sortField)
			if gte, ok := req.Gte(); ok && t.Before(gte) {
				continue
			}
			if gt, ok := req.Gt(); ok && !t.After(gt) {
				continue
			}
			if lte, ok := req.Lte(); ok && t.After(lte) {
				continue
			}
		}
		filtered = append(filtered, it)
	}

	hasMore := false
	if len(filtered) > pageSize {
		hasMore = true
		filtered = filtered[:pageSize]
	}
	return cursor.Page[T]{Items: filtered, HasMore: hasMore}
}
