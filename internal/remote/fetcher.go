// Package remote defines the boundary between gocrowd's streaming
// machinery and the crowdsourcing platform it polls: one fetch method
// per typed cursor, a bounded memoized pool-analytics lookup, and an
// in-memory Fake implementation for tests and the bundled example.
package remote

import (
	"context"

	"github.com/IshaanNene/gocrowd/internal/streaming/cursor"
	"github.com/IshaanNene/gocrowd/internal/types"
)

// Fetcher is the full set of paginated list calls the streaming layer
// needs from the platform, one per typed cursor in SPEC_FULL.md §3/§4.1.
// Every method has the cursor.FetchFunc shape so it can be passed
// straight into the matching cursor constructor, optionally wrapped in
// a bridge.SyncAdapter first.
type Fetcher interface {
	FindAssignments(ctx context.Context, req types.SearchRequest, sort string) (cursor.Page[*types.Assignment], error)
	FindTasks(ctx context.Context, req types.SearchRequest, sort string) (cursor.Page[*types.Task], error)
	FindUserBonuses(ctx context.Context, req types.SearchRequest, sort string) (cursor.Page[*types.UserBonus], error)
	FindUserSkills(ctx context.Context, req types.SearchRequest, sort string) (cursor.Page[*types.UserSkill], error)
	FindUserRestrictions(ctx context.Context, req types.SearchRequest, sort string) (cursor.Page[*types.UserRestriction], error)
	FindMessageThreads(ctx context.Context, req types.SearchRequest, sort string) (cursor.Page[*types.MessageThread], error)
	FindPools(ctx context.Context, req types.SearchRequest, sort string) (cursor.Page[*types.Pool], error)
}
