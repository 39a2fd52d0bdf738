package cursor

import (
	"fmt"

	"github.com/IshaanNene/gocrowd/internal/types"
)

// ParseAssignmentEventType coerces a bare string (as arrives from
// config or a CLI flag) into an AssignmentEventType, failing
// construction on an unrecognized value.
func ParseAssignmentEventType(s string) (types.AssignmentEventType, error) {
	t := types.AssignmentEventType(s)
	if _, ok := t.TimeFieldFor(); !ok {
		return "", fmt.Errorf("%w: assignment event type %q", types.ErrUnknownEvent, s)
	}
	return t, nil
}

// ParseUserSkillEventType coerces a bare string into a
// UserSkillEventType, failing construction on an unrecognized value.
func ParseUserSkillEventType(s string) (types.UserSkillEventType, error) {
	t := types.UserSkillEventType(s)
	if _, ok := t.TimeFieldFor(); !ok {
		return "", fmt.Errorf("%w: user skill event type %q", types.ErrUnknownEvent, s)
	}
	return t, nil
}

// AssignmentCursor iterates Assignment events of one event type (e.g.
// every "ACCEPTED" event), sorted on that event type's time key.
type AssignmentCursor struct {
	*Base[*types.Assignment, Event[*types.Assignment]]
	EventType types.AssignmentEventType
}

// NewAssignmentCursor builds an AssignmentCursor for eventType.
func NewAssignmentCursor(fetch FetchFunc[*types.Assignment], eventType types.AssignmentEventType, req types.SearchRequest) (*AssignmentCursor, error) {
	timeField, ok := eventType.TimeFieldFor()
	if !ok {
		return nil, fmt.Errorf("%w: assignment event type %q", types.ErrUnknownEvent, eventType)
	}
	construct := func(item *types.Assignment) Event[*types.Assignment] {
		return Event[*types.Assignment]{Item: item, EventType: string(eventType), EventTime: item.TimeField(timeField)}
	}
	return &AssignmentCursor{Base: NewBase(fetch, timeField, req, construct), EventType: eventType}, nil
}

// TaskCursor iterates Task objects by creation time.
type TaskCursor struct {
	*Base[*types.Task, Event[*types.Task]]
}

func NewTaskCursor(fetch FetchFunc[*types.Task], req types.SearchRequest) *TaskCursor {
	construct := func(item *types.Task) Event[*types.Task] {
		return Event[*types.Task]{Item: item, EventTime: item.TimeField("created")}
	}
	return &TaskCursor{Base: NewBase(fetch, "created", req, construct)}
}

// UserBonusCursor iterates UserBonus objects by creation time.
type UserBonusCursor struct {
	*Base[*types.UserBonus, Event[*types.UserBonus]]
}

func NewUserBonusCursor(fetch FetchFunc[*types.UserBonus], req types.SearchRequest) *UserBonusCursor {
	construct := func(item *types.UserBonus) Event[*types.UserBonus] {
		return Event[*types.UserBonus]{Item: item, EventTime: item.TimeField("created")}
	}
	return &UserBonusCursor{Base: NewBase(fetch, "created", req, construct)}
}

// UserSkillCursor iterates UserSkill events of one event type.
type UserSkillCursor struct {
	*Base[*types.UserSkill, Event[*types.UserSkill]]
	EventType types.UserSkillEventType
}

func NewUserSkillCursor(fetch FetchFunc[*types.UserSkill], eventType types.UserSkillEventType, req types.SearchRequest) (*UserSkillCursor, error) {
	timeField, ok := eventType.TimeFieldFor()
	if !ok {
		return nil, fmt.Errorf("%w: user skill event type %q", types.ErrUnknownEvent, eventType)
	}
	construct := func(item *types.UserSkill) Event[*types.UserSkill] {
		return Event[*types.UserSkill]{Item: item, EventType: string(eventType), EventTime: item.TimeField(timeField)}
	}
	return &UserSkillCursor{Base: NewBase(fetch, timeField, req, construct), EventType: eventType}, nil
}

// UserRestrictionCursor iterates UserRestriction objects by creation time.
type UserRestrictionCursor struct {
	*Base[*types.UserRestriction, Event[*types.UserRestriction]]
}

func NewUserRestrictionCursor(fetch FetchFunc[*types.UserRestriction], req types.SearchRequest) *UserRestrictionCursor {
	construct := func(item *types.UserRestriction) Event[*types.UserRestriction] {
		return Event[*types.UserRestriction]{Item: item, EventTime: item.TimeField("created")}
	}
	return &UserRestrictionCursor{Base: NewBase(fetch, "created", req, construct)}
}

// MessageThreadCursor iterates MessageThread objects by creation time.
type MessageThreadCursor struct {
	*Base[*types.MessageThread, Event[*types.MessageThread]]
}

func NewMessageThreadCursor(fetch FetchFunc[*types.MessageThread], req types.SearchRequest) *MessageThreadCursor {
	construct := func(item *types.MessageThread) Event[*types.MessageThread] {
		return Event[*types.MessageThread]{Item: item, EventTime: item.TimeField("created")}
	}
	return &MessageThreadCursor{Base: NewBase(fetch, "created", req, construct)}
}

// PoolCursor iterates Pool status snapshots by last_started time. It
// supplements the six cursors the distillation named explicitly (see
// SPEC_FULL.md §3 "Supplemental"), grounded in the pool-analytics
// lookups original_source/src/metrics/metrics.py performs.
type PoolCursor struct {
	*Base[*types.Pool, Event[*types.Pool]]
}

func NewPoolCursor(fetch FetchFunc[*types.Pool], req types.SearchRequest) *PoolCursor {
	construct := func(item *types.Pool) Event[*types.Pool] {
		return Event[*types.Pool]{Item: item, EventTime: item.TimeField("last_started")}
	}
	return &PoolCursor{Base: NewBase(fetch, "last_started", req, construct)}
}
