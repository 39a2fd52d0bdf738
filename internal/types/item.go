package types

import "time"

// Item is an opaque record produced by the crowdsourcing platform: an
// assignment, task, user bonus, skill update, restriction, message
// thread or pool snapshot. Cursors never interpret an Item's payload —
// they only need a stable identity and the handful of named
// timestamps they sort and filter on.
type Item interface {
	// ID returns the platform-assigned identifier. Two items with the
	// same ID are the same record, possibly observed at different
	// points in its lifecycle.
	ID() string

	// TimeField returns the value of the named timestamp (e.g.
	// "created", "submitted", "accepted"). Returns the zero time if
	// the field does not apply to this item.
	TimeField(field string) time.Time
}

// AssignmentEventType names a point in an assignment's lifecycle.
// Each one sorts on a different timestamp, set once its event fires.
type AssignmentEventType string

const (
	AssignmentCreated   AssignmentEventType = "CREATED"
	AssignmentSubmitted AssignmentEventType = "SUBMITTED"
	AssignmentAccepted  AssignmentEventType = "ACCEPTED"
	AssignmentRejected  AssignmentEventType = "REJECTED"
	AssignmentSkipped   AssignmentEventType = "SKIPPED"
	AssignmentExpired   AssignmentEventType = "EXPIRED"
)

// assignmentTimeFields maps each event type to the time field an
// AssignmentCursor for that event sorts on.
var assignmentTimeFields = map[AssignmentEventType]string{
	AssignmentCreated:   "created",
	AssignmentSubmitted: "submitted",
	AssignmentAccepted:  "accepted",
	AssignmentRejected:  "rejected",
	AssignmentSkipped:   "skipped",
	AssignmentExpired:   "expired",
}

// TimeFieldFor returns the time field name an AssignmentCursor watching
// this event type sorts on, and whether the event type is recognized.
func (t AssignmentEventType) TimeFieldFor() (string, bool) {
	f, ok := assignmentTimeFields[t]
	return f, ok
}

// Assignment is a single worker's submission against a task suite.
type Assignment struct {
	AssignmentID string
	PoolID       string
	UserID       string
	Status       string
	Times        map[string]time.Time
}

func (a *Assignment) ID() string                        { return a.AssignmentID }
func (a *Assignment) TimeField(field string) time.Time   { return a.Times[field] }

// Task is a single work item offered inside a pool.
type Task struct {
	TaskID  string
	PoolID  string
	Created time.Time
}

func (t *Task) ID() string                      { return t.TaskID }
func (t *Task) TimeField(field string) time.Time {
	if field == "created" {
		return t.Created
	}
	return time.Time{}
}

// UserBonus is a bonus payment credited to a performer.
type UserBonus struct {
	BonusID string
	UserID  string
	Created time.Time
}

func (b *UserBonus) ID() string                       { return b.BonusID }
func (b *UserBonus) TimeField(field string) time.Time {
	if field == "created" {
		return b.Created
	}
	return time.Time{}
}

// UserSkillEventType names a point in a skill value's lifecycle.
type UserSkillEventType string

const (
	UserSkillCreated  UserSkillEventType = "CREATED"
	UserSkillModified UserSkillEventType = "MODIFIED"
)

var userSkillTimeFields = map[UserSkillEventType]string{
	UserSkillCreated:  "created",
	UserSkillModified: "modified",
}

func (t UserSkillEventType) TimeFieldFor() (string, bool) {
	f, ok := userSkillTimeFields[t]
	return f, ok
}

// UserSkill is a performer's value for a single skill.
type UserSkill struct {
	SkillID string
	UserID  string
	Value   float64
	Times   map[string]time.Time
}

func (s *UserSkill) ID() string                      { return s.SkillID }
func (s *UserSkill) TimeField(field string) time.Time { return s.Times[field] }

// UserRestriction is a scope limiting a performer's access to work.
type UserRestriction struct {
	RestrictionID string
	UserID        string
	Scope         string
	Created       time.Time
}

func (r *UserRestriction) ID() string                      { return r.RestrictionID }
func (r *UserRestriction) TimeField(field string) time.Time {
	if field == "created" {
		return r.Created
	}
	return time.Time{}
}

// MessageThread is a conversation between a requester and performers.
type MessageThread struct {
	ThreadID string
	Topic    string
	Created  time.Time
}

func (m *MessageThread) ID() string                      { return m.ThreadID }
func (m *MessageThread) TimeField(field string) time.Time {
	if field == "created" {
		return m.Created
	}
	return time.Time{}
}

// Pool is a periodic snapshot of a pool's completion state, consumed
// by the supplemental PoolCursor (see SPEC_FULL.md §3 "Supplemental").
type Pool struct {
	PoolID      string
	Status      string
	LastStarted time.Time
}

func (p *Pool) ID() string                      { return p.PoolID }
func (p *Pool) TimeField(field string) time.Time {
	if field == "last_started" {
		return p.LastStarted
	}
	return time.Time{}
}
