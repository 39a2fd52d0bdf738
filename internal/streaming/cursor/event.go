package cursor

import "time"

// Event wraps an item with the event type that selected it (empty for
// cursors not keyed by event type) and the time value the cursor
// sorted on when it was emitted.
type Event[T any] struct {
	Item      T
	EventType string
	EventTime time.Time
}
