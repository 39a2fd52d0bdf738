package transform

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/IshaanNene/gocrowd/internal/streaming/cursor"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeItem struct {
	id string
	t  time.Time
}

func (f fakeItem) ID() string                       { return f.id }
func (f fakeItem) TimeField(field string) time.Time { return f.t }

func event(id string, eventType string) cursor.Event[fakeItem] {
	return cursor.Event[fakeItem]{Item: fakeItem{id: id, t: time.Unix(1, 0)}, EventType: eventType, EventTime: time.Unix(1, 0)}
}

func TestChainDedupByIDDropsRepeats(t *testing.T) {
	c := NewChain[fakeItem](testLogger).Use(DedupByID[fakeItem]())

	out, err := c.Process([]cursor.Event[fakeItem]{event("a", "SEEN"), event("b", "SEEN"), event("a", "SEEN")})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(out))
	}
}

func TestChainFilterEventTypeKeepsOnlyAllowed(t *testing.T) {
	c := NewChain[fakeItem](testLogger).Use(FilterEventType[fakeItem]("ACCEPTED"))

	out, err := c.Process([]cursor.Event[fakeItem]{event("a", "ACCEPTED"), event("b", "REJECTED")})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 1 || out[0].Item.ID() != "a" {
		t.Fatalf("expected only the accepted event to survive, got %+v", out)
	}
}

func TestChainStagePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	c := NewChain[fakeItem](testLogger).Use(NewMiddlewareFunc[fakeItem]("boom", func(e cursor.Event[fakeItem]) (cursor.Event[fakeItem], bool, error) {
		return e, false, boom
	}))

	_, err := c.Process([]cursor.Event[fakeItem]{event("a", "SEEN")})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom error, got %v", err)
	}
}

func TestChainHandlerSkipsCallWhenAllDropped(t *testing.T) {
	called := false
	c := NewChain[fakeItem](testLogger).Use(FilterEventType[fakeItem]("ACCEPTED"))
	h := c.Handler(func(events []cursor.Event[fakeItem]) error {
		called = true
		return nil
	})

	if err := h([]cursor.Event[fakeItem]{event("a", "REJECTED")}); err != nil {
		t.Fatalf("Handler: %v", err)
	}
	if called {
		t.Fatalf("expected wrapped handler not to be called when every event is dropped")
	}
}
