package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/IshaanNene/gocrowd/internal/streaming/observer"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeObserver is a minimal observer.Observer for pipeline tests: it
// reports ShouldResume according to a scripted sequence of booleans
// (one per Call), and optionally errors on a given call index.
type fakeObserver struct {
	key       string
	resumes   []bool
	failAt    int // -1 means never
	callCount int
}

func (f *fakeObserver) Call(ctx context.Context) error {
	idx := f.callCount
	f.callCount++
	if f.failAt >= 0 && idx == f.failAt {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeObserver) ShouldResume() bool {
	if f.callCount == 0 {
		return true
	}
	i := f.callCount - 1
	if i >= len(f.resumes) {
		return f.resumes[len(f.resumes)-1]
	}
	return f.resumes[i]
}

func (f *fakeObserver) UniqueKey() string                 { return f.key }
func (f *fakeObserver) Inject(other observer.Observer)    {}
func (f *fakeObserver) MarshalState() ([]byte, error)     { return []byte("{}"), nil }
func (f *fakeObserver) UnmarshalState(data []byte) error  { return nil }

// S5 — Pipeline quiescence: two observers both report ShouldResume
// false from their first call; the pipeline should run a normal
// iteration, enter check_mode, verify quiescence, and terminate.
func TestPipelineQuiescence(t *testing.T) {
	a := &fakeObserver{key: "a", resumes: []bool{false}, failAt: -1}
	b := &fakeObserver{key: "b", resumes: []bool{false}, failAt: -1}

	p := New(testLogger, WithPeriod(50*time.Millisecond), WithMinSleep(10*time.Millisecond))
	p.Register(a)
	p.Register(b)

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 10*time.Millisecond {
		t.Fatalf("expected at least one min-sleep wait before check_mode iteration, elapsed=%v", elapsed)
	}
	if a.callCount < 2 || b.callCount < 2 {
		t.Fatalf("expected both observers called at least twice (normal + check_mode), got a=%d b=%d", a.callCount, b.callCount)
	}
}

// S6 — Partial failure: observer A succeeds, B fails; Run returns a
// combined error containing B's failure.
func TestPipelinePartialFailure(t *testing.T) {
	a := &fakeObserver{key: "a", resumes: []bool{false}, failAt: -1}
	b := &fakeObserver{key: "b", resumes: []bool{true}, failAt: 0}

	p := New(testLogger, WithPeriod(50*time.Millisecond), WithMinSleep(10*time.Millisecond))
	p.Register(a)
	p.Register(b)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := p.Run(ctx)
	if err == nil {
		t.Fatalf("expected an error from the failing observer")
	}
}

func TestPipelineNoObserversIsError(t *testing.T) {
	p := New(testLogger)
	if err := p.Run(context.Background()); err == nil {
		t.Fatalf("expected ErrNoObservers when nothing is registered")
	}
}

func TestPipelineRegisterIsIdempotentByIdentity(t *testing.T) {
	a := &fakeObserver{key: "a", resumes: []bool{false}}
	p := New(testLogger)
	p.Register(a)
	p.Register(a)
	if len(p.order) != 1 {
		t.Fatalf("expected re-registering the same observer to be a no-op, got %d entries", len(p.order))
	}
}
