// Package pipeline implements the periodic scheduler that drives a
// registered set of observers, checkpoints their progress to
// pluggable storage, aggregates partial failures, and terminates once
// the whole system reaches quiescence (SPEC_FULL.md §4.5).
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/IshaanNene/gocrowd/internal/observability"
	"github.com/IshaanNene/gocrowd/internal/storage"
	"github.com/IshaanNene/gocrowd/internal/streaming/observer"
	"github.com/IshaanNene/gocrowd/internal/types"
)

// MinSleepSeconds is the default floor on the inter-iteration sleep —
// "allow lock to be taken in concurrent cases" per the source this is
// ported from. WithMinSleep replaces it with any value, higher or
// lower; a lower value risks starving peer instances contending for
// the same storage lock.
const MinSleepSeconds = 10

// pWorker is the scheduler's binding of (name, observer); two workers
// are considered the same iff their names are equal, since name is
// derived deterministically from the observer's unique key.
type pWorker struct {
	name     string
	observer observer.Observer
}

type taskResult struct {
	worker    *pWorker
	startTime time.Time
	err       error
}

// Pipeline is the entry point for gocrowd streaming pipelines: it
// registers observers and calls them periodically while at least one
// may still resume.
type Pipeline struct {
	mu        sync.Mutex
	period    time.Duration
	store     storage.Storage
	name      string
	minSleep  time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
	observers map[observer.Observer]struct{}
	order     []observer.Observer
}

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

// WithPeriod sets the base polling interval. Defaults to 60s.
func WithPeriod(d time.Duration) Option { return func(p *Pipeline) { p.period = d } }

// WithStorage sets the checkpoint backend. Defaults to none, in which
// case the pipeline never persists or restores state.
func WithStorage(s storage.Storage) Option { return func(p *Pipeline) { p.store = s } }

// WithName disambiguates pipelines that would otherwise share an
// identical registered-observer set.
func WithName(name string) Option { return func(p *Pipeline) { p.name = name } }

// WithMinSleep overrides MinSleepSeconds. Implementers may tune it but
// should not default below a value that starves concurrent peers.
func WithMinSleep(d time.Duration) Option { return func(p *Pipeline) { p.minSleep = d } }

// WithMetrics wires a Metrics instance so every iteration is counted.
// Defaults to nil, in which case no metrics are recorded.
func WithMetrics(m *observability.Metrics) Option { return func(p *Pipeline) { p.metrics = m } }

// New builds a Pipeline with period defaulting to 60s and minSleep to
// MinSleepSeconds.
func New(logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		period:    60 * time.Second,
		minSleep:  MinSleepSeconds * time.Second,
		logger:    logger.With("component", "pipeline"),
		observers: make(map[observer.Observer]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register stores the given observer by identity — re-registering the
// same observer is a no-op — and returns it unchanged, so callers can
// write `obs := pipeline.Register(NewSimple(...))`.
func (p *Pipeline) Register(o observer.Observer) observer.Observer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.observers[o]; !ok {
		p.observers[o] = struct{}{}
		p.order = append(p.order, o)
	}
	return o
}

// uniqueKey is (ClassName, name|"", sorted_tuple(observer_unique_keys)),
// used as the storage key and the advisory-lock key.
func (p *Pipeline) uniqueKey() string {
	keys := make([]string, 0, len(p.order))
	for _, o := range p.order {
		keys = append(keys, o.UniqueKey())
	}
	sort.Strings(keys)
	return fmt.Sprintf("Pipeline|%s|%s", p.name, strings.Join(keys, ","))
}

func (p *Pipeline) acquireLock(ctx context.Context, key string) (storage.Lock, error) {
	if p.store == nil {
		return nil, nil
	}
	return p.store.Lock(ctx, key)
}

func (p *Pipeline) releaseLock(ctx context.Context, lock storage.Lock) {
	if lock == nil {
		return
	}
	if err := lock.Unlock(ctx); err != nil {
		p.logger.Error("failed to release lock", "error", err)
	}
}

func (p *Pipeline) loadState(ctx context.Context, pipelineKey string, workers []*pWorker) error {
	if p.store == nil {
		return nil
	}
	p.logger.Info("loading state from storage")
	keys := make([]string, len(workers))
	byName := make(map[string]*pWorker, len(workers))
	for i, w := range workers {
		keys[i] = w.name
		byName[w.name] = w
	}
	saved, err := p.store.Load(ctx, pipelineKey, keys)
	if err != nil {
		return &types.StorageError{Backend: "pipeline", Op: "load", Err: err}
	}
	p.logger.Info("found saved states", "count", len(saved), "total", len(workers))
	for key, state := range saved {
		w, ok := byName[key]
		if !ok {
			continue
		}
		if err := w.observer.UnmarshalState(state); err != nil {
			return &types.StorageError{Backend: "pipeline", Op: "unmarshal", Err: err}
		}
	}
	return nil
}

func (p *Pipeline) saveState(ctx context.Context, pipelineKey string, workers []*pWorker) error {
	if p.store == nil || len(workers) == 0 {
		return nil
	}
	states := make(map[string][]byte, len(workers))
	for _, w := range workers {
		state, err := w.observer.MarshalState()
		if err != nil {
			return &types.StorageError{Backend: "pipeline", Op: "marshal", Err: err}
		}
		states[w.name] = state
	}
	if err := p.store.Save(ctx, pipelineKey, states); err != nil {
		return &types.StorageError{Backend: "pipeline", Op: "save", Err: err}
	}
	p.logger.Info("saved state", "count", len(states))
	return nil
}

func (p *Pipeline) cleanup(ctx context.Context, pipelineKey string, workers []*pWorker, lock storage.Lock) {
	if p.store == nil {
		return
	}
	keys := make([]string, len(workers))
	for i, w := range workers {
		keys[i] = w.name
	}
	if err := p.store.Cleanup(ctx, pipelineKey, keys, lock); err != nil {
		p.logger.Error("cleanup failed, ignoring", "error", err)
	}
}

// Run executes the scheduling loop described in SPEC_FULL.md §4.5
// until every registered observer has reported quiescence across two
// consecutive passes, or an observer invocation fails, in which case
// Run returns a *types.ComplexError aggregating every failure from
// that iteration.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	if len(p.order) == 0 {
		p.mu.Unlock()
		return types.ErrNoObservers
	}
	workers := make([]*pWorker, len(p.order))
	byName := make(map[string]*pWorker, len(p.order))
	for i, o := range p.order {
		w := &pWorker{name: o.UniqueKey(), observer: o}
		workers[i] = w
		byName[w.name] = w
	}
	pipelineKey := p.uniqueKey()
	p.mu.Unlock()

	pending := make(map[string]time.Time, len(workers))
	for _, w := range workers {
		pending[w.name] = time.Time{} // zero time: due immediately
	}

	results := make(chan taskResult, len(workers))
	waitingCount := 0
	checkMode := false

	for iteration := 1; ; iteration++ {
		p.logger.Info("iteration", "n", iteration)
		if p.metrics != nil {
			p.metrics.ObserveIteration()
		}

		lock, err := p.acquireLock(ctx, pipelineKey)
		if err != nil {
			return err
		}

		if iteration == 1 {
			if err := p.loadState(ctx, pipelineKey, workers); err != nil {
				p.releaseLock(ctx, lock)
				return err
			}
		}

		iterationStart := time.Now()

		var toStart []*pWorker
		stillPending := make(map[string]time.Time, len(pending))
		for _, w := range workers {
			due, ok := pending[w.name]
			if !ok {
				continue
			}
			if !due.After(iterationStart) || checkMode {
				toStart = append(toStart, w)
			} else {
				stillPending[w.name] = due
			}
		}
		pending = stillPending

		p.logger.Info("observers to run", "count", len(toStart))
		for _, w := range toStart {
			waitingCount++
			go func(w *pWorker, start time.Time) {
				err := w.observer.Call(ctx)
				results <- taskResult{worker: w, startTime: start, err: err}
			}(w, iterationStart)
		}

		var done []taskResult
		if checkMode {
			p.logger.Info("check resume all")
			done, err = awaitN(ctx, results, waitingCount)
		} else {
			done, err = awaitAtLeastOne(ctx, results, waitingCount)
		}
		if err != nil {
			p.releaseLock(ctx, lock)
			return err
		}
		waitingCount -= len(done)

		if err := p.processDone(ctx, pipelineKey, done, pending); err != nil {
			p.releaseLock(ctx, lock)
			return err
		}

		if noOneShouldResume(workers) {
			if checkMode {
				p.cleanup(ctx, pipelineKey, workers, lock)
				p.releaseLock(ctx, lock)
				p.logger.Info("finished")
				return nil
			}

			p.logger.Info("no one should resume yet, waiting for remaining")
			if waitingCount > 0 {
				more, err := awaitN(ctx, results, waitingCount)
				if err != nil {
					p.releaseLock(ctx, lock)
					return err
				}
				waitingCount -= len(more)
				if err := p.processDone(ctx, pipelineKey, more, pending); err != nil {
					p.releaseLock(ctx, lock)
					return err
				}
			}
			if noOneShouldResume(workers) {
				checkMode = true
			}
		} else {
			checkMode = false
		}

		var nextSleep time.Time
		if checkMode {
			nextSleep = maxPending(pending)
		} else {
			nextSleep = minPending(pending)
		}

		p.releaseLock(ctx, lock)

		sleepFor := time.Until(nextSleep)
		if sleepFor < p.minSleep {
			sleepFor = p.minSleep
		}
		p.logger.Info("sleeping", "seconds", sleepFor.Seconds())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
	}
}

// processDone checkpoints every successful worker and reschedules it
// at startTime+period; errored workers are NOT rescheduled and NOT
// checkpointed, per the "aggregate, don't advance failed workers"
// failure semantics.
func (p *Pipeline) processDone(ctx context.Context, pipelineKey string, done []taskResult, pending map[string]time.Time) error {
	p.logger.Info("done count", "n", len(done))
	var succeeded []*pWorker
	var errs []error
	for _, r := range done {
		if r.err != nil {
			p.logger.Error("observer failed", "worker", r.worker.name, "error", r.err)
			errs = append(errs, r.err)
			continue
		}
		succeeded = append(succeeded, r.worker)
		pending[r.worker.name] = r.startTime.Add(p.period)
	}

	if err := p.saveState(ctx, pipelineKey, succeeded); err != nil {
		return err
	}

	if len(errs) > 0 {
		return &types.ComplexError{Errors: errs}
	}
	return nil
}

func noOneShouldResume(workers []*pWorker) bool {
	for _, w := range workers {
		if w.observer.ShouldResume() {
			return false
		}
	}
	return true
}

func maxPending(pending map[string]time.Time) time.Time {
	var max time.Time
	for _, t := range pending {
		if t.After(max) {
			max = t
		}
	}
	return max
}

func minPending(pending map[string]time.Time) time.Time {
	var min time.Time
	first := true
	for _, t := range pending {
		if first || t.Before(min) {
			min = t
			first = false
		}
	}
	return min
}

// awaitAtLeastOne blocks for at least one result, then greedily drains
// any already-ready results without blocking — the Go rendering of
// asyncio.wait(..., return_when=FIRST_COMPLETED).
func awaitAtLeastOne(ctx context.Context, results chan taskResult, waitingCount int) ([]taskResult, error) {
	if waitingCount == 0 {
		return nil, nil
	}
	var done []taskResult
	select {
	case r := <-results:
		done = append(done, r)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	for {
		select {
		case r := <-results:
			done = append(done, r)
		default:
			return done, nil
		}
	}
}

// awaitN blocks until exactly n results have arrived — the Go
// rendering of asyncio.wait(..., return_when=ALL_COMPLETED) over a
// known-size set of in-flight tasks.
func awaitN(ctx context.Context, results chan taskResult, n int) ([]taskResult, error) {
	done := make([]taskResult, 0, n)
	for i := 0; i < n; i++ {
		select {
		case r := <-results:
			done = append(done, r)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return done, nil
}
