// Package storage implements the Pipeline's pluggable checkpoint
// backend: a named advisory lock plus load/save/cleanup over
// per-observer serialized state, keyed by pipeline and observer
// identity (SPEC_FULL.md §6 "Storage interface").
package storage

import "context"

// Lock is a scoped advisory lock handle returned by Storage.Lock.
// Callers release it by calling Unlock once their critical section —
// one Pipeline iteration — ends.
type Lock interface {
	Unlock(ctx context.Context) error
}

// Storage persists and reloads per-observer checkpoint state and
// offers a named advisory lock serializing pipeline instances that
// share a pipeline_key across processes.
type Storage interface {
	// Lock acquires a named advisory lock, blocking until available or
	// ctx is cancelled.
	Lock(ctx context.Context, key string) (Lock, error)

	// Load returns the saved state for each of observerKeys found in
	// storage, keyed by observer key. Observer keys with no saved
	// state are simply absent from the result — this is not an error.
	Load(ctx context.Context, pipelineKey string, observerKeys []string) (map[string][]byte, error)

	// Save persists the given observer states, keyed by observer key,
	// under pipelineKey.
	Save(ctx context.Context, pipelineKey string, states map[string][]byte) error

	// Cleanup deletes persisted entries for observerKeys under
	// pipelineKey. It is called once the pipeline has verified
	// quiescence and is about to terminate; callers treat its errors
	// as best-effort (log and continue).
	Cleanup(ctx context.Context, pipelineKey string, observerKeys []string, lock Lock) error
}
