package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes, named after the Python
// ValueError/TypeError distinction the streaming package is ported
// from: construction-time misuse is ErrInvalidArgument, a call made
// against a cursor or pipeline before it is ready is ErrInvalidState.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
	ErrNoObservers     = errors.New("no observers registered")
	ErrTimeout         = errors.New("operation timed out")
	ErrUnknownEvent    = errors.New("unrecognized event type")
)

// FetchError wraps an error returned by the remote platform while
// fetching a page. It is propagated unchanged by cursors — they never
// interpret or retry it themselves.
type FetchError struct {
	Op         string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error during %s (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error during %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error     { return e.Err }
func (e *FetchError) IsRetryable() bool { return e.Retryable }

// StorageError wraps an error from a Storage backend. Fatal on Load or
// Save; on Cleanup it is logged and swallowed by the Pipeline.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s/%s): %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// TransformError wraps an error raised by a transform.Chain stage,
// naming the stage and the offending item so a handler can log which
// link in the chain rejected it.
type TransformError struct {
	Stage  string
	ItemID string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform error in stage %q (item %s): %v", e.Stage, e.ItemID, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// ComplexError aggregates the failures of every observer that errored
// during one Pipeline iteration. Its Unwrap() []error exposes every
// original, so callers can still errors.Is/As into any one of them.
type ComplexError struct {
	Errors []error
}

func (e *ComplexError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d observer(s) failed: %v", len(e.Errors), errors.Join(e.Errors...))
}

func (e *ComplexError) Unwrap() []error { return e.Errors }
