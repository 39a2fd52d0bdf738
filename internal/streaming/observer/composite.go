package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// Composite binds several child observers under one unique key. It
// resumes whenever any child still wants to, and runs every child on
// each Call regardless of earlier children's errors — collecting
// their failures instead of aborting partway, the same "cancel no-one"
// posture the Pipeline itself takes across observers. Useful for the
// common case of one observer per pool driving, say, both an
// AssignmentCursor and a PoolCursor together.
type Composite struct {
	mu       sync.Mutex
	key      string
	children []Observer
	resume   bool
}

// NewComposite builds a Composite identified by key, wrapping children
// in registration order (also the order their state is (de)serialized
// in, so the child set must stay stable across restarts).
func NewComposite(key string, children ...Observer) *Composite {
	return &Composite{key: key, children: children, resume: true}
}

func (c *Composite) UniqueKey() string { return c.key }

func (c *Composite) ShouldResume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resume
}

func (c *Composite) Call(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var combined error
	resume := false
	for _, child := range c.children {
		if err := child.Call(ctx); err != nil {
			combined = multierr.Append(combined, err)
			continue
		}
		if child.ShouldResume() {
			resume = true
		}
	}
	c.resume = resume
	return combined
}

// Inject copies each child's persisted state from other's matching
// child, by position. A child-count mismatch is a no-op — it means
// other was built from a different configuration and cannot be
// meaningfully injected.
func (c *Composite) Inject(other Observer) {
	oc, ok := other.(*Composite)
	if !ok || len(oc.children) != len(c.children) {
		return
	}
	for i, child := range c.children {
		child.Inject(oc.children[i])
	}
}

func (c *Composite) MarshalState() ([]byte, error) {
	parts := make([]json.RawMessage, len(c.children))
	for i, child := range c.children {
		b, err := child.MarshalState()
		if err != nil {
			return nil, fmt.Errorf("marshal child %d state: %w", i, err)
		}
		parts[i] = b
	}
	return json.Marshal(parts)
}

func (c *Composite) UnmarshalState(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != len(c.children) {
		return fmt.Errorf("composite state has %d children, observer has %d", len(parts), len(c.children))
	}
	for i, child := range c.children {
		if err := child.UnmarshalState(parts[i]); err != nil {
			return fmt.Errorf("unmarshal child %d state: %w", i, err)
		}
	}
	return nil
}
