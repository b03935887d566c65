package testutil

import (
	"context"
	"sync"
)

// Call is one recorded capability invocation.
type Call struct {
	Name string
	Args map[string]any
}

// CaptureCapability is a core.Capability implementation that records every
// invocation. Tests assert against Calls to verify what a policy actually
// invoked and with which arguments.
type CaptureCapability struct {
	name string
	doc  string
	err  error

	mu    sync.Mutex
	calls []Call
}

// NewCaptureCapability creates a recording capability with the given name.
func NewCaptureCapability(name string) *CaptureCapability {
	return &CaptureCapability{name: name, doc: "test capability " + name}
}

// FailWith makes every invocation return err.
func (c *CaptureCapability) FailWith(err error) { c.err = err }

// Name implements core.Capability.
func (c *CaptureCapability) Name() string { return c.name }

// Documentation implements core.Capability.
func (c *CaptureCapability) Documentation() string { return c.doc }

// Parameters implements core.Capability. The schema is permissive: tests
// exercise invocation plumbing, not argument validation.
func (c *CaptureCapability) Parameters() map[string]any {
	return map[string]any{"type": "object"}
}

// Invoke implements core.Capability.
func (c *CaptureCapability) Invoke(_ context.Context, args map[string]any) (any, error) {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Name: c.name, Args: args})
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return "ok", nil
}

// Calls returns a snapshot of recorded invocations in order.
func (c *CaptureCapability) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	calls := make([]Call, len(c.calls))
	copy(calls, c.calls)
	return calls
}

// CallCount returns the number of recorded invocations.
func (c *CaptureCapability) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}
