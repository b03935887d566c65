// Package capability implements the capability subsystem: the append-only
// Registry of named, documented operations the engine exposes to synthesized
// policies, and the FunctionCapability adapter that turns a plain Go function
// into a capability with schema validated arguments and consistent error
// handling.
package capability

import (
	"fmt"
	"iter"
	"sync"

	"github.com/hupe1980/policymesh/core"
)

// DuplicateError is returned when a capability name is already registered.
// Capability names are unique for the lifetime of a ControlScheme.
type DuplicateError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateError) Error() string {
	return fmt.Sprintf("capability already registered: %s", e.Name)
}

// Registry holds the capabilities available to policies. Registration is
// expected to complete before any policy starts; reads (Describe, NewSet,
// Get) are safe from many policy goroutines concurrently. The registry is
// append-only during normal operation.
type Registry struct {
	mu    sync.RWMutex
	order []string
	caps  map[string]core.Capability
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]core.Capability)}
}

// Register adds a capability. It fails with *DuplicateError if the name is
// already taken.
func (r *Registry) Register(c core.Capability) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.caps[name]; exists {
		return &DuplicateError{Name: name}
	}
	r.caps[name] = c
	r.order = append(r.order, name)
	return nil
}

// Get returns the named capability, if present.
func (r *Registry) Get(name string) (core.Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[name]
	return c, ok
}

// Names returns the registered capability names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Describe yields (lazily, restartably) the synthesis-boundary descriptors
// of all registered capabilities in registration order. The descriptors
// expose name, documentation and parameter schema but never the callable.
func (r *Registry) Describe() iter.Seq[core.Descriptor] {
	return func(yield func(core.Descriptor) bool) {
		for _, name := range r.Names() {
			c, ok := r.Get(name)
			if !ok {
				continue
			}
			d := core.Descriptor{
				Name:          c.Name(),
				Documentation: c.Documentation(),
				Parameters:    c.Parameters(),
			}
			if !yield(d) {
				return
			}
		}
	}
}

// Descriptors collects Describe into a slice, for callers building a
// synthesis request in one shot.
func (r *Registry) Descriptors() []core.Descriptor {
	var ds []core.Descriptor
	for d := range r.Describe() {
		ds = append(ds, d)
	}
	return ds
}

// NewSet builds the per-policy capability set handed to a policy at
// construction. The set references registry-owned capabilities; it never
// copies them and grants no registration access.
func (r *Registry) NewSet(policyID string, recorder core.InvocationRecorder) *core.CapabilitySet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return core.NewCapabilitySet(policyID, r.caps, recorder)
}
