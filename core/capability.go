package core

import (
	"context"
	"fmt"
	"sort"
)

// Capability defines the interface for the named, documented operations the
// engine exposes to synthesized policies.
//
// Capabilities are the only sanctioned side channel from a policy back into
// the rest of the system: a policy receives a CapabilitySet at construction
// and may invoke members by name, nothing more.
//
// Implementations must:
//   - Provide a stable, unique Name (snake_case or camelCase, consistent)
//   - Document behavior in Documentation; the text is shown verbatim to the
//     synthesis collaborator
//   - Be safe for concurrent invocation from multiple policy goroutines
type Capability interface {
	// Name returns the unique identifier for this capability.
	Name() string

	// Documentation returns the human-readable description handed to the
	// synthesis collaborator so it understands when and how to use it.
	Documentation() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Invoke executes the capability with already-decoded arguments.
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// Descriptor is the synthesis-boundary view of a capability: name,
// documentation and parameter schema but never the callable itself.
type Descriptor struct {
	Name          string         `json:"name"`
	Documentation string         `json:"documentation"`
	Parameters    map[string]any `json:"parameters,omitempty"`
}

// InvocationRecorder observes the capability invocations and event deliveries
// of a policy. The transcript package provides the standard implementation.
type InvocationRecorder interface {
	RecordEvent(policyID string, ev Event)
	RecordInvocation(policyID, capability string, args map[string]any, result any, err error)
}

// CapabilitySet is the per-policy view onto the registry handed to a policy
// at construction. It is read-only: the set references registry-owned
// capabilities and never copies or exposes registration.
type CapabilitySet struct {
	policyID string
	caps     map[string]Capability
	recorder InvocationRecorder
}

// NewCapabilitySet builds a set bound to a policy id. The recorder may be nil.
func NewCapabilitySet(policyID string, caps map[string]Capability, recorder InvocationRecorder) *CapabilitySet {
	owned := make(map[string]Capability, len(caps))
	for name, c := range caps {
		owned[name] = c
	}
	return &CapabilitySet{policyID: policyID, caps: owned, recorder: recorder}
}

// Get returns the named capability, if present.
func (s *CapabilitySet) Get(name string) (Capability, bool) {
	c, ok := s.caps[name]
	return c, ok
}

// Names returns the capability names in sorted order.
func (s *CapabilitySet) Names() []string {
	names := make([]string, 0, len(s.caps))
	for name := range s.caps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke calls the named capability and records the invocation (arguments,
// result, error) against the owning policy.
func (s *CapabilitySet) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	c, ok := s.caps[name]
	if !ok {
		err := fmt.Errorf("capability %s not available", name)
		if s.recorder != nil {
			s.recorder.RecordInvocation(s.policyID, name, args, nil, err)
		}
		return nil, err
	}

	result, err := c.Invoke(ctx, args)
	if s.recorder != nil {
		s.recorder.RecordInvocation(s.policyID, name, args, result, err)
	}
	return result, err
}

// noopRecorder is the nil-object used when no recorder is configured.
type noopRecorder struct{}

func (noopRecorder) RecordEvent(string, Event) {}
func (noopRecorder) RecordInvocation(string, string, map[string]any, any, error) {
}

// NoOpRecorder returns a recorder that discards everything.
func NoOpRecorder() InvocationRecorder { return noopRecorder{} }
