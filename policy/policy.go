// Package policy implements the Policy Validator & Loader and the concrete
// policy implementations that run inside the engine.
//
// Synthesized policies arrive as opaque artifacts from the synthesis
// collaborator. Load checks an artifact against the runtime contract in a
// fixed order (structural check, decline check, instantiation) and
// compiles the validated step program into a core.Policy. Instantiation has
// no observable side effects: nothing runs until the scheduler starts the
// policy. After loading, the engine treats the policy as opaque and only
// observes its state transitions and capability invocations.
package policy

import "fmt"

// MalformedError is returned when an artifact fails structural validation.
// The artifact is discarded and no policy is instantiated.
type MalformedError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed policy artifact: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed policy artifact: %s", e.Reason)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *MalformedError) Unwrap() error { return e.Err }
