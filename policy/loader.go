package policy

import (
	"bytes"
	"encoding/json"

	"github.com/hupe1980/policymesh/synth"
)

// Load validates a synthesis artifact against the Policy Interface and
// compiles it into a runnable policy. Validation proceeds in contract order:
//
//  1. Structural check: the artifact must decode into a step program with
//     the required shape; violations return *MalformedError and the
//     artifact is discarded without instantiation.
//  2. Confidence check: an explicit decline returns synth.ErrDeclined; no
//     policy is created and no state changes.
//  3. Instantiation: the returned ProgramPolicy is inert and has no
//     observable side effects until the scheduler calls Process.
//
// knownCapabilities is the set of names the policy may invoke; programs
// referencing anything else are malformed.
func Load(artifact *synth.Artifact, knownCapabilities []string) (*ProgramPolicy, error) {
	if artifact == nil {
		return nil, &MalformedError{Reason: "nil artifact"}
	}
	if artifact.Declined {
		return nil, synth.ErrDeclined
	}
	if len(artifact.Raw) == 0 {
		return nil, &MalformedError{Reason: "empty artifact"}
	}

	var program Program
	dec := json.NewDecoder(bytes.NewReader(artifact.Raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&program); err != nil {
		return nil, &MalformedError{Reason: "artifact is not a valid step program", Err: err}
	}

	known := make(map[string]bool, len(knownCapabilities))
	for _, name := range knownCapabilities {
		known[name] = true
	}
	if err := program.validate(known); err != nil {
		return nil, err
	}

	return NewProgramPolicy(program), nil
}
