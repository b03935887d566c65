// Package synth defines the boundary with the external code-synthesis
// collaborator: the normalized SynthesisRequest handed out (capability
// descriptors plus prompt, never the callables), the PolicyArtifact handed
// back (a structured JSON step program, or an explicit decline), and the
// Synthesizer interface provider adapters implement.
//
// The package deliberately performs no structural validation of returned
// programs; that is the policy loader's job. It only normalizes the
// response envelope (markdown fences, decline sentinels) and classifies
// transport failures.
package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/policymesh/core"
)

// Example is a previously accepted prompt/program pair offered to the
// collaborator as a few-shot hint.
type Example struct {
	Prompt  string          `json:"prompt"`
	Program json.RawMessage `json:"program"`
}

// Request captures a single synthesis request. Capabilities carries
// descriptors only; the callables never cross this boundary. A Request is
// created per user prompt and discarded after the call.
type Request struct {
	Prompt       string            `json:"prompt"`
	Capabilities []core.Descriptor `json:"capabilities"`
	Examples     []Example         `json:"examples,omitempty"`
}

// Artifact is the collaborator's response: either a candidate JSON step
// program (Raw) or an explicit "no confident implementation" signal
// (Declined). It is transient and consumed immediately by the validator.
type Artifact struct {
	Raw      json.RawMessage `json:"raw,omitempty"`
	Declined bool            `json:"declined,omitempty"`
}

// Info contains metadata about a synthesizer implementation.
type Info struct {
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
	Model    string `json:"model"`
}

// Synthesizer is the contract with the external synthesis collaborator.
type Synthesizer interface {
	// Synthesize sends the request and returns the candidate artifact.
	// Transport and collaborator failures are returned as *Error; a decline
	// is not an error and is reported via Artifact.Declined.
	Synthesize(ctx context.Context, req Request) (*Artifact, error)

	// Info returns information about the synthesizer implementation.
	Info() Info
}

// ErrDeclined signals an explicit "no policy" response from the collaborator.
// It is a control-flow sentinel, not a failure: callers translate it into a
// Declined submission result and change no state.
var ErrDeclined = errors.New("synthesis declined")

// Error wraps transport or collaborator failures (unreachable service,
// malformed response envelope). It is retryable at the caller's discretion
// and is never silently swallowed.
type Error struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("synthesis error (%s): %v", e.Provider, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// ParseArtifact normalizes a raw collaborator completion into an Artifact.
// It strips markdown code fences and recognizes the decline forms the
// collaborator may produce: empty output, the bare words "none"/"null", or a
// JSON envelope {"decline": true}. Anything else is passed through as the
// candidate program for the validator to judge.
func ParseArtifact(text string) *Artifact {
	text = strings.TrimSpace(text)
	if after, ok := strings.CutPrefix(text, "```"); ok {
		after = strings.TrimPrefix(after, "json")
		if body, ok := strings.CutSuffix(strings.TrimSpace(after), "```"); ok {
			text = strings.TrimSpace(body)
		} else {
			text = strings.TrimSpace(after)
		}
	}

	if text == "" || strings.EqualFold(text, "none") || strings.EqualFold(text, "null") {
		return &Artifact{Declined: true}
	}

	var envelope struct {
		Decline bool `json:"decline"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err == nil && envelope.Decline {
		return &Artifact{Declined: true}
	}

	return &Artifact{Raw: json.RawMessage(text)}
}

// Mock is a lightweight in-memory Synthesizer useful for tests & examples.
// Unknown prompts decline by default, mirroring the low-confidence behavior
// expected from the real collaborator.
type Mock struct {
	responses map[string]*Artifact
	err       error
}

// NewMock constructs an empty Mock.
func NewMock() *Mock {
	return &Mock{responses: make(map[string]*Artifact)}
}

// AddProgram registers a canned program artifact for a prompt.
func (m *Mock) AddProgram(prompt, program string) {
	m.responses[prompt] = &Artifact{Raw: json.RawMessage(program)}
}

// AddDecline registers an explicit decline for a prompt.
func (m *Mock) AddDecline(prompt string) {
	m.responses[prompt] = &Artifact{Declined: true}
}

// FailWith makes every Synthesize call fail with a transport error wrapping err.
func (m *Mock) FailWith(err error) { m.err = err }

// Synthesize implements Synthesizer.
func (m *Mock) Synthesize(_ context.Context, req Request) (*Artifact, error) {
	if m.err != nil {
		return nil, &Error{Provider: "mock", Err: m.err}
	}
	if artifact, ok := m.responses[req.Prompt]; ok {
		return artifact, nil
	}
	return &Artifact{Declined: true}, nil
}

// Info implements Synthesizer.
func (m *Mock) Info() Info { return Info{Provider: "mock", Model: "canned"} }
