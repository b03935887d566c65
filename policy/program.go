package policy

import (
	"fmt"

	"github.com/hupe1980/policymesh/core"
)

// Step ops accepted by the program validator and interpreter.
const (
	OpInvoke    = "invoke"
	OpWaitEvent = "wait_event"
	OpSleep     = "sleep"
	OpRepeat    = "repeat"
)

// Program is the structured policy implementation produced by the synthesis
// collaborator: a named, ordered list of steps interpreted as a control
// loop. It is the wire format of the Policy Interface; nothing else crosses
// the synthesis boundary.
type Program struct {
	Name  string `json:"name,omitempty"`
	Steps []Step `json:"steps"`
}

// Step is a single program instruction. Op selects the variant; the other
// fields are variant specific:
//
//	invoke:     Capability + Args
//	wait_event: Kind/Action/Button/Key filters (empty matches any) + TimeoutMS
//	sleep:      DurationMS
//	repeat:     Count (0 = until interrupted) + nested Steps
type Step struct {
	Op string `json:"op"`

	// invoke
	Capability string         `json:"capability,omitempty"`
	Args       map[string]any `json:"args,omitempty"`

	// wait_event
	Kind      string `json:"kind,omitempty"`
	Action    string `json:"action,omitempty"`
	Button    string `json:"button,omitempty"`
	Key       string `json:"key,omitempty"`
	TimeoutMS int64  `json:"timeout_ms,omitempty"`

	// sleep
	DurationMS int64 `json:"duration_ms,omitempty"`

	// repeat
	Count int    `json:"count,omitempty"`
	Steps []Step `json:"steps,omitempty"`
}

// matches reports whether ev passes the step's wait_event filters.
func (s Step) matches(ev core.Event) bool {
	if s.Kind != "" && string(ev.Kind) != s.Kind {
		return false
	}
	if s.Action != "" && string(ev.Action) != s.Action {
		return false
	}
	if s.Button != "" && (ev.Pointer == nil || ev.Pointer.Button != s.Button) {
		return false
	}
	if s.Key != "" && (ev.Key == nil || ev.Key.Symbol != s.Key) {
		return false
	}
	return true
}

// validate checks the program against the runtime contract and the known
// capability names. It returns *MalformedError on the first violation.
func (p *Program) validate(known map[string]bool) error {
	if len(p.Steps) == 0 {
		return &MalformedError{Reason: "program has no steps"}
	}
	return validateSteps(p.Steps, known, 0)
}

const maxNesting = 8

func validateSteps(steps []Step, known map[string]bool, depth int) error {
	if depth > maxNesting {
		return &MalformedError{Reason: fmt.Sprintf("step nesting exceeds %d levels", maxNesting)}
	}

	for i, s := range steps {
		switch s.Op {
		case OpInvoke:
			if s.Capability == "" {
				return &MalformedError{Reason: fmt.Sprintf("step %d: invoke without capability", i)}
			}
			if !known[s.Capability] {
				return &MalformedError{Reason: fmt.Sprintf("step %d: unknown capability %q", i, s.Capability)}
			}
		case OpWaitEvent:
			if s.Kind != "" && s.Kind != string(core.EventPointer) && s.Kind != string(core.EventKey) {
				return &MalformedError{Reason: fmt.Sprintf("step %d: unknown event kind %q", i, s.Kind)}
			}
			if s.Action != "" && s.Action != string(core.ActionPress) && s.Action != string(core.ActionRelease) {
				return &MalformedError{Reason: fmt.Sprintf("step %d: unknown event action %q", i, s.Action)}
			}
			if s.TimeoutMS < 0 {
				return &MalformedError{Reason: fmt.Sprintf("step %d: negative timeout", i)}
			}
		case OpSleep:
			if s.DurationMS <= 0 {
				return &MalformedError{Reason: fmt.Sprintf("step %d: sleep requires a positive duration_ms", i)}
			}
		case OpRepeat:
			if s.Count < 0 {
				return &MalformedError{Reason: fmt.Sprintf("step %d: negative repeat count", i)}
			}
			if len(s.Steps) == 0 {
				return &MalformedError{Reason: fmt.Sprintf("step %d: repeat without nested steps", i)}
			}
			if err := validateSteps(s.Steps, known, depth+1); err != nil {
				return err
			}
		case "":
			return &MalformedError{Reason: fmt.Sprintf("step %d: missing op", i)}
		default:
			return &MalformedError{Reason: fmt.Sprintf("step %d: unknown op %q", i, s.Op)}
		}
	}
	return nil
}
