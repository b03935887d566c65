package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind identifies the input source category of an Event.
type EventKind string

const (
	// EventPointer marks events produced by pointer (mouse) adapters.
	EventPointer EventKind = "pointer"
	// EventKey marks events produced by keyboard adapters.
	EventKey EventKind = "key"
)

// EventAction distinguishes press and release transitions.
type EventAction string

const (
	// ActionPress marks a button or key going down.
	ActionPress EventAction = "press"
	// ActionRelease marks a button or key coming back up.
	ActionRelease EventAction = "release"
)

// PointerPayload carries the button identifier and screen coordinates of a
// pointer event. Button uses symbolic names ("left", "right", "middle").
type PointerPayload struct {
	Button string `json:"button"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// KeyPayload carries the key symbol of a keyboard event. Printable keys are
// represented by their character; non-printable keys by symbolic names such
// as "enter", "esc", "space", "tab".
type KeyPayload struct {
	Symbol string `json:"symbol"`
}

// Event is the unit of input delivered to every active policy. After Publish
// it must be treated as immutable. It captures:
//   - Identity (ID) and total delivery order (Seq, stamped by the bus)
//   - Source classification (Kind, Action)
//   - The kind-specific payload (exactly one of Pointer / Key is non-nil)
//   - A monotonic capture timestamp
type Event struct {
	ID        string          `json:"id"`
	Seq       uint64          `json:"seq"`
	Kind      EventKind       `json:"kind"`
	Action    EventAction     `json:"action"`
	Pointer   *PointerPayload `json:"pointer,omitempty"`
	Key       *KeyPayload     `json:"key,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewPointerEvent creates a pointer event. The timestamp carries Go's
// monotonic clock reading so event deltas are immune to wall clock jumps.
func NewPointerEvent(action EventAction, button string, x, y int) Event {
	return Event{
		ID:        NewID(),
		Kind:      EventPointer,
		Action:    action,
		Pointer:   &PointerPayload{Button: button, X: x, Y: y},
		Timestamp: time.Now(),
	}
}

// NewKeyEvent creates a keyboard event for the given key symbol.
func NewKeyEvent(action EventAction, symbol string) Event {
	return Event{
		ID:        NewID(),
		Kind:      EventKey,
		Action:    action,
		Key:       &KeyPayload{Symbol: symbol},
		Timestamp: time.Now(),
	}
}

// NewID generates a new unique identifier for events and policies.
func NewID() string { return uuid.NewString() }

// String renders a compact human readable form used in logs and transcripts.
func (e Event) String() string {
	switch e.Kind {
	case EventPointer:
		if e.Pointer != nil {
			return fmt.Sprintf("pointer %s %s @ (%d,%d)", e.Action, e.Pointer.Button, e.Pointer.X, e.Pointer.Y)
		}
	case EventKey:
		if e.Key != nil {
			return fmt.Sprintf("key %s %q", e.Action, e.Key.Symbol)
		}
	}
	return fmt.Sprintf("%s %s", e.Kind, e.Action)
}
