package testutil

import (
	"github.com/hupe1980/policymesh/core"
)

// EventBuilder provides a fluent helper for constructing events in tests.
// Example:
//
//	ev := NewEventBuilder().KeyPress("a").Seq(3).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type EventBuilder struct {
	ev core.Event
}

// NewEventBuilder creates a builder defaulting to a left button press at the
// origin.
func NewEventBuilder() *EventBuilder {
	return &EventBuilder{ev: core.NewPointerEvent(core.ActionPress, "left", 0, 0)}
}

// ID overrides the auto-generated event ID (chainable). Use mainly in tests
// where determinism matters.
func (b *EventBuilder) ID(id string) *EventBuilder { b.ev.ID = id; return b }

// Seq pre-stamps the delivery sequence number (chainable). The bus overwrites
// it on Publish; set it only for events injected directly into queues.
func (b *EventBuilder) Seq(seq uint64) *EventBuilder { b.ev.Seq = seq; return b }

// Pointer makes the event a pointer event with the given action, button and
// coordinates (chainable).
func (b *EventBuilder) Pointer(action core.EventAction, button string, x, y int) *EventBuilder {
	b.ev.Kind = core.EventPointer
	b.ev.Action = action
	b.ev.Pointer = &core.PointerPayload{Button: button, X: x, Y: y}
	b.ev.Key = nil
	return b
}

// Click is shorthand for a left button press at (x, y) (chainable).
func (b *EventBuilder) Click(x, y int) *EventBuilder {
	return b.Pointer(core.ActionPress, "left", x, y)
}

// Key makes the event a keyboard event with the given action and symbol
// (chainable).
func (b *EventBuilder) Key(action core.EventAction, symbol string) *EventBuilder {
	b.ev.Kind = core.EventKey
	b.ev.Action = action
	b.ev.Key = &core.KeyPayload{Symbol: symbol}
	b.ev.Pointer = nil
	return b
}

// KeyPress is shorthand for a key press of the given symbol (chainable).
func (b *EventBuilder) KeyPress(symbol string) *EventBuilder {
	return b.Key(core.ActionPress, symbol)
}

// Build returns the constructed core.Event value.
func (b *EventBuilder) Build() core.Event { return b.ev }
