package testutil

import (
	"encoding/json"
	"fmt"
)

// ProgramBuilder assembles JSON step programs for tests without hand-writing
// string literals. Example:
//
//	raw := NewProgramBuilder("demo").
//	    Invoke("click", map[string]any{"x": 1, "y": 2}).
//	    WaitKey("a", 0).
//	    JSON()
type ProgramBuilder struct {
	name  string
	steps []map[string]any
}

// NewProgramBuilder creates a builder for a program with the given name.
func NewProgramBuilder(name string) *ProgramBuilder {
	return &ProgramBuilder{name: name}
}

// Invoke appends a capability invocation step (chainable).
func (b *ProgramBuilder) Invoke(capability string, args map[string]any) *ProgramBuilder {
	step := map[string]any{"op": "invoke", "capability": capability}
	if len(args) > 0 {
		step["args"] = args
	}
	b.steps = append(b.steps, step)
	return b
}

// Sleep appends a sleep step (chainable).
func (b *ProgramBuilder) Sleep(durationMS int) *ProgramBuilder {
	b.steps = append(b.steps, map[string]any{"op": "sleep", "duration_ms": durationMS})
	return b
}

// WaitKey appends a wait for a key press of the given symbol (chainable).
// timeoutMS of 0 waits forever.
func (b *ProgramBuilder) WaitKey(symbol string, timeoutMS int) *ProgramBuilder {
	step := map[string]any{"op": "wait_event", "kind": "key", "action": "press", "key": symbol}
	if timeoutMS > 0 {
		step["timeout_ms"] = timeoutMS
	}
	b.steps = append(b.steps, step)
	return b
}

// WaitPointer appends a wait for a pointer press of the given button
// (chainable). timeoutMS of 0 waits forever.
func (b *ProgramBuilder) WaitPointer(button string, timeoutMS int) *ProgramBuilder {
	step := map[string]any{"op": "wait_event", "kind": "pointer", "action": "press", "button": button}
	if timeoutMS > 0 {
		step["timeout_ms"] = timeoutMS
	}
	b.steps = append(b.steps, step)
	return b
}

// Repeat appends a repeat step wrapping the steps built by fn (chainable).
// count of 0 repeats forever.
func (b *ProgramBuilder) Repeat(count int, fn func(inner *ProgramBuilder)) *ProgramBuilder {
	inner := NewProgramBuilder("")
	fn(inner)
	b.steps = append(b.steps, map[string]any{"op": "repeat", "count": count, "steps": inner.steps})
	return b
}

// JSON renders the program as a JSON string.
func (b *ProgramBuilder) JSON() string {
	program := map[string]any{"steps": b.steps}
	if b.name != "" {
		program["name"] = b.name
	}
	raw, err := json.Marshal(program)
	if err != nil {
		panic(fmt.Sprintf("testutil: program marshal failed: %v", err))
	}
	return string(raw)
}

// Bytes renders the program as JSON bytes.
func (b *ProgramBuilder) Bytes() []byte { return []byte(b.JSON()) }
