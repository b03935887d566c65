package synth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/policymesh/internal/util"
)

// systemTemplate instructs the collaborator on the program contract. The
// event and step formats here are normative: the policy loader rejects
// anything that does not match.
const systemTemplate = `You are a synthesizer of control policies for an event-driven automation engine.
Given a set of available capabilities and a behavioral prompt, produce a JSON control program.

The program format is a single JSON object:
{"name": "<short policy name>", "steps": [ ... ]}

Each step is an object with an "op" field:
- {"op": "invoke", "capability": "<name>", "args": { ... }}: invoke a capability. Args must satisfy the capability's parameter schema.
- {"op": "wait_event", "kind": "pointer"|"key", "action": "press"|"release", "button": "<optional button filter>", "key": "<optional key symbol filter>", "timeout_ms": <optional>}: wait for a matching input event. Omitted filter fields match anything. If timeout_ms elapses the program continues with the next step.
- {"op": "sleep", "duration_ms": <n>}: pause for n milliseconds.
- {"op": "repeat", "count": <n>, "steps": [ ... ]}: run nested steps n times; count 0 repeats until the policy is interrupted.

Rules:
- Only wait for pointer or keyboard events if the prompt explicitly asks for event-driven behavior; otherwise invoke capabilities directly.
- Use only the capabilities listed below; never invent capability names or argument fields.
- Pointer events look like {"kind":"pointer","action":"press","pointer":{"button":"left","x":100,"y":200}}.
- Keyboard events look like {"kind":"key","action":"press","key":{"symbol":"a"}}; non-printable keys use symbolic names such as "enter", "esc", "space".
- Output raw JSON only. No markdown fences, no commentary.
- Only produce a program if you have a high degree of confidence it matches the prompt; otherwise output exactly {"decline": true}.

Available capabilities:
{{.Capabilities}}`

// BuildSystemPrompt renders the system instruction for a request, embedding
// the capability descriptors (name, documentation, parameter schema).
func BuildSystemPrompt(req Request) (string, error) {
	var b strings.Builder
	for _, d := range req.Capabilities {
		fmt.Fprintf(&b, "- %s: %s", d.Name, d.Documentation)
		if len(d.Parameters) > 0 {
			if schema, err := json.Marshal(d.Parameters); err == nil {
				fmt.Fprintf(&b, " (parameters: %s)", schema)
			}
		}
		b.WriteString("\n")
	}

	return util.RenderTemplate(systemTemplate, map[string]any{
		"Capabilities": strings.TrimRight(b.String(), "\n"),
	})
}

// BuildUserPrompt renders the user message: prior accepted examples (if any)
// followed by the behavioral prompt itself.
func BuildUserPrompt(req Request) string {
	var b strings.Builder
	if len(req.Examples) > 0 {
		b.WriteString("Previously accepted programs for similar prompts:\n")
		for _, ex := range req.Examples {
			fmt.Fprintf(&b, "Prompt: %s\nProgram: %s\n", ex.Prompt, ex.Program)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Write a control program that behaves as described:\n%s", req.Prompt)
	return b.String()
}
