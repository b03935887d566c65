package synth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/policymesh/core"
)

func TestBuildSystemPrompt_EmbedsDescriptors(t *testing.T) {
	req := Request{
		Prompt: "click on enter",
		Capabilities: []core.Descriptor{
			{
				Name:          "click",
				Documentation: "Click the pointer at x, y.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"x": map[string]any{"type": "integer"},
					},
				},
			},
			{Name: "beep", Documentation: "Play a beep."},
		},
	}

	system, err := BuildSystemPrompt(req)
	assert.NoError(t, err)
	assert.Contains(t, system, "click: Click the pointer at x, y.")
	assert.Contains(t, system, "beep: Play a beep.")
	assert.Contains(t, system, `"x"`)
	assert.Contains(t, system, `{"decline": true}`)
	// Descriptors only; the prompt itself belongs to the user message.
	assert.NotContains(t, system, "click on enter")
}

func TestBuildUserPrompt_WithoutExamples(t *testing.T) {
	user := BuildUserPrompt(Request{Prompt: "press space to jump"})
	assert.Contains(t, user, "press space to jump")
	assert.NotContains(t, user, "Previously accepted")
}

func TestBuildUserPrompt_WithExamples(t *testing.T) {
	user := BuildUserPrompt(Request{
		Prompt: "press space to jump",
		Examples: []Example{
			{Prompt: "press a to duck", Program: json.RawMessage(`{"steps":[]}`)},
		},
	})
	assert.Contains(t, user, "Previously accepted")
	assert.Contains(t, user, "press a to duck")
	assert.Contains(t, user, `{"steps":[]}`)
	assert.Contains(t, user, "press space to jump")
}
