package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPointerEvent(t *testing.T) {
	ev := NewPointerEvent(ActionPress, "left", 100, 200)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, EventPointer, ev.Kind)
	assert.Equal(t, ActionPress, ev.Action)
	assert.Equal(t, "left", ev.Pointer.Button)
	assert.Equal(t, 100, ev.Pointer.X)
	assert.Equal(t, 200, ev.Pointer.Y)
	assert.Nil(t, ev.Key)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestNewKeyEvent(t *testing.T) {
	ev := NewKeyEvent(ActionRelease, "enter")
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, EventKey, ev.Kind)
	assert.Equal(t, ActionRelease, ev.Action)
	assert.Equal(t, "enter", ev.Key.Symbol)
	assert.Nil(t, ev.Pointer)
}

func TestEvent_String(t *testing.T) {
	ev := NewPointerEvent(ActionPress, "left", 10, 20)
	assert.Equal(t, "pointer press left @ (10,20)", ev.String())

	ev = NewKeyEvent(ActionPress, "a")
	assert.Equal(t, `key press "a"`, ev.String())
}

func TestEvent_JSONRoundTripOmitsEmptyPayload(t *testing.T) {
	ev := NewKeyEvent(ActionPress, "a")
	ev.Seq = 7

	raw, err := json.Marshal(ev)
	assert.NoError(t, err)
	assert.NotContains(t, string(raw), "pointer")

	var back Event
	assert.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, ev.ID, back.ID)
	assert.Equal(t, uint64(7), back.Seq)
	assert.Equal(t, "a", back.Key.Symbol)
}
