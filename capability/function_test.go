package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFunctionCapability_Success(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
			"y": map[string]any{"type": "integer"},
		},
		"required": []string{"x", "y"},
	}

	moveTo := NewFunction("moveTo", "Move the pointer", params, func(_ context.Context, args map[string]any) (any, error) {
		return map[string]any{"moved": true}, nil
	})

	assert.Equal(t, "moveTo", moveTo.Name())
	assert.Equal(t, "Move the pointer", moveTo.Documentation())

	// JSON-decoded numbers arrive as float64; integral values must pass.
	result, err := moveTo.Invoke(context.Background(), map[string]any{"x": float64(10), "y": float64(20)})
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{"moved": true}, result)
}

func TestFunctionCapability_ValidationError(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		"required": []string{"x"},
	}

	c := NewFunction("strict", "", params, func(_ context.Context, _ map[string]any) (any, error) {
		t.Fatal("function must not run on validation failure")
		return nil, nil
	})

	_, err := c.Invoke(context.Background(), map[string]any{})
	assert.Error(t, err)

	var invokeErr *InvokeError
	assert.ErrorAs(t, err, &invokeErr)
	assert.Equal(t, "VALIDATION_ERROR", invokeErr.Code)
	assert.Equal(t, "strict", invokeErr.Capability)
}

func TestFunctionCapability_ExecutionError(t *testing.T) {
	c := NewFunction("boom", "", map[string]any{"type": "object"}, func(_ context.Context, _ map[string]any) (any, error) {
		return nil, errors.New("kaput")
	})

	_, err := c.Invoke(context.Background(), nil)
	var invokeErr *InvokeError
	assert.ErrorAs(t, err, &invokeErr)
	assert.Equal(t, "EXECUTION_ERROR", invokeErr.Code)
	assert.Contains(t, invokeErr.Message, "kaput")
}

func TestFunctionCapability_InvokeErrorPassthrough(t *testing.T) {
	custom := NewInvokeError("boom", "rate limited", "RATE_LIMITED")
	c := NewFunction("boom", "", map[string]any{"type": "object"}, func(_ context.Context, _ map[string]any) (any, error) {
		return nil, custom
	})

	_, err := c.Invoke(context.Background(), nil)
	var invokeErr *InvokeError
	assert.ErrorAs(t, err, &invokeErr)
	assert.Equal(t, "RATE_LIMITED", invokeErr.Code)
}

type pointArgs struct {
	X int    `json:"x" description:"X coordinate"`
	Y int    `json:"y" description:"Y coordinate"`
	B string `json:"b,omitempty" description:"Optional button"`
}

func TestNewFunctionFromStruct(t *testing.T) {
	c := NewFunctionFromStruct("click", "Click at a point", pointArgs{}, func(_ context.Context, args map[string]any) (any, error) {
		return nil, nil
	})

	schema := c.Parameters()
	props, ok := schema["properties"].(map[string]any)
	assert.True(t, ok)
	assert.Contains(t, props, "x")
	assert.Contains(t, props, "y")
	assert.Contains(t, props, "b")

	req, _ := schema["required"].([]string)
	assert.ElementsMatch(t, []string{"x", "y"}, req)

	_, err := c.Invoke(context.Background(), map[string]any{"x": 1, "y": 2})
	assert.NoError(t, err)

	_, err = c.Invoke(context.Background(), map[string]any{"x": 1})
	assert.Error(t, err)
}
