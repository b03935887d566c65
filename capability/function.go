package capability

import (
	"context"
	"fmt"

	"github.com/hupe1980/policymesh/core"
	"github.com/hupe1980/policymesh/internal/util"
)

// InvokeError represents errors that occur during capability invocation.
type InvokeError struct {
	Capability string `json:"capability"`        // Name of the capability that failed
	Message    string `json:"message"`           // Error message
	Code       string `json:"code"`              // Error code for categorization
	Details    any    `json:"details,omitempty"` // Additional error details
}

func (e *InvokeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("capability error [%s] in %s: %s", e.Code, e.Capability, e.Message)
	}
	return fmt.Sprintf("capability error in %s: %s", e.Capability, e.Message)
}

// NewInvokeError creates a new InvokeError with the specified details.
func NewInvokeError(capability, message, code string) *InvokeError {
	return &InvokeError{Capability: capability, Message: message, Code: code}
}

// FunctionCapability is a generic adapter that exposes a plain Go function as
// a capability.
//
// Responsibilities:
//   - Holds a lightweight JSON-Schema-like argument specification
//   - Validates policy supplied arguments against that schema before execution
//   - Normalizes error handling so callers receive *InvokeError with
//     consistent codes:
//     VALIDATION_ERROR -> schema / argument mismatch
//     EXECUTION_ERROR  -> underlying function returned an error
//     (custom codes preserved if the function returns *InvokeError directly)
//
// A FunctionCapability has no internal mutable state after construction and
// is safe for concurrent use by multiple policy goroutines.
type FunctionCapability struct {
	name          string
	documentation string
	parameters    map[string]any
	fn            func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunction constructs a FunctionCapability from explicit schema and function.
//
// Example:
//
//	moveTo := capability.NewFunction(
//	  "moveTo",
//	  "Move the pointer to absolute screen coordinates",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "x": map[string]any{"type": "number"},
//	      "y": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"x", "y"},
//	  },
//	  func(_ context.Context, args map[string]any) (any, error) {
//	    return cursor.Move(args["x"].(float64), args["y"].(float64)), nil
//	  },
//	)
func NewFunction(
	name, documentation string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *FunctionCapability {
	return &FunctionCapability{
		name:          name,
		documentation: documentation,
		parameters:    parameters,
		fn:            fn,
	}
}

// NewFunctionFromStruct derives the argument schema from a struct using
// reflection; a convenience equivalent to util.CreateSchema(structType).
func NewFunctionFromStruct(
	name, documentation string,
	structType any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *FunctionCapability {
	return NewFunction(name, documentation, util.CreateSchema(structType), fn)
}

// Name returns the unique capability name.
func (c *FunctionCapability) Name() string { return c.name }

// Documentation returns the description shown to the synthesis collaborator.
func (c *FunctionCapability) Documentation() string { return c.documentation }

// Parameters returns the (minimal) JSON schema describing expected arguments.
func (c *FunctionCapability) Parameters() map[string]any { return c.parameters }

// Invoke validates args against the declared schema then calls the underlying
// function. Validation or execution failures are wrapped (or passed through)
// as *InvokeError for uniform downstream handling.
func (c *FunctionCapability) Invoke(ctx context.Context, args map[string]any) (any, error) {
	if err := util.ValidateParameters(args, c.parameters); err != nil {
		return nil, &InvokeError{
			Capability: c.name,
			Message:    fmt.Sprintf("argument validation failed: %v", err),
			Code:       "VALIDATION_ERROR",
			Details:    err,
		}
	}

	result, err := c.fn(ctx, args)
	if err != nil {
		if invokeErr, ok := err.(*InvokeError); ok {
			return nil, invokeErr
		}
		return nil, &InvokeError{
			Capability: c.name,
			Message:    err.Error(),
			Code:       "EXECUTION_ERROR",
		}
	}

	return result, nil
}

var _ core.Capability = (*FunctionCapability)(nil)
