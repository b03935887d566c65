package engine

import (
	"context"
	"fmt"

	"github.com/hupe1980/policymesh/core"
)

// HookType defines the lifecycle points where hooks can be executed.
//
// Hooks let callers observe and extend the scheduler without modifying core
// logic: metrics, auditing, admission control. They run synchronously on the
// scheduler's goroutines, so implementations must be fast and must not block.
type HookType string

const (
	// HookPolicyStart fires before a policy's goroutine starts. A non-nil
	// error from a start hook rejects the Add call, which makes it the place
	// for admission control.
	HookPolicyStart HookType = "policy_start"

	// HookPolicyStop fires after a policy's goroutine has exited, in any
	// terminal state.
	HookPolicyStop HookType = "policy_stop"

	// HookStateChange fires on every policy lifecycle transition.
	HookStateChange HookType = "state_change"

	// HookError fires when a policy ends Failed. The HookContext carries the
	// failure.
	HookError HookType = "error"
)

// HookContext carries the information a hook needs about the policy that
// triggered it.
type HookContext struct {
	// PolicyID is the scheduler-assigned id.
	PolicyID string

	// PolicyName is the policy's self-reported name.
	PolicyName string

	// State is the lifecycle state at the time the hook fires.
	State core.PolicyState

	// Err is the failure for HookError and terminal HookPolicyStop
	// notifications; nil otherwise.
	Err error
}

// Hook is one lifecycle observer.
type Hook interface {
	// Type returns the lifecycle point this hook handles.
	Type() HookType

	// Execute performs the hook logic. Only HookPolicyStart errors influence
	// scheduling; errors from notification hooks are logged and dropped.
	Execute(ctx context.Context, hc *HookContext) error
}

// FunctionHook wraps a plain function as a Hook.
type FunctionHook struct {
	hookType HookType
	fn       func(ctx context.Context, hc *HookContext) error
}

// NewFunctionHook creates a function-based hook for the given lifecycle point.
func NewFunctionHook(hookType HookType, fn func(ctx context.Context, hc *HookContext) error) *FunctionHook {
	return &FunctionHook{hookType: hookType, fn: fn}
}

// Type returns the lifecycle point this hook handles.
func (h *FunctionHook) Type() HookType { return h.hookType }

// Execute calls the wrapped function.
func (h *FunctionHook) Execute(ctx context.Context, hc *HookContext) error {
	return h.fn(ctx, hc)
}

// HookManager routes lifecycle notifications to registered hooks.
//
// Registration is expected to finish before the scheduler starts policies;
// Fire is then safe from multiple goroutines. Hooks for the same type run in
// registration order and the first error stops the chain.
type HookManager struct {
	hooks map[HookType][]Hook
}

// NewHookManager creates an empty manager.
func NewHookManager() *HookManager {
	return &HookManager{hooks: make(map[HookType][]Hook)}
}

// Register adds a hook for its declared type.
func (hm *HookManager) Register(h Hook) {
	hm.hooks[h.Type()] = append(hm.hooks[h.Type()], h)
}

// Fire executes all hooks registered for the given type, in order, stopping
// at the first error.
func (hm *HookManager) Fire(ctx context.Context, hookType HookType, hc *HookContext) error {
	for _, h := range hm.hooks[hookType] {
		if err := h.Execute(ctx, hc); err != nil {
			return fmt.Errorf("hook %s: %w", hookType, err)
		}
	}
	return nil
}
