package policy

import "github.com/hupe1980/policymesh/core"

// FuncPolicy adapts a plain Go function to core.Policy. Useful for
// hand-written policies in tests and embedding scenarios where no synthesis
// round trip is wanted.
type FuncPolicy struct {
	name string
	fn   func(rc *core.RuntimeContext) error
}

// NewFuncPolicy wraps fn as a policy. The function must honor the runtime
// contract: block only on the RuntimeContext wait primitives and observe
// interrupts at every wait point.
func NewFuncPolicy(name string, fn func(rc *core.RuntimeContext) error) *FuncPolicy {
	return &FuncPolicy{name: name, fn: fn}
}

// Name returns the policy name.
func (p *FuncPolicy) Name() string { return p.name }

// Process implements core.Policy.
func (p *FuncPolicy) Process(rc *core.RuntimeContext) error { return p.fn(rc) }

var _ core.Policy = (*FuncPolicy)(nil)
