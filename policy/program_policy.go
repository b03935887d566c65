package policy

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/policymesh/core"
)

// ProgramPolicy interprets a validated step program as a control loop. It is
// the standard implementation of core.Policy for synthesized artifacts.
//
// Interrupt semantics: the interpreter treats an observed interrupt as a
// stop request and returns nil (normal termination). This mirrors preemption
// on a new prompt: a replaced program has nothing useful left to do.
type ProgramPolicy struct {
	program Program
}

// NewProgramPolicy wraps a validated program. The value is inert until the
// scheduler calls Process.
func NewProgramPolicy(program Program) *ProgramPolicy {
	return &ProgramPolicy{program: program}
}

// Name returns the program's name, or a generic label when the collaborator
// did not provide one.
func (p *ProgramPolicy) Name() string {
	if p.program.Name != "" {
		return p.program.Name
	}
	return "synthesized-policy"
}

// Program returns a copy of the underlying program, for audit and tests.
func (p *ProgramPolicy) Program() Program { return p.program }

// Process implements core.Policy.
func (p *ProgramPolicy) Process(rc *core.RuntimeContext) error {
	_, err := p.runSteps(rc, p.program.Steps)
	return err
}

// runSteps executes steps in order. stop=true unwinds nested repeats after
// an interrupt or cancellation; err is non-nil only for genuine failures and
// scheduler-driven cancellation.
func (p *ProgramPolicy) runSteps(rc *core.RuntimeContext, steps []Step) (stop bool, err error) {
	for _, step := range steps {
		switch step.Op {
		case OpInvoke:
			if _, err := rc.Capabilities.Invoke(rc.Context, step.Capability, step.Args); err != nil {
				return true, err
			}

		case OpSleep:
			if err := rc.Sleep(time.Duration(step.DurationMS) * time.Millisecond); err != nil {
				return p.classifyWaitErr(err)
			}

		case OpWaitEvent:
			if stop, err := p.waitEvent(rc, step); stop || err != nil {
				return stop, err
			}

		case OpRepeat:
			iteration := 0
			for step.Count == 0 || iteration < step.Count {
				if stop, err := p.runSteps(rc, step.Steps); stop || err != nil {
					return stop, err
				}
				// Invoke-only bodies have no wait point, so check between
				// iterations to keep unbounded repeats interruptible.
				if rc.Interrupted() {
					return true, nil
				}
				iteration++
			}
		}
	}
	return false, nil
}

// waitEvent blocks until an event matching the step's filters arrives. A
// step timeout lets the program continue with the next step.
func (p *ProgramPolicy) waitEvent(rc *core.RuntimeContext, step Step) (stop bool, err error) {
	waitCtx := rc.Context
	if step.TimeoutMS > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(rc.Context, time.Duration(step.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	for {
		ev, err := rc.NextEvent(waitCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && rc.Context.Err() == nil {
				return false, nil // step timeout, continue with the next step
			}
			return p.classifyWaitErr(err)
		}
		if step.matches(ev) {
			return false, nil
		}
	}
}

// classifyWaitErr maps wait-primitive errors onto policy outcomes: an
// interrupt stops the program normally, anything else (scheduler
// cancellation, failures) propagates.
func (p *ProgramPolicy) classifyWaitErr(err error) (bool, error) {
	if errors.Is(err, core.ErrInterrupted) {
		return true, nil
	}
	return true, err
}

var _ core.Policy = (*ProgramPolicy)(nil)
