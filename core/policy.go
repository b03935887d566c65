package core

// Policy defines the runtime contract every control policy must satisfy.
//
// A policy is an event-driven state machine. Process runs as a resumable
// control loop on its own goroutine: it repeatedly waits for the next queued
// event or an interrupt signal via the RuntimeContext, invokes zero or more
// capabilities in response, and terminates when explicitly signaled or when
// its own logic completes. The engine assumes nothing about timing inside
// Process beyond this contract.
//
// Implementations must:
//   - Block only on the RuntimeContext wait primitives (NextEvent, Sleep),
//     never on shared process-wide locks for unbounded time
//   - Observe the interrupt signal at every wait point and decide whether to
//     stop (return) or continue
//   - Perform no observable side effects before Process is called
type Policy interface {
	// Name returns a short descriptive name for logs and transcripts.
	Name() string

	// Process runs the policy's control loop to completion. A nil return
	// transitions the policy to Terminated; a non-nil return (or a panic,
	// which the scheduler captures) transitions it to Failed. Returning
	// after observing an interrupt is a normal termination.
	Process(rc *RuntimeContext) error
}

// PolicyState is the lifecycle state of a scheduled policy.
//
// Transitions: Loaded → Running → {Interrupted → Running | Terminated |
// Failed}. Terminated and Failed are absorbing: once entered they are never
// left, and a policy enters them at most once.
type PolicyState string

const (
	// StateLoaded is entered at successful validation, before execution starts.
	StateLoaded PolicyState = "loaded"
	// StateRunning means the policy's Process loop is executing.
	StateRunning PolicyState = "running"
	// StateInterrupted is the transient state after an interrupt signal has
	// been observed but before the policy decides to stop or continue.
	StateInterrupted PolicyState = "interrupted"
	// StateTerminated is the absorbing state for normal completion.
	StateTerminated PolicyState = "terminated"
	// StateFailed is the absorbing state for runtime failures, panics and
	// shutdown timeouts.
	StateFailed PolicyState = "failed"
)

// Terminal reports whether the state is absorbing.
func (s PolicyState) Terminal() bool {
	return s == StateTerminated || s == StateFailed
}
