// Package engine implements the scheduler: the component that owns policy
// execution from load to termination.
//
// # Execution model
//
// Every policy runs its Process loop on a dedicated goroutine with an
// isolated RuntimeContext: its own delivery queue, its own interrupt signal
// and its own cancellable context. Policies share nothing but the capability
// registry (read-only) and the event bus (delivery only), so a slow or
// misbehaving policy cannot corrupt another.
//
// # Preemption
//
// The engine never kills a running policy goroutine. Interrupts are
// cooperative: the scheduler raises the policy's interrupt signal and the
// policy observes it at its next wait point (NextEvent, Sleep, Interrupted).
// A conforming policy then returns from Process and is marked Terminated.
// Terminate and Shutdown escalate to context cancellation, which is still
// cooperative at the Go level but guaranteed to unblock every wait primitive.
//
// # Lifecycle
//
// A scheduled policy moves through Loaded, Running, Interrupted, and ends in
// Terminated or Failed. The terminal states are absorbing: the scheduler
// never resurrects a policy, and late state reports from the policy's own
// goroutine cannot overwrite them.
//
// # Replacement vs accumulation
//
// Add with replace preempts every live policy before the new one starts:
// its interrupt is raised, its queue is removed from the bus delivery set
// and flushed, so no event published afterwards reaches it even if its
// goroutine is still winding down. Add without replace lets policies accumulate
// and run concurrently. Which mode to use is the caller's call per policy,
// typically driven by the submitted prompt.
package engine
