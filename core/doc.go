// Package core defines the shared domain types of PolicyMesh: the unified
// input Event model, the Policy runtime contract, the per-policy
// RuntimeContext and the Capability invocation boundary.
//
// Everything else in the module depends on core; core depends only on the
// logging abstraction. Higher layers provide concrete implementations: the
// bus package delivers events, the capability package manages registration,
// the policy package compiles synthesized artifacts into Policy values and
// the engine package schedules them.
package core
