// Package runner drives one agent tree per run.
//
// # Responsibilities
//   - Run lifecycle: Start, Run and Stop of the root agent with cancellation
//   - Event processing: state deltas are applied and non-partial events are
//     appended to the session before they are delivered to the caller
//   - Resume signalling: after a completed model turn is persisted the agent
//     is allowed to continue, so the next step observes the updated session
//
// RunSync is a convenience wrapper that collects all events of a run.
package runner
