package core

import "context"

// Runner defines the minimal orchestration contract for executing a root agent
// within a session. It provides:
//   - Asynchronous execution via Run (streaming events + terminal error channel)
//   - Cooperative cancellation through Cancel
//   - Stable run identifiers for tracking / external control
//
// Semantics & Guarantees:
//   - Event Ordering: events emitted within a single run are delivered in the
//     order produced by the agent pipeline.
//   - Channel Lifecycle: the events channel is closed after the run completes
//     (success, error, or cancellation). The error channel carries at most one
//     terminal error then closes.
//   - Partial Events: implementations MAY emit partial events; consumers should
//     rely on IsPartial() to decide persistence or display strategy.
type Runner interface {
	Run(ctx context.Context, sessionID string, userContent Content) (string, <-chan Event, <-chan error, error)
	Cancel(runID string) error
}
