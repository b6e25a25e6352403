// Package core provides the foundational domain types, interfaces and execution
// contexts used by researchcrew. It defines the core abstractions for:
//
//   - Agents (units of orchestrated work bound to a research task)
//   - Sessions (stateful containers holding task outputs and event history)
//   - Events (immutable communication + orchestration records)
//   - RunContext (scoped execution state handed to an agent's Run)
//   - Pluggable stores for session state and report artifacts
//
// The package keeps implementation concerns (persistence, model providers,
// concrete agents) out of scope and exposes small interfaces so backends can
// be swapped without touching the crew definitions.
package core
