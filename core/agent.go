package core

// Agent defines the interface every executable unit in a crew implements.
//
// Agents receive their inputs through a RunContext, emit events to
// communicate results back to the Runner and may own child agents to form
// composite pipelines (e.g. a sequential chain of task agents).
//
// Implementations must:
//   - Respect context cancellation
//   - Emit events through the provided RunContext
//   - Manage their lifecycle through Start/Stop
type Agent interface {
	Name() string
	Description() string
	Start(runCtx *RunContext) error
	Stop(runCtx *RunContext) error
	Run(runCtx *RunContext) error
	SetSubAgents(children ...Agent) error
	SubAgents() []Agent
	Parent() Agent
	FindAgent(name string) Agent
}

// AgentInfo carries identifying details about an agent used in contexts & events.
// Name is the external identifier; Type categorizes implementation (e.g. "sequential", "model").
type AgentInfo struct{ Name, Type string }
