// Package agent contains the agent implementations a research crew is built
// from:
//
//  1. Base lifecycle + hierarchy plumbing (BaseAgent)
//  2. Ordered coordination of child agents (SequentialAgent)
//  3. A model-backed task agent (ModelAgent)
//
// An agent's Run receives a *core.RunContext. Composite agents pass the same
// context to their children so session state produced by one step is visible
// to the next. ModelAgent delegates prompt assembly and the model call to
// the flow package and forwards the resulting events.
package agent
