package agent

import (
	"fmt"

	"github.com/hupe1980/researchcrew/core"
)

// SequentialAgent runs its children in order on a shared RunContext, so
// state written by one step is available to the next. Execution stops at the
// first error.
type SequentialAgent struct {
	BaseAgent
}

// NewSequentialAgent creates a sequential coordinator over children.
func NewSequentialAgent(name string, children ...core.Agent) *SequentialAgent {
	s := &SequentialAgent{BaseAgent: NewBaseAgent(name)}
	_ = s.SetSubAgents(children...)
	return s
}

// Run implements core.Agent. Errors are wrapped with the failing child's name.
func (s *SequentialAgent) Run(runCtx *core.RunContext) error {
	children := s.SubAgents()
	for i, child := range children {
		if err := runCtx.Err(); err != nil {
			return err
		}

		runCtx.LogDebug("agent.sequential.step", "agent", s.Name(), "child", child.Name(), "step", i+1, "total", len(children))

		if err := child.Run(runCtx); err != nil {
			return fmt.Errorf("sequential execution failed at agent %s: %w", child.Name(), err)
		}
	}

	return nil
}
