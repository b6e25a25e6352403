package agent

import (
	"context"
	"testing"

	"github.com/hupe1980/researchcrew/core"
	"github.com/hupe1980/researchcrew/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewSequentialAgent(t *testing.T) {
	child1 := NewMockAgent("Child 1")
	child2 := NewMockAgent("Child 2")

	agent := NewSequentialAgent("Sequential Agent", child1, child2)

	assert.Equal(t, "Sequential Agent", agent.Name())
	children := agent.SubAgents()
	require.Len(t, children, 2)
	assert.Equal(t, child1, children[0])
	assert.Equal(t, child2, children[1])
}

func TestSequentialAgent_Run_Order(t *testing.T) {
	child1 := NewMockAgent("Child 1")
	child2 := NewMockAgent("Child 2")
	child3 := NewMockAgent("Child 3")

	agent := NewSequentialAgent("Sequential Agent", child1, child2, child3)
	rc, _ := testutil.NewRunContext(context.Background(), "Sequential Agent")

	var order []string
	for _, c := range []*MockAgent{child1, child2, child3} {
		c.On("Run", rc).Run(func(mock.Arguments) { order = append(order, c.Name()) }).Return(nil)
	}

	require.NoError(t, agent.Run(rc))
	assert.Equal(t, []string{"Child 1", "Child 2", "Child 3"}, order)
	child1.AssertExpectations(t)
	child2.AssertExpectations(t)
	child3.AssertExpectations(t)
}

func TestSequentialAgent_Run_FirstChildError(t *testing.T) {
	child1 := NewMockAgent("Child 1")
	child2 := NewMockAgent("Child 2")

	agent := NewSequentialAgent("Sequential Agent", child1, child2)
	rc, _ := testutil.NewRunContext(context.Background(), "Sequential Agent")

	child1.On("Run", rc).Return(assert.AnError)

	err := agent.Run(rc)

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "Child 1")
	child1.AssertExpectations(t)
	child2.AssertNotCalled(t, "Run", mock.Anything)
}

func TestSequentialAgent_Run_NoChildren(t *testing.T) {
	agent := NewSequentialAgent("Sequential Agent")
	rc, _ := testutil.NewRunContext(context.Background(), "Sequential Agent")
	assert.NoError(t, agent.Run(rc))
}

func TestSequentialAgent_Run_Cancelled(t *testing.T) {
	child := NewMockAgent("Child 1")
	agent := NewSequentialAgent("Sequential Agent", child)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rc, _ := testutil.NewRunContext(ctx, "Sequential Agent")

	assert.ErrorIs(t, agent.Run(rc), context.Canceled)
	child.AssertNotCalled(t, "Run", mock.Anything)
}

func TestSequentialAgent_StatePropagation(t *testing.T) {
	llm := testModel()
	llm.AddResponse("plan it", "the plan")

	first := NewModelAgent("coordinator", llm, func(o *ModelAgentOptions) {
		o.Prompt = NewInstructionFromText("plan it")
		o.OutputKey = "plan"
	})
	second := NewModelAgent("searcher", llm, func(o *ModelAgentOptions) {
		o.Prompt = NewInstructionFromFunc(func(rc *core.RunContext) (string, error) {
			return "search using " + rc.GetStateString("plan"), nil
		})
		o.OutputKey = "sources"
	})

	rc, _ := testutil.NewRunContext(context.Background(), "crew")
	require.NoError(t, NewSequentialAgent("crew", first, second).Run(rc))

	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "search using the plan", reqs[1].Contents[0].Text())
	assert.Equal(t, "Mock response to: search using the plan", rc.GetStateString("sources"))
}
