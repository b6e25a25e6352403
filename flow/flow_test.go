package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/researchcrew/core"
	"github.com/hupe1980/researchcrew/internal/testutil"
	"github.com/hupe1980/researchcrew/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan core.Event) []core.Event {
	t.Helper()
	var events []core.Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestTaskFlow_FinalEventCarriesOutput(t *testing.T) {
	llm := model.NewMockModel("test-model", "mock")
	llm.AddResponse("Create a plan", "1. Scope\n2. Sources")

	sess := core.NewSession("s1")
	rc, _ := testutil.NewRunContext(context.Background(), "coordinator", func(o *testutil.RunContextOptions) {
		o.Session = sess
	})
	agent := &mockFlowAgent{name: "coordinator", llm: llm, instructions: "You are a coordinator.", prompt: "Create a plan", outputKey: "plan"}

	ch, err := NewTaskFlow(agent).Execute(rc)
	require.NoError(t, err)
	events := collect(t, ch)

	require.Len(t, events, 1)
	ev := events[0]
	assert.True(t, ev.IsFinalResponse())
	assert.True(t, ev.IsTurnComplete())
	assert.Equal(t, "coordinator", ev.Author)
	assert.Equal(t, "1. Scope\n2. Sources", ev.Text())
	assert.Equal(t, "1. Scope\n2. Sources", ev.Actions.StateDelta["plan"])
	require.NotNil(t, ev.Usage)

	v, ok := sess.GetState("plan")
	require.True(t, ok)
	assert.Equal(t, "1. Scope\n2. Sources", v)

	reqs := llm.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "You are a coordinator.", reqs[0].Instructions)
	assert.False(t, reqs[0].Stream)
}

func TestTaskFlow_Streaming(t *testing.T) {
	llm := model.NewMockModel("test-model", "mock")
	llm.AddResponse("go", "abc")

	rc, _ := testutil.NewRunContext(context.Background(), "writer")
	agent := &mockFlowAgent{name: "writer", llm: llm, prompt: "go", streaming: true, outputKey: "report"}

	ch, err := NewTaskFlow(agent).Execute(rc)
	require.NoError(t, err)
	events := collect(t, ch)

	require.Len(t, events, 4)
	for _, ev := range events[:3] {
		assert.True(t, ev.IsPartial())
		assert.Empty(t, ev.Actions.StateDelta)
	}
	assert.Equal(t, "abc", events[3].Text())
	assert.Equal(t, "abc", events[3].Actions.StateDelta["report"])
}

func TestTaskFlow_ModelError(t *testing.T) {
	llm := model.NewMockModel("test-model", "mock")
	llm.SetError(errors.New("rate limited"))

	rc, _ := testutil.NewRunContext(context.Background(), "analyst")
	agent := &mockFlowAgent{name: "analyst", llm: llm, prompt: "analyze"}

	ch, err := NewTaskFlow(agent).Execute(rc)
	require.NoError(t, err)
	events := collect(t, ch)

	require.Len(t, events, 1)
	assert.True(t, events[0].IsError())
	assert.Contains(t, *events[0].ErrorMessage, "rate limited")
}

func TestTaskFlow_ModelCallLimit(t *testing.T) {
	llm := model.NewMockModel("test-model", "mock")
	rc, _ := testutil.NewRunContext(context.Background(), "analyst", func(o *testutil.RunContextOptions) {
		o.MaxModelCalls = 1
	})
	agent := &mockFlowAgent{name: "analyst", llm: llm, prompt: "analyze"}

	first := collect(t, mustExecute(t, NewTaskFlow(agent), rc))
	require.Len(t, first, 1)
	assert.False(t, first[0].IsError())

	second := collect(t, mustExecute(t, NewTaskFlow(agent), rc))
	require.Len(t, second, 1)
	assert.True(t, second[0].IsError())
	assert.Contains(t, *second[0].ErrorMessage, "exceeded max model calls")
}

func TestTaskFlow_WaitsForResume(t *testing.T) {
	llm := model.NewMockModel("test-model", "mock")
	resume := make(chan struct{}, 1)
	rc, _ := testutil.NewRunContext(context.Background(), "writer", func(o *testutil.RunContextOptions) {
		o.Resume = resume
	})
	agent := &mockFlowAgent{name: "writer", llm: llm, prompt: "write"}

	ch := mustExecute(t, NewTaskFlow(agent), rc)
	ev := <-ch
	assert.True(t, ev.IsTurnComplete())

	resume <- struct{}{}
	_, open := <-ch
	assert.False(t, open)
}

func TestTaskFlow_NoModel(t *testing.T) {
	rc, _ := testutil.NewRunContext(context.Background(), "writer")
	_, err := NewTaskFlow(&mockFlowAgent{name: "writer"}).Execute(rc)
	assert.Error(t, err)
}

func mustExecute(t *testing.T, f Flow, rc *core.RunContext) <-chan core.Event {
	t.Helper()
	ch, err := f.Execute(rc)
	require.NoError(t, err)
	return ch
}
