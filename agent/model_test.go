package agent

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

func testModel() *model.MockModel { return model.NewMockModel("test-model", "mock") }

func drain(ch <-chan core.Event) []core.Event {
	var events []core.Event
	for {
		select {
		case ev := <-ch:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestModelAgent_NewAgent(t *testing.T) {
	llm := testModel()
	agent := NewModelAgent("Test Agent", llm)

	assert.Equal(t, llm, agent.GetLLM())
	assert.False(t, agent.IsStreamingEnabled())
	assert.Empty(t, agent.GetOutputKey())

	inst, err := agent.ResolveInstructions(newTestRunContext())
	require.NoError(t, err)
	assert.Equal(t, "You are Test Agent, a helpful AI assistant.", inst)
}

func TestModelAgent_Options(t *testing.T) {
	agent := NewModelAgent("writer", testModel(), func(o *ModelAgentOptions) {
		o.Instruction = NewInstructionFromText("You are a Content Writer.")
		o.Prompt = NewInstructionFromText("Write the report")
		o.Description = "Writes reports"
		o.EnableStreaming = true
		o.OutputKey = "report"
		o.ArtifactName = "report.md"
	})

	assert.Equal(t, "Writes reports", agent.Description())
	assert.True(t, agent.IsStreamingEnabled())
	assert.Equal(t, "report", agent.GetOutputKey())
	assert.Equal(t, "report.md", agent.GetArtifactName())

	prompt, err := agent.ResolvePrompt(newTestRunContext())
	require.NoError(t, err)
	assert.Equal(t, "Write the report", prompt)
}

func TestModelAgent_Run(t *testing.T) {
	llm := testModel()
	llm.AddResponse("Analyze the sources", "Key findings")

	agent := NewModelAgent("analyst", llm, func(o *ModelAgentOptions) {
		o.Prompt = NewInstructionFromText("Analyze the sources")
		o.OutputKey = "analysis"
	})

	rc, emit := testutil.NewRunContext(context.Background(), "analyst")
	require.NoError(t, agent.Run(rc))

	events := drain(emit)
	require.Len(t, events, 2)
	assert.Equal(t, PhaseStarted, events[0].Metadata(MetaPhase))
	assert.Nil(t, events[0].Content)
	assert.True(t, events[1].IsFinalResponse())
	assert.Equal(t, "Key findings", events[1].Text())
	assert.Equal(t, "Key findings", events[1].Actions.StateDelta["analysis"])
	assert.Equal(t, "Key findings", rc.GetStateString("analysis"))
}

func TestModelAgent_RunModelError(t *testing.T) {
	llm := testModel()
	llm.SetError(errors.New("upstream unavailable"))

	agent := NewModelAgent("analyst", llm, func(o *ModelAgentOptions) {
		o.Prompt = NewInstructionFromText("Analyze")
	})

	rc, emit := testutil.NewRunContext(context.Background(), "analyst")
	err := agent.Run(rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream unavailable")

	events := drain(emit)
	require.Len(t, events, 2)
	assert.True(t, events[1].IsError())
}
