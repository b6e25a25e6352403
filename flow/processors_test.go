package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/researchcrew/artifact"
	"github.com/hupe1980/researchcrew/core"
	"github.com/hupe1980/researchcrew/internal/testutil"
	"github.com/hupe1980/researchcrew/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFlowAgent struct {
	name         string
	llm          model.Model
	instructions string
	prompt       string
	promptErr    error
	streaming    bool
	outputKey    string
	artifactName string
}

func (m *mockFlowAgent) GetName() string          { return m.name }
func (m *mockFlowAgent) GetLLM() model.Model      { return m.llm }
func (m *mockFlowAgent) IsStreamingEnabled() bool { return m.streaming }
func (m *mockFlowAgent) GetOutputKey() string     { return m.outputKey }
func (m *mockFlowAgent) GetArtifactName() string  { return m.artifactName }
func (m *mockFlowAgent) ResolveInstructions(_ *core.RunContext) (string, error) {
	return m.instructions, nil
}
func (m *mockFlowAgent) ResolvePrompt(_ *core.RunContext) (string, error) {
	return m.prompt, m.promptErr
}

func TestInstructionsProcessor_RendersState(t *testing.T) {
	sess := testutil.NewSessionBuilder("s1").State("topic", "AI in Healthcare").Build()
	rc, _ := testutil.NewRunContext(context.Background(), "coordinator", func(o *testutil.RunContextOptions) {
		o.Session = sess
	})
	agent := &mockFlowAgent{name: "coordinator", instructions: "Plan research on {{.topic}}."}

	req := &model.Request{}
	require.NoError(t, NewInstructionsProcessor().ProcessRequest(rc, req, agent))
	assert.Equal(t, "Plan research on AI in Healthcare.", req.Instructions)
	assert.Equal(t, "instructions", NewInstructionsProcessor().Name())
}

func TestPromptProcessor(t *testing.T) {
	rc, _ := testutil.NewRunContext(context.Background(), "searcher")

	t.Run("prompt is sent verbatim", func(t *testing.T) {
		req := &model.Request{}
		agent := &mockFlowAgent{name: "searcher", prompt: "Context: {{not a template}}"}
		require.NoError(t, NewPromptProcessor().ProcessRequest(rc, req, agent))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "user", req.Contents[0].Role)
		assert.Equal(t, "Context: {{not a template}}", req.Contents[0].Text())
	})

	t.Run("falls back to user content", func(t *testing.T) {
		req := &model.Request{}
		require.NoError(t, NewPromptProcessor().ProcessRequest(rc, req, &mockFlowAgent{name: "searcher"}))
		assert.Equal(t, "test", req.Contents[0].Text())
	})

	t.Run("resolve error", func(t *testing.T) {
		req := &model.Request{}
		agent := &mockFlowAgent{name: "searcher", promptErr: errors.New("boom")}
		assert.ErrorContains(t, NewPromptProcessor().ProcessRequest(rc, req, agent), "boom")
	})
}

func TestOutputProcessor(t *testing.T) {
	store := artifact.NewInMemoryStore()
	rc, _ := testutil.NewRunContext(context.Background(), "writer", func(o *testutil.RunContextOptions) {
		o.ArtifactStore = store
	})
	agent := &mockFlowAgent{name: "writer", outputKey: "report", artifactName: "report.md"}
	p := NewOutputProcessor()

	partial := &model.Response{Partial: true, Content: core.NewTextContent("assistant", "# Re")}
	require.NoError(t, p.ProcessResponse(rc, partial, agent))
	assert.Empty(t, rc.StateDelta)

	final := &model.Response{Content: core.NewTextContent("assistant", "# Report")}
	require.NoError(t, p.ProcessResponse(rc, final, agent))
	assert.Equal(t, "# Report", rc.StateDelta["report"])
	assert.Equal(t, []string{"report.md"}, rc.Artifacts)

	data, err := store.Get(rc.SessionID, "report.md")
	require.NoError(t, err)
	assert.Equal(t, "# Report", string(data))
}
