package agent

import (
	"errors"
	"fmt"

	"github.com/hupe1980/researchcrew/core"
	"github.com/hupe1980/researchcrew/flow"
	"github.com/hupe1980/researchcrew/model"
)

// Metadata keys and values attached to lifecycle events emitted by ModelAgent.
const (
	MetaPhase    = "phase"
	PhaseStarted = "started"
)

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	// Instruction is the system prompt.
	Instruction Instruction
	// Prompt is the user turn; empty falls back to the run's user content.
	Prompt          Instruction
	Description     string
	EnableStreaming bool
	// OutputKey is the session state key the final text is stored under.
	OutputKey string
	// ArtifactName, when set, also saves the final text to the artifact store.
	ArtifactName string
}

// ModelAgent performs one model turn per Run: it resolves its instruction
// and prompt, calls the model through a flow.TaskFlow and stores the answer
// under its output key.
type ModelAgent struct {
	BaseAgent
	llm             model.Model
	instruction     Instruction
	prompt          Instruction
	enableStreaming bool
	outputKey       string
	artifactName    string
}

// NewModelAgent creates a new model-based agent.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction: NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	a := &ModelAgent{
		BaseAgent:       NewBaseAgent(name),
		llm:             llm,
		instruction:     opts.Instruction,
		prompt:          opts.Prompt,
		enableStreaming: opts.EnableStreaming,
		outputKey:       opts.OutputKey,
		artifactName:    opts.ArtifactName,
	}
	if opts.Description != "" {
		a.SetDescription(opts.Description)
	}
	return a
}

// GetName returns the agent's display name.
func (a *ModelAgent) GetName() string { return a.Name() }

// GetLLM returns the language model instance.
func (a *ModelAgent) GetLLM() model.Model { return a.llm }

// IsStreamingEnabled returns whether streaming responses are enabled.
func (a *ModelAgent) IsStreamingEnabled() bool { return a.enableStreaming }

// GetOutputKey returns the session state key for saving responses.
func (a *ModelAgent) GetOutputKey() string { return a.outputKey }

// GetArtifactName returns the artifact id for the final text, or "".
func (a *ModelAgent) GetArtifactName() string { return a.artifactName }

// ResolveInstructions produces the system prompt.
func (a *ModelAgent) ResolveInstructions(runCtx *core.RunContext) (string, error) {
	return a.instruction.Resolve(runCtx)
}

// ResolvePrompt produces the user-turn prompt.
func (a *ModelAgent) ResolvePrompt(runCtx *core.RunContext) (string, error) {
	return a.prompt.Resolve(runCtx)
}

// Run implements core.Agent. It announces the task with a "started" event,
// then forwards every flow event to the parent context. An error event from
// the flow fails the run.
func (a *ModelAgent) Run(runCtx *core.RunContext) error {
	runCtx.LogDebug("agent.run.start", "agent", a.Name(), "run", runCtx.RunID)

	started := core.NewEvent(runCtx.RunID, a.Name())
	started.CustomMetadata = map[string]string{MetaPhase: PhaseStarted}
	if err := runCtx.EmitEvent(started); err != nil {
		return err
	}

	eventChan, err := flow.NewTaskFlow(a).Execute(runCtx)
	if err != nil {
		runCtx.LogError("agent.flow.execute.error", "agent", a.Name(), "error", err.Error())
		return fmt.Errorf("flow execution failed: %w", err)
	}

	var runErr error
	for event := range eventChan {
		if event.IsError() && runErr == nil {
			runErr = errors.New(*event.ErrorMessage)
		}
		select {
		case runCtx.Emit <- event:
		case <-runCtx.Done():
			runCtx.LogWarn("agent.run.context_done", "agent", a.Name(), "error", runCtx.Err())
			return runCtx.Err()
		}
	}

	if err := runCtx.Err(); err != nil {
		return err
	}

	if runErr != nil {
		runCtx.LogError("agent.run.failed", "agent", a.Name(), "error", runErr.Error())
		return runErr
	}

	runCtx.LogDebug("agent.run.complete", "agent", a.Name())
	return nil
}
