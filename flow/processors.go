package flow

import (
	"fmt"

	"github.com/hupe1980/researchcrew/core"
	internalutil "github.com/hupe1980/researchcrew/internal/util"
	"github.com/hupe1980/researchcrew/model"
)

// InstructionsProcessor resolves the system prompt and renders it against
// session state.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest sets req.Instructions.
func (p *InstructionsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	instructions, err := agent.ResolveInstructions(runCtx)
	if err != nil {
		return fmt.Errorf("failed to resolve instruction: %w", err)
	}

	runCtx.LogDebug("agent.instruction.resolved", "agent", agent.GetName(), "length", len(instructions))

	if runCtx.Session == nil {
		req.Instructions = instructions
		return nil
	}

	req.Instructions, err = internalutil.RenderTemplate(instructions, runCtx.Session.StateSnapshot())
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}
	return nil
}

// PromptProcessor sets the single user turn. The prompt is sent as is since
// it may embed earlier model output.
type PromptProcessor struct{}

// NewPromptProcessor creates a new prompt processor.
func NewPromptProcessor() *PromptProcessor { return &PromptProcessor{} }

// Name returns the processor's identifier.
func (p *PromptProcessor) Name() string { return "prompt" }

// ProcessRequest sets req.Contents to the task prompt or the run's user content.
func (p *PromptProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	prompt, err := agent.ResolvePrompt(runCtx)
	if err != nil {
		return fmt.Errorf("failed to resolve prompt: %w", err)
	}

	if prompt == "" {
		if runCtx.UserContent.Text() == "" {
			return fmt.Errorf("agent %s has no prompt", agent.GetName())
		}
		req.Contents = []core.Content{runCtx.UserContent}
		return nil
	}

	req.Contents = []core.Content{core.NewTextContent("user", prompt)}
	return nil
}

// OutputProcessor stages the final response text under the agent's output
// key and saves it as an artifact when the agent names one.
type OutputProcessor struct{}

// NewOutputProcessor creates a new output processor.
func NewOutputProcessor() *OutputProcessor { return &OutputProcessor{} }

// Name returns the processor's identifier.
func (p *OutputProcessor) Name() string { return "output" }

// ProcessResponse ignores partial chunks.
func (p *OutputProcessor) ProcessResponse(runCtx *core.RunContext, resp *model.Response, agent FlowAgent) error {
	if resp.Partial {
		return nil
	}
	text := resp.Content.Text()

	if key := agent.GetOutputKey(); key != "" {
		runCtx.SetState(key, text)
	}

	if name := agent.GetArtifactName(); name != "" && runCtx.ArtifactStore != nil {
		if err := runCtx.SaveArtifact(name, []byte(text)); err != nil {
			return fmt.Errorf("save artifact %s: %w", name, err)
		}
	}
	return nil
}
