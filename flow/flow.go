// Package flow provides the execution pipeline behind a ModelAgent.
//
// A flow turns an agent's instructions and task prompt into a model.Request
// through pluggable request processors, invokes the model once, forwards
// streaming chunks as partial events and finishes with a single final event
// whose actions carry the staged output.
package flow

import (
	"github.com/hupe1980/researchcrew/core"
	"github.com/hupe1980/researchcrew/model"
)

// Flow defines the interface for agent execution flows.
type Flow interface {
	// Execute runs the flow and returns a channel of events that represent
	// the execution progress. The channel is closed when the flow finishes.
	Execute(runCtx *core.RunContext) (<-chan core.Event, error)
}

// FlowAgent exposes the agent capabilities a flow needs without the full
// agent implementation.
type FlowAgent interface {
	// GetName returns the agent's display name.
	GetName() string

	// GetLLM returns the language model instance.
	GetLLM() model.Model

	// ResolveInstructions returns the system prompt.
	ResolveInstructions(runCtx *core.RunContext) (string, error)

	// ResolvePrompt returns the user-turn prompt. An empty prompt makes the
	// flow fall back to the run's user content.
	ResolvePrompt(runCtx *core.RunContext) (string, error)

	// IsStreamingEnabled returns whether streaming responses are enabled.
	IsStreamingEnabled() bool

	// GetOutputKey returns the session state key for saving responses.
	GetOutputKey() string

	// GetArtifactName returns the artifact id the final text is saved under, or "".
	GetArtifactName() string
}

// RequestProcessor processes the request before sending it to the LLM.
type RequestProcessor interface {
	Name() string
	ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error
}

// ResponseProcessor processes each response chunk received from the LLM.
type ResponseProcessor interface {
	Name() string
	ProcessResponse(runCtx *core.RunContext, resp *model.Response, agent FlowAgent) error
}
