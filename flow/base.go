package flow

import (
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/researchcrew/core"
	"github.com/hupe1980/researchcrew/model"
)

// BaseFlow is a single-turn flow: request processors -> one model call ->
// response processors, with partial chunks forwarded as they arrive.
type BaseFlow struct {
	agent              FlowAgent
	requestProcessors  []RequestProcessor
	responseProcessors []ResponseProcessor
}

// NewBaseFlow creates a flow without processors.
func NewBaseFlow(agent FlowAgent) *BaseFlow {
	return &BaseFlow{
		agent:              agent,
		requestProcessors:  []RequestProcessor{},
		responseProcessors: []ResponseProcessor{},
	}
}

// AddRequestProcessor appends a request processor; registration order is execution order.
func (f *BaseFlow) AddRequestProcessor(processor RequestProcessor) {
	f.requestProcessors = append(f.requestProcessors, processor)
}

// AddResponseProcessor appends a response processor executed after each model chunk.
func (f *BaseFlow) AddResponseProcessor(processor ResponseProcessor) {
	f.responseProcessors = append(f.responseProcessors, processor)
}

// Execute launches the flow asynchronously and returns a channel of Events.
// The channel is closed after the final (or error) event.
func (f *BaseFlow) Execute(runCtx *core.RunContext) (<-chan core.Event, error) {
	if f.agent.GetLLM() == nil {
		return nil, errors.New("flow: agent has no model")
	}

	eventChan := make(chan core.Event, 100)

	go func() {
		defer close(eventChan)

		fctx := runCtx.NewChildContext(eventChan, runCtx.Resume, "")
		if err := f.runOnce(runCtx, fctx); err != nil {
			f.emitError(fctx, err)
		}
	}()

	return eventChan, nil
}

// emitError converts an internal error to an error Event.
func (f *BaseFlow) emitError(fctx *core.RunContext, err error) {
	ev := core.NewErrorEvent(fctx.RunID, f.agent.GetName(), err)
	_ = fctx.EmitEvent(ev)
}

// runOnce performs one model turn. Staged state and artifacts are attached
// to the final event; the session snapshot is updated once it is emitted.
func (f *BaseFlow) runOnce(runCtx, fctx *core.RunContext) error {
	if runCtx.SessionStore != nil {
		if err := runCtx.RefreshSession(); err == nil {
			fctx.Session = runCtx.Session
		}
	}

	if runCtx.Limiter != nil {
		if err := runCtx.Limiter.Increment(); err != nil {
			return err
		}
	}

	req := new(model.Request)
	for _, processor := range f.requestProcessors {
		if err := processor.ProcessRequest(fctx, req, f.agent); err != nil {
			return fmt.Errorf("request processor %s failed: %w", processor.Name(), err)
		}
	}
	req.Stream = f.agent.IsStreamingEnabled()

	llm := f.agent.GetLLM()
	info := llm.Info()
	start := time.Now()

	respCh, errCh := llm.Generate(runCtx.Context, *req)

	for respCh != nil || errCh != nil {
		select {
		case <-runCtx.Done():
			return runCtx.Err()
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				logModelCall(runCtx, info.Name, nil, time.Since(start), err)
				return err
			}
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}

			for _, processor := range f.responseProcessors {
				if err := processor.ProcessResponse(fctx, &resp, f.agent); err != nil {
					return fmt.Errorf("response processor %s failed: %w", processor.Name(), err)
				}
			}

			ev := core.NewEvent(runCtx.RunID, f.agent.GetName())
			content := resp.Content
			ev.Content = &content

			if resp.Partial {
				partial := true
				ev.Partial = &partial
				if err := fctx.EmitEvent(ev); err != nil {
					return err
				}
				continue
			}

			complete := true
			ev.TurnComplete = &complete
			ev.Usage = resp.Usage

			logModelCall(runCtx, info.Name, resp.Usage, time.Since(start), nil)
			runCtx.LogDebug(
				"flow.model.complete",
				"agent", f.agent.GetName(),
				"model", info.Name,
				"provider", info.Provider,
				"duration_ms", time.Since(start).Milliseconds(),
				"finish_reason", resp.FinishReason,
			)

			delta := fctx.StateDelta
			if err := fctx.EmitEvent(ev); err != nil {
				return err
			}
			if runCtx.Session != nil && len(delta) > 0 {
				runCtx.Session.ApplyStateDelta(delta)
			}

			// Wait for session persistence (runner sends resume after append)
			return fctx.WaitForResume()
		}
	}

	return errors.New("model returned no final response")
}

type llmCallLogger interface {
	LogLLMCall(model string, tokens int, dur time.Duration, success bool, err error)
}

func logModelCall(runCtx *core.RunContext, modelName string, usage *core.TokenUsage, dur time.Duration, err error) {
	l, ok := runCtx.Logger().(llmCallLogger)
	if !ok {
		return
	}
	tokens := 0
	if usage != nil {
		tokens = usage.TotalTokens
	}
	l.LogLLMCall(modelName, tokens, dur, err == nil, err)
}

// TaskFlow executes one crew task: resolved instructions as the system
// prompt, the task prompt as the user turn, the final text stored under the
// agent's output key (and artifact, when configured).
type TaskFlow struct{ *BaseFlow }

// NewTaskFlow wires the default processors around a BaseFlow.
func NewTaskFlow(agent FlowAgent) *TaskFlow {
	baseFlow := NewBaseFlow(agent)

	baseFlow.AddRequestProcessor(NewInstructionsProcessor())
	baseFlow.AddRequestProcessor(NewPromptProcessor())
	baseFlow.AddResponseProcessor(NewOutputProcessor())

	return &TaskFlow{BaseFlow: baseFlow}
}
