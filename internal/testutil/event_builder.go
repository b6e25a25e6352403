package testutil

import (
	"errors"

	"github.com/hupe1980/researchcrew/core"
)

// EventBuilder provides a fluent helper for constructing events in tests.
// Example:
//
//	ev := NewEventBuilder().Author("agent").Run("run-1").AssistantText("hello").Build()
type EventBuilder struct {
	author       string
	runID        string
	id           string
	role         string
	textParts    []string
	partial      *bool
	turnComplete *bool
	errMsg       string
	usage        *core.TokenUsage
	metadata     map[string]string
	actions      core.EventActions
	branch       *string
}

// NewEventBuilder creates a builder with default author "agent".
func NewEventBuilder() *EventBuilder { return &EventBuilder{author: "agent"} }

// Author sets the author name for the event (chainable).
func (b *EventBuilder) Author(a string) *EventBuilder { b.author = a; return b }

// Run sets the run ID associated with the event (chainable).
func (b *EventBuilder) Run(id string) *EventBuilder { b.runID = id; return b }

// ID overrides the auto-generated event ID (chainable).
func (b *EventBuilder) ID(id string) *EventBuilder { b.id = id; return b }

// Branch sets the branch label (chainable).
func (b *EventBuilder) Branch(br string) *EventBuilder { b.branch = &br; return b }

// Partial marks the event as a streaming / partial chunk (chainable).
func (b *EventBuilder) Partial(p bool) *EventBuilder { b.partial = &p; return b }

// TurnComplete sets the TurnComplete flag (chainable).
func (b *EventBuilder) TurnComplete(c bool) *EventBuilder { b.turnComplete = &c; return b }

// UserText appends a user role text part and sets role to user (chainable).
func (b *EventBuilder) UserText(t string) *EventBuilder {
	b.role = "user"
	b.textParts = append(b.textParts, t)
	return b
}

// AssistantText appends an assistant role text part and sets role to assistant (chainable).
func (b *EventBuilder) AssistantText(t string) *EventBuilder {
	b.role = "assistant"
	b.textParts = append(b.textParts, t)
	return b
}

// Error attaches an error message (chainable).
func (b *EventBuilder) Error(msg string) *EventBuilder { b.errMsg = msg; return b }

// Usage attaches token usage (chainable).
func (b *EventBuilder) Usage(prompt, completion int) *EventBuilder {
	b.usage = &core.TokenUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion}
	return b
}

// Meta sets a custom metadata entry (chainable).
func (b *EventBuilder) Meta(k, v string) *EventBuilder {
	if b.metadata == nil {
		b.metadata = map[string]string{}
	}
	b.metadata[k] = v
	return b
}

// StateDelta adds a state delta entry (chainable).
func (b *EventBuilder) StateDelta(k string, v any) *EventBuilder {
	if b.actions.StateDelta == nil {
		b.actions.StateDelta = map[string]any{}
	}
	b.actions.StateDelta[k] = v
	return b
}

// Build constructs the core.Event value.
func (b *EventBuilder) Build() core.Event {
	ev := core.NewEvent(b.runID, b.author)
	if b.errMsg != "" {
		ev = core.NewErrorEvent(b.runID, b.author, errors.New(b.errMsg))
	}
	if b.id != "" {
		ev.ID = b.id
	}
	ev.Branch = b.branch
	ev.Partial = b.partial
	ev.TurnComplete = b.turnComplete
	ev.Usage = b.usage
	ev.CustomMetadata = b.metadata
	ev.Actions = b.actions

	if len(b.textParts) > 0 {
		parts := make([]core.Part, 0, len(b.textParts))
		for _, t := range b.textParts {
			parts = append(parts, core.TextPart{Text: t})
		}
		ev.Content = &core.Content{Role: b.role, Parts: parts}
	}
	return ev
}
