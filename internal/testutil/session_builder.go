package testutil

import (
	"context"

	"github.com/hupe1980/researchcrew/core"
)

// SessionBuilder helps construct sessions with fluent chaining for tests.
// Example:
//
//	sess := NewSessionBuilder("sess-1").State("k","v").Events(ev1, ev2).Build()
type SessionBuilder struct {
	id     string
	state  map[string]any
	events []core.Event
}

// NewSessionBuilder creates a new builder for a session with the given id.
// Use chainable methods (State, Event, Events) then call Build.
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{id: id, state: map[string]any{}}
}

// State sets or overwrites a state key/value pair on the resulting session (chainable).
func (b *SessionBuilder) State(key string, val any) *SessionBuilder {
	b.state[key] = val
	return b
}

// Event appends a single event to the session history (chainable).
func (b *SessionBuilder) Event(ev core.Event) *SessionBuilder {
	b.events = append(b.events, ev)
	return b
}

// Events appends multiple events to the session history (chainable).
func (b *SessionBuilder) Events(evs ...core.Event) *SessionBuilder {
	b.events = append(b.events, evs...)
	return b
}

// Build returns a *core.Session with pre-populated state and events.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.id)

	for k, v := range b.state {
		s.State[k] = v
	}

	s.Events = append(s.Events, b.events...)

	return s
}

// RunContextOptions configures NewRunContext.
type RunContextOptions struct {
	Session       *core.Session
	SessionStore  core.SessionStore
	ArtifactStore core.ArtifactStore
	MaxModelCalls int
	Resume        <-chan struct{}
	BufferSize    int
}

// NewRunContext builds a RunContext for agent tests. It returns the context
// and the receive side of its emit channel.
func NewRunContext(ctx context.Context, agentName string, optFns ...func(o *RunContextOptions)) (*core.RunContext, <-chan core.Event) {
	opts := RunContextOptions{BufferSize: 64}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Session == nil {
		opts.Session = core.NewSession("sess-test")
	}
	emit := make(chan core.Event, opts.BufferSize)
	rc := core.NewRunContext(
		ctx,
		opts.Session.ID,
		"run-test",
		core.AgentInfo{Name: agentName, Type: "test"},
		core.NewTextContent("user", "test"),
		opts.MaxModelCalls,
		emit,
		opts.Resume,
		opts.Session,
		opts.SessionStore,
		opts.ArtifactStore,
		nil,
	)
	return rc, emit
}
