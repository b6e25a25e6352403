package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/researchcrew/core"
)

// Request captures the normalized model input produced by flows.
type Request struct {
	Instructions string         `json:"instructions"` // System prompt
	Contents     []core.Content `json:"contents"`     // Conversation turns converted to provider messages
	Stream       bool           `json:"stream,omitempty"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID           string           `json:"id"`
	Partial      bool             `json:"partial"`
	Content      core.Content     `json:"content"`
	FinishReason string           `json:"finish_reason"` // "stop", "length", "end_turn", etc.
	Usage        *core.TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock"
}

// Model is the minimal interface required by flows & agents to drive generation.
// Implementations close both channels when generation terminates and send at
// most one error.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)
	Info() Info
}

// SystemPrompt returns req.Instructions followed by any system-role contents,
// separated by blank lines.
func SystemPrompt(req Request) string {
	out := req.Instructions
	for _, c := range req.Contents {
		if c.Role != "system" {
			continue
		}
		if t := c.Text(); t != "" {
			if out != "" {
				out += "\n\n"
			}
			out += t
		}
	}
	return out
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Responses are looked up by the text of the last content; unknown prompts
// produce "Mock response to: <prompt>".
type MockModel struct {
	info      Info
	mu        sync.Mutex
	responses map[string]string
	err       error
	requests  []Request
}

// NewMockModel constructs a MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// SetError makes every subsequent Generate call fail with err.
func (m *MockModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Requests returns a copy of all requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Generate implements Model; emits optional streaming chunks then a final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	failWith := m.err
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if failWith != nil {
			errCh <- failWith
			return
		}
		if len(req.Contents) == 0 {
			errCh <- fmt.Errorf("no contents provided")
			return
		}
		inputText := req.Contents[len(req.Contents)-1].Text()

		m.mu.Lock()
		full := m.responses[inputText]
		m.mu.Unlock()
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", inputText)
		}

		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Content: core.NewTextContent("assistant", string(r))}:
				}
			}
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{
			Content:      core.NewTextContent("assistant", full),
			FinishReason: "stop",
			Usage:        &core.TokenUsage{PromptTokens: len(inputText), CompletionTokens: len(full), TotalTokens: len(inputText) + len(full)},
		}:
		}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
