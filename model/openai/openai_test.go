package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/researchcrew/core"
	"github.com/hupe1980/researchcrew/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessages(t *testing.T) {
	msgs := buildMessages(model.Request{
		Instructions: "be precise",
		Contents: []core.Content{
			core.NewTextContent("user", "hello"),
			core.NewTextContent("assistant", "hi"),
			{Role: "user"},
		},
	})
	require.Len(t, msgs, 3)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	assert.NotNil(t, msgs[2].OfAssistant)
}

func TestModel_GenerateNonStreaming(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "Key findings"},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 7, "completion_tokens": 2, "total_tokens": 9}
		}`)
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})

	respCh, errCh := m.Generate(context.Background(), model.Request{
		Instructions: "You are an Information Analyst.",
		Contents:     []core.Content{core.NewTextContent("user", "Analyze")},
	})

	var resps []model.Response
	for r := range respCh {
		resps = append(resps, r)
	}
	require.NoError(t, <-errCh)
	require.Len(t, resps, 1)
	assert.Equal(t, "Key findings", resps[0].Content.Text())
	assert.Equal(t, "stop", resps[0].FinishReason)
	require.NotNil(t, resps[0].Usage)
	assert.Equal(t, 9, resps[0].Usage.TotalTokens)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestModel_Info(t *testing.T) {
	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.Model = "gpt-4o"
	})
	assert.Equal(t, model.Info{Name: "gpt-4o", Provider: "openai"}, m.Info())
}
