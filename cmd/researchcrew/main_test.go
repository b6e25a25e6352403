package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/hupe1980/researchcrew/artifact"
	"github.com/hupe1980/researchcrew/artifact/sqlite"
	"github.com/hupe1980/researchcrew/config"
	"github.com/hupe1980/researchcrew/crew"
	"github.com/hupe1980/researchcrew/model"
	"github.com/hupe1980/researchcrew/model/anthropic"
	"github.com/hupe1980/researchcrew/model/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModel(t *testing.T) {
	t.Run("anthropic", func(t *testing.T) {
		m := newModel(config.LLMConfig{Provider: config.ProviderAnthropic, AnthropicAPIKey: "k", Model: "claude-test"})
		require.IsType(t, &anthropic.Model{}, m)
		assert.Equal(t, "claude-test", m.Info().Name)
		assert.Equal(t, "anthropic", m.Info().Provider)
	})

	t.Run("openai", func(t *testing.T) {
		m := newModel(config.LLMConfig{Provider: config.ProviderOpenAI, OpenAIAPIKey: "k", Model: "gpt-test"})
		require.IsType(t, &openai.Model{}, m)
		assert.Equal(t, "gpt-test", m.Info().Name)
	})
}

func TestNewArtifactStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, closeFn, err := newArtifactStore(config.StoreConfig{})
		require.NoError(t, err)
		assert.IsType(t, &artifact.InMemoryStore{}, store)
		assert.NoError(t, closeFn())
	})

	t.Run("sqlite", func(t *testing.T) {
		store, closeFn, err := newArtifactStore(config.StoreConfig{Path: filepath.Join(t.TempDir(), "reports.db")})
		require.NoError(t, err)
		assert.IsType(t, &sqlite.Store{}, store)
		assert.NoError(t, closeFn())
	})
}

func TestResearch(t *testing.T) {
	llm := model.NewMockModel("mock", "test")

	res, err := research(context.Background(), llm, "Ocean Acidification")
	require.NoError(t, err)
	assert.Len(t, res.Tasks, 4)
	assert.Equal(t, res.Tasks[3].Output, res.Final)
}

func TestResearchEmptyTopic(t *testing.T) {
	_, err := research(context.Background(), model.NewMockModel("mock", "test"), " ")
	assert.ErrorIs(t, err, crew.ErrEmptyTopic)
}

func TestRunResearchRequiresTopic(t *testing.T) {
	var buf bytes.Buffer
	err := runResearch([]string{"-o", "out.md"}, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage")
	assert.Empty(t, buf.String())
}
