package crew

import (
	"testing"
	"time"

	"github.com/hupe1980/researchcrew/agent"
	"github.com/hupe1980/researchcrew/internal/testutil"
	"github.com/hupe1980/researchcrew/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T) (*progressTracker, *[]Progress) {
	t.Helper()
	var got []Progress
	c, err := CreateResearchCrew("Fusion Energy", model.NewMockModel("m", "mock"), func(o *Options) {
		o.OnProgress = func(p Progress) { got = append(got, p) }
	})
	require.NoError(t, err)

	_, byName := c.buildPipeline()
	return &progressTracker{crew: c, runID: "run-1", sessionID: "sess-1", byName: byName, started: map[string]time.Time{}}, &got
}

func TestProgressTrackerLifecycle(t *testing.T) {
	tracker, got := newTracker(t)

	_, ok := tracker.handle(testutil.NewEventBuilder().Author("search").Run("run-1").Meta(agent.MetaPhase, agent.PhaseStarted).Build())
	assert.False(t, ok)

	_, ok = tracker.handle(testutil.NewEventBuilder().Author("search").Run("run-1").Partial(true).AssistantText("par").Build())
	assert.False(t, ok)

	out, ok := tracker.handle(testutil.NewEventBuilder().Author("search").Run("run-1").TurnComplete(true).AssistantText("sources").Usage(3, 4).Build())
	require.True(t, ok)
	assert.Equal(t, "search", out.Name)
	assert.Equal(t, "Literature Searcher", out.Agent)
	assert.Equal(t, KeySources, out.OutputKey)
	assert.Equal(t, "sources", out.Output)
	assert.Equal(t, 7, out.Usage.TotalTokens)

	require.Len(t, *got, 3)
	types := []ProgressType{TaskStarted, TaskDelta, TaskCompleted}
	for i, p := range *got {
		assert.Equal(t, types[i], p.Type)
		assert.Equal(t, 2, p.Step)
		assert.Equal(t, 4, p.Total)
		assert.Equal(t, "Fusion Energy", p.Topic)
		assert.Equal(t, "sess-1", p.SessionID)
	}
	assert.Equal(t, "par", (*got)[1].Text)
}

func TestProgressTrackerIgnoresOtherAuthors(t *testing.T) {
	tracker, got := newTracker(t)

	_, ok := tracker.handle(testutil.NewEventBuilder().Author("user").UserText("Fusion Energy").Build())
	assert.False(t, ok)
	_, ok = tracker.handle(testutil.NewEventBuilder().Author("research_crew").AssistantText("x").Build())
	assert.False(t, ok)
	assert.Empty(t, *got)
}

func TestProgressTrackerErrorEvent(t *testing.T) {
	tracker, got := newTracker(t)

	out, ok := tracker.handle(testutil.NewEventBuilder().Author("writing").Error("model failed").Build())
	assert.False(t, ok)
	assert.Empty(t, out.Output)
	assert.Empty(t, *got)
}
