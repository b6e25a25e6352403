package crew

import (
	"errors"
	"time"

	"github.com/hupe1980/researchcrew/agent"
	"github.com/hupe1980/researchcrew/core"
)

// ProgressType names a kickoff milestone.
type ProgressType string

// Progress types emitted during Kickoff.
const (
	TaskStarted       ProgressType = "task_started"
	TaskDelta         ProgressType = "task_delta"
	TaskCompleted     ProgressType = "task_completed"
	ResearchFailed    ProgressType = "research_failed"
	ResearchCompleted ProgressType = "research_completed"
)

// Progress is a kickoff notification suitable for UIs.
type Progress struct {
	Type      ProgressType `json:"type"`
	RunID     string       `json:"run_id"`
	SessionID string       `json:"session_id"`
	Topic     string       `json:"topic"`
	Task      string       `json:"task,omitempty"`
	Agent     string       `json:"agent,omitempty"`
	Step      int          `json:"step,omitempty"`
	Total     int          `json:"total,omitempty"`
	Text      string       `json:"text,omitempty"`
	Error     string       `json:"error,omitempty"`
	Time      time.Time    `json:"time"`
}

// progressTracker turns runner events into task outputs and progress.
type progressTracker struct {
	crew      *Crew
	runID     string
	sessionID string
	byName    map[string]int
	started   map[string]time.Time
}

func (p *progressTracker) handle(ev core.Event) (TaskOutput, bool) {
	idx, ok := p.byName[ev.Author]
	if !ok {
		return TaskOutput{}, false
	}
	task := p.crew.Tasks[idx]
	base := Progress{
		RunID:     p.runID,
		SessionID: p.sessionID,
		Task:      task.Name,
		Agent:     task.Agent.Role,
		Step:      idx + 1,
		Total:     len(p.crew.Tasks),
	}

	switch {
	case ev.Metadata(agent.MetaPhase) == agent.PhaseStarted:
		p.started[task.Name] = time.Now()
		base.Type = TaskStarted
		p.crew.notify(base)
	case ev.IsError():
		err := errors.New(*ev.ErrorMessage)
		p.crew.logTask(task, time.Since(p.started[task.Name]), err)
	case ev.IsPartial():
		base.Type = TaskDelta
		base.Text = ev.Text()
		p.crew.notify(base)
	case ev.IsFinalResponse():
		dur := time.Since(p.started[task.Name])
		p.crew.logTask(task, dur, nil)
		base.Type = TaskCompleted
		p.crew.notify(base)

		out := TaskOutput{
			Name:      task.Name,
			Agent:     task.Agent.Role,
			OutputKey: task.OutputKey,
			Output:    ev.Text(),
			Duration:  dur,
		}
		if ev.Usage != nil {
			out.Usage = *ev.Usage
		}
		return out, true
	}
	return TaskOutput{}, false
}
