package crew

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/researchcrew/agent"
	"github.com/hupe1980/researchcrew/artifact"
	"github.com/hupe1980/researchcrew/core"
	"github.com/hupe1980/researchcrew/logging"
	"github.com/hupe1980/researchcrew/model"
	"github.com/hupe1980/researchcrew/runner"
	"github.com/hupe1980/researchcrew/session"
)

// Artifact ids written for every run.
const (
	ReportArtifact = "report.md"
	TopicArtifact  = "topic.txt"
)

var (
	// ErrEmptyTopic is returned when a crew is created for a blank topic.
	ErrEmptyTopic = errors.New("crew: topic must not be empty")
	// ErrUnknownAgent is returned when a task references an agent that is not
	// part of the crew.
	ErrUnknownAgent = errors.New("crew: task references unknown agent")
	// ErrMissingModel is returned when an agent has no model.
	ErrMissingModel = errors.New("crew: agent has no model")
)

// Options configures how a crew executes.
type Options struct {
	SessionStore  core.SessionStore
	ArtifactStore core.ArtifactStore
	Logger        logging.Logger
	// MaxModelCalls bounds model calls per kickoff (0 = unlimited).
	MaxModelCalls int
	// Streaming forwards model output chunks as TaskDelta progress.
	Streaming bool
	// Timeout bounds a whole kickoff (0 = none).
	Timeout time.Duration
	// OnProgress receives progress notifications. It is called synchronously.
	OnProgress func(Progress)
}

// Crew is an ordered set of agents and the tasks they execute for a topic.
type Crew struct {
	Topic  string
	Agents []*AgentSpec
	Tasks  []*Task

	opts Options
}

// CreateResearchCrew assembles the four research agents and their tasks for topic.
func CreateResearchCrew(topic string, llm model.Model, optFns ...func(o *Options)) (*Crew, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	coordinator := NewResearchCoordinator(llm)
	searcher := NewLiteratureSearcher(llm)
	analyst := NewInformationAnalyst(llm)
	writer := NewContentWriter(llm)

	tasks, err := CreateResearchTasks(topic, coordinator, searcher, analyst, writer)
	if err != nil {
		return nil, err
	}

	return New(topic, []*AgentSpec{coordinator, searcher, analyst, writer}, tasks, optFns...), nil
}

// New creates a crew from explicit agents and tasks.
func New(topic string, agents []*AgentSpec, tasks []*Task, optFns ...func(o *Options)) *Crew {
	opts := Options{
		MaxModelCalls: 20,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.SessionStore == nil {
		opts.SessionStore = session.NewInMemoryStore()
	}
	if opts.ArtifactStore == nil {
		opts.ArtifactStore = artifact.NewInMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Crew{Topic: topic, Agents: agents, Tasks: tasks, opts: opts}
}

// Validate checks that every task is bound to one of the crew's agents and
// every agent has a model.
func (c *Crew) Validate() error {
	if len(c.Tasks) == 0 {
		return errors.New("crew: no tasks")
	}
	for _, a := range c.Agents {
		if a == nil || a.LLM == nil {
			return ErrMissingModel
		}
	}
	for _, t := range c.Tasks {
		if !c.hasAgent(t.Agent) {
			return fmt.Errorf("%w: task %q", ErrUnknownAgent, t.Name)
		}
	}
	return nil
}

func (c *Crew) hasAgent(a *AgentSpec) bool {
	for _, known := range c.Agents {
		if known == a {
			return true
		}
	}
	return false
}

// TaskOutput is the result of one executed task.
type TaskOutput struct {
	Name      string
	Agent     string
	OutputKey string
	Output    string
	Usage     core.TokenUsage
	Duration  time.Duration
}

// Result is the outcome of a successful kickoff.
type Result struct {
	RunID     string
	SessionID string
	Topic     string
	// Final is the output of the last task (the report).
	Final    string
	Tasks    []TaskOutput
	Usage    core.TokenUsage
	Duration time.Duration
}

type executionLogger interface {
	LogTaskExecution(task, agentRole string, dur time.Duration, success bool, err error)
	LogCrewExecution(topic string, tasks int, dur time.Duration, success bool, err error)
}

// Kickoff executes all tasks in order. Each task sees the outputs of the
// tasks before it. The first failing task aborts the run.
func (c *Crew) Kickoff(ctx context.Context) (*Result, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	sessionID := core.NewID()

	if err := c.opts.SessionStore.ApplyDelta(sessionID, map[string]any{KeyTopic: c.Topic}); err != nil {
		return nil, fmt.Errorf("seed session: %w", err)
	}
	if err := c.opts.ArtifactStore.Save(sessionID, TopicArtifact, []byte(c.Topic)); err != nil {
		return nil, fmt.Errorf("save topic: %w", err)
	}

	root, byName := c.buildPipeline()
	r := runner.New(root, func(o *runner.Options) {
		o.SessionStore = c.opts.SessionStore
		o.ArtifactStore = c.opts.ArtifactStore
		o.Logger = c.opts.Logger
		o.MaxModelCalls = c.opts.MaxModelCalls
	})

	c.opts.Logger.Info("crew.kickoff.start", "topic", c.Topic, "session_id", sessionID, "tasks", len(c.Tasks))

	runID, eventsCh, errCh, err := r.Run(ctx, sessionID, core.NewTextContent("user", c.Topic))
	if err != nil {
		return nil, fmt.Errorf("crew kickoff: %w", err)
	}

	res := &Result{RunID: runID, SessionID: sessionID, Topic: c.Topic}
	tracker := &progressTracker{crew: c, runID: runID, sessionID: sessionID, byName: byName, started: map[string]time.Time{}}

	for ev := range eventsCh {
		if out, ok := tracker.handle(ev); ok {
			res.Tasks = append(res.Tasks, out)
			res.Usage.Add(out.Usage)
		}
	}

	res.Duration = time.Since(start)

	if err := <-errCh; err != nil {
		c.logCrew(res.Duration, err)
		c.notify(Progress{Type: ResearchFailed, RunID: runID, SessionID: sessionID, Error: err.Error()})
		return nil, fmt.Errorf("crew kickoff: %w", err)
	}

	if len(res.Tasks) != len(c.Tasks) {
		err := fmt.Errorf("crew kickoff: %d of %d tasks completed", len(res.Tasks), len(c.Tasks))
		c.logCrew(res.Duration, err)
		c.notify(Progress{Type: ResearchFailed, RunID: runID, SessionID: sessionID, Error: err.Error()})
		return nil, err
	}

	res.Final = res.Tasks[len(res.Tasks)-1].Output
	c.logCrew(res.Duration, nil)
	c.notify(Progress{Type: ResearchCompleted, RunID: runID, SessionID: sessionID, Step: len(c.Tasks), Total: len(c.Tasks)})

	return res, nil
}

// buildPipeline maps each task to a ModelAgent named after the task and
// chains them in a SequentialAgent.
func (c *Crew) buildPipeline() (core.Agent, map[string]int) {
	children := make([]core.Agent, 0, len(c.Tasks))
	byName := make(map[string]int, len(c.Tasks))

	for i, t := range c.Tasks {
		previous := c.Tasks[:i]
		last := i == len(c.Tasks)-1

		children = append(children, agent.NewModelAgent(t.Name, t.Agent.LLM, func(o *agent.ModelAgentOptions) {
			o.Instruction = agent.NewInstructionFromText(t.Agent.Instruction())
			o.Prompt = agent.NewInstructionFromFunc(func(rc *core.RunContext) (string, error) {
				outputs := make([]string, 0, len(previous))
				for _, p := range previous {
					outputs = append(outputs, rc.GetStateString(p.OutputKey))
				}
				return t.Prompt(outputs), nil
			})
			o.Description = t.Agent.Role
			o.OutputKey = t.OutputKey
			o.EnableStreaming = c.opts.Streaming
			if last {
				o.ArtifactName = ReportArtifact
			}
		}))
		byName[t.Name] = i
	}

	return agent.NewSequentialAgent("research_crew", children...), byName
}

func (c *Crew) notify(p Progress) {
	if c.opts.OnProgress == nil {
		return
	}
	p.Topic = c.Topic
	if p.Time.IsZero() {
		p.Time = time.Now().UTC()
	}
	c.opts.OnProgress(p)
}

func (c *Crew) logCrew(dur time.Duration, err error) {
	if el, ok := c.opts.Logger.(executionLogger); ok {
		el.LogCrewExecution(c.Topic, len(c.Tasks), dur, err == nil, err)
		return
	}
	if err != nil {
		c.opts.Logger.Error("crew.kickoff.failed", "topic", c.Topic, "error", err)
		return
	}
	c.opts.Logger.Info("crew.kickoff.complete", "topic", c.Topic, "duration_ms", dur.Milliseconds())
}

func (c *Crew) logTask(t *Task, dur time.Duration, err error) {
	if el, ok := c.opts.Logger.(executionLogger); ok {
		el.LogTaskExecution(t.Name, t.Agent.Role, dur, err == nil, err)
		return
	}
	c.opts.Logger.Debug("crew.task.done", "task", t.Name, "agent", t.Agent.Role, "error", err)
}
