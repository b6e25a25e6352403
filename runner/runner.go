package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/researchcrew/artifact"
	"github.com/hupe1980/researchcrew/core"
	"github.com/hupe1980/researchcrew/logging"
	"github.com/hupe1980/researchcrew/session"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	// MaxModelCalls limits the number of model calls per run (0 = unlimited).
	MaxModelCalls int
	// SessionStore persists session state and history.
	SessionStore core.SessionStore
	// ArtifactStore persists artifacts saved by agents.
	ArtifactStore core.ArtifactStore
	// Logger receives runner and agent logs.
	Logger logging.Logger
}

// Runner coordinates agent execution: creates run contexts, streams events,
// applies side‑effects and persists history. Public methods are safe for
// concurrent use.
type Runner struct {
	agent core.Agent

	eventBufferSize int
	maxModelCalls   int

	sessionStore  core.SessionStore
	artifactStore core.ArtifactStore
	logger        logging.Logger

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

var _ core.Runner = (*Runner)(nil)

// New constructs a Runner with optional overrides.
func New(agent core.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		EventBufferSize: 100,
		MaxModelCalls:   100,
		SessionStore:    session.NewInMemoryStore(),
		ArtifactStore:   artifact.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		agent:           agent,
		eventBufferSize: opts.EventBufferSize,
		maxModelCalls:   opts.MaxModelCalls,
		sessionStore:    opts.SessionStore,
		artifactStore:   opts.ArtifactStore,
		logger:          opts.Logger,
		activeRuns:      make(map[string]context.CancelFunc),
	}
}

// SessionStore returns the store the runner persists sessions to.
func (r *Runner) SessionStore() core.SessionStore { return r.sessionStore }

// ArtifactStore returns the store agents save artifacts to.
func (r *Runner) ArtifactStore() core.ArtifactStore { return r.artifactStore }

// Run starts an asynchronous run. The events channel is closed when the run
// ends; the error channel then yields at most one terminal error.
func (r *Runner) Run(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	sess, err := r.sessionStore.Get(sessionID)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	runID := core.NewID()

	userEvent := core.NewUserContentEvent(runID, &userContent)
	if err := r.sessionStore.AppendEvent(sessionID, userEvent); err != nil {
		return "", nil, nil, fmt.Errorf("failed to append user event: %w", err)
	}

	eventsCh := make(chan core.Event, r.eventBufferSize)
	errorsCh := make(chan error, 1)
	agentEmit := make(chan core.Event, r.eventBufferSize)
	agentErr := make(chan error, 1)
	resumeCh := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	agentInfo := core.AgentInfo{Name: r.agent.Name(), Type: fmt.Sprintf("%T", r.agent)}

	runCtx := core.NewRunContext(
		ctx,
		sessionID,
		runID,
		agentInfo,
		userContent,
		r.maxModelCalls,
		agentEmit,
		resumeCh,
		sess,
		r.sessionStore,
		r.artifactStore,
		r.logger,
	)

	r.logger.Debug("runner.run.start", "run_id", runID, "session_id", sessionID, "agent", r.agent.Name())

	go func() {
		defer close(agentEmit)
		agentErr <- r.runAgent(runCtx)
	}()

	go func() {
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()
			close(eventsCh)
			close(errorsCh)
		}()

		procErr := r.processEvents(runCtx, cancel, sessionID, agentEmit, resumeCh, eventsCh)
		runErr := <-agentErr

		switch {
		case procErr != nil:
			errorsCh <- procErr
		case runErr != nil:
			errorsCh <- fmt.Errorf("agent execution failed: %w", runErr)
		}

		r.logger.Debug("runner.run.complete", "run_id", runID, "error", procErr != nil || runErr != nil)
	}()

	return runID, eventsCh, errorsCh, nil
}

// RunSync executes a run and returns all events once it has finished.
func (r *Runner) RunSync(ctx context.Context, sessionID string, userContent core.Content) (string, []core.Event, error) {
	runID, eventsCh, errCh, err := r.Run(ctx, sessionID, userContent)
	if err != nil {
		return "", nil, err
	}

	var events []core.Event
	for ev := range eventsCh {
		events = append(events, ev)
	}

	return runID, events, <-errCh
}

// Cancel cancels a running run by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.RLock()
	cancel, exists := r.activeRuns[runID]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

func (r *Runner) runAgent(runCtx *core.RunContext) error {
	if err := r.agent.Start(runCtx); err != nil {
		return err
	}

	defer func() {
		if err := r.agent.Stop(runCtx); err != nil {
			r.logger.Warn("runner.agent.stop_failed", "agent", r.agent.Name(), "error", err)
		}
	}()

	return r.agent.Run(runCtx)
}

// processEvents consumes agentEmit until the agent side closes it. A
// persistence failure cancels the run; remaining events are then discarded.
func (r *Runner) processEvents(
	runCtx *core.RunContext,
	cancel context.CancelFunc,
	sessionID string,
	agentEmit <-chan core.Event,
	resumeCh chan<- struct{},
	eventsCh chan<- core.Event,
) error {
	var procErr error

	for ev := range agentEmit {
		if procErr != nil || runCtx.Err() != nil {
			continue
		}

		if err := r.persist(sessionID, ev); err != nil {
			procErr = err
			cancel()
			continue
		}

		select {
		case <-runCtx.Done():
			continue
		case eventsCh <- ev:
		}

		if ev.IsTurnComplete() {
			select {
			case resumeCh <- struct{}{}:
			default:
			}
		}
	}

	return procErr
}

func (r *Runner) persist(sessionID string, ev core.Event) error {
	if len(ev.Actions.StateDelta) > 0 {
		if err := r.sessionStore.ApplyDelta(sessionID, ev.Actions.StateDelta); err != nil {
			return fmt.Errorf("failed to apply state delta: %w", err)
		}
	}

	if len(ev.Actions.ArtifactDelta) > 0 {
		r.logger.Debug("runner.event.artifacts", "session_id", sessionID, "count", len(ev.Actions.ArtifactDelta))
	}

	if ev.IsPartial() {
		return nil
	}

	if err := r.sessionStore.AppendEvent(sessionID, ev); err != nil {
		return fmt.Errorf("failed to append event to session: %w", err)
	}

	return nil
}
