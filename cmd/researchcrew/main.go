package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/researchcrew/artifact"
	"github.com/hupe1980/researchcrew/artifact/sqlite"
	"github.com/hupe1980/researchcrew/config"
	"github.com/hupe1980/researchcrew/core"
	"github.com/hupe1980/researchcrew/crew"
	"github.com/hupe1980/researchcrew/logging"
	"github.com/hupe1980/researchcrew/model"
	"github.com/hupe1980/researchcrew/model/anthropic"
	"github.com/hupe1980/researchcrew/model/openai"
	"github.com/hupe1980/researchcrew/web"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("researchcrew %s\n", version)
		return
	case "serve":
		err = runServe()
	case "run":
		err = runResearch(os.Args[2:], os.Stdout)
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "researchcrew %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: researchcrew <command>\n\nCommands:\n  serve            Start the web UI\n  run <topic>      Research a topic and print the report (-o file to save it)\n  version          Print version\n")
}

type app struct {
	cfg       *config.Config
	logger    *logging.CrewLogger
	llm       model.Model
	artifacts core.ArtifactStore
	closeFn   func() error
}

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    os.Stderr,
		Component: "researchcrew",
	})

	store, closeFn, err := newArtifactStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if cfg.Store.Path != "" {
		logger.Info("store initialized", "path", cfg.Store.Path)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		llm:       newModel(cfg.LLM),
		artifacts: store,
		closeFn:   closeFn,
	}, nil
}

func (a *app) crewOptions() func(o *crew.Options) {
	return func(o *crew.Options) {
		o.ArtifactStore = a.artifacts
		o.Logger = a.logger
		o.MaxModelCalls = a.cfg.Crew.MaxModelCalls
		o.Streaming = a.cfg.Crew.Streaming
		o.Timeout = a.cfg.Crew.Timeout
	}
}

func newModel(cfg config.LLMConfig) model.Model {
	if cfg.Provider == config.ProviderOpenAI {
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = cfg.MaxTokens
			o.APIKey = cfg.OpenAIAPIKey
			o.BaseURL = cfg.BaseURL
		})
	}

	return anthropic.NewModel(func(o *anthropic.Options) {
		if cfg.Model != "" {
			o.Model = anthropicsdk.Model(cfg.Model)
		}
		o.Temperature = cfg.Temperature
		o.MaxTokens = cfg.MaxTokens
		o.APIKey = cfg.AnthropicAPIKey
		o.BaseURL = cfg.BaseURL
	})
}

func newArtifactStore(cfg config.StoreConfig) (core.ArtifactStore, func() error, error) {
	if cfg.Path == "" {
		return artifact.NewInMemoryStore(), func() error { return nil }, nil
	}
	db, err := sqlite.New(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	return db, db.Close, nil
}

func runServe() error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.closeFn()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("starting researchcrew", "version", version, "provider", a.cfg.LLM.Provider, "model", a.llm.Info().Name)

	srv := web.NewServer(a.llm, func(o *web.Options) {
		o.Addr = a.cfg.Web.Addr()
		o.ArtifactStore = a.artifacts
		o.Logger = a.logger
		o.CrewOptions = []func(o *crew.Options){a.crewOptions()}
	})
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("web server: %w", err)
	}

	a.logger.Info("shutting down")
	return nil
}

func runResearch(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	out := fs.String("o", "", "write the report to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	topic := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if topic == "" {
		return errors.New("usage: researchcrew run [-o file] <topic>")
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.closeFn()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := research(ctx, a.llm, topic, a.crewOptions(), func(o *crew.Options) {
		o.OnProgress = func(p crew.Progress) {
			if p.Type == crew.TaskStarted || p.Type == crew.TaskCompleted {
				a.logger.Info(string(p.Type), "task", p.Task, "step", p.Step, "total", p.Total)
			}
		}
	})
	if err != nil {
		return err
	}

	if *out != "" {
		if err := os.WriteFile(*out, []byte(res.Final), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		a.logger.Info("report written", "path", *out, "session", res.SessionID)
		return nil
	}

	_, err = fmt.Fprintln(stdout, res.Final)
	return err
}

func research(ctx context.Context, llm model.Model, topic string, optFns ...func(o *crew.Options)) (*crew.Result, error) {
	c, err := crew.CreateResearchCrew(topic, llm, optFns...)
	if err != nil {
		return nil, err
	}
	return c.Kickoff(ctx)
}
