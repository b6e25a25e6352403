// Package web serves the research form: a topic field, a "Start Research"
// button, the resulting report with a Markdown download, and a websocket
// feed of task progress.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/researchcrew/artifact"
	"github.com/hupe1980/researchcrew/core"
	"github.com/hupe1980/researchcrew/crew"
	"github.com/hupe1980/researchcrew/logging"
	"github.com/hupe1980/researchcrew/model"
)

//go:embed templates/*.html
var templateFiles embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFiles, "templates/index.html"))

// Options configures the Server.
type Options struct {
	Addr          string
	ArtifactStore core.ArtifactStore
	Logger        logging.Logger
	// CrewOptions are applied to every crew the server creates.
	CrewOptions []func(o *crew.Options)
}

// Server is the web UI: the research form, report downloads and the
// progress websocket.
type Server struct {
	llm       model.Model
	artifacts core.ArtifactStore
	logger    logging.Logger
	crewOpts  []func(o *crew.Options)
	hub       *Hub
	addr      string
	startedAt time.Time
}

// NewServer creates a server that researches topics with llm.
func NewServer(llm model.Model, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:   ":8080",
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ArtifactStore == nil {
		opts.ArtifactStore = artifact.NewInMemoryStore()
	}

	return &Server{
		llm:       llm,
		artifacts: opts.ArtifactStore,
		logger:    opts.Logger,
		crewOpts:  opts.CrewOptions,
		hub:       NewHub(opts.Logger),
		addr:      opts.Addr,
		startedAt: time.Now(),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /research", s.handleResearch)
	mux.HandleFunc("GET /reports/{id}/download", s.handleDownload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("web server listening", "addr", s.addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type resultView struct {
	Topic       string
	Report      template.HTML
	DownloadURL string
	Filename    string
	Tasks       []crew.TaskOutput
	Duration    string
	TotalTokens int
}

type pageData struct {
	Topic string
	// ProgressID is posted with the form and names the websocket
	// subscription that receives this run's progress.
	ProgressID string
	Result     *resultView
	Error      string
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	data.ProgressID = core.NewID()

	var buf strings.Builder
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("render page failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprint(w, buf.String())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, pageData{})
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, pageData{Error: fmt.Sprintf("An error occurred: %v", err)})
		return
	}

	topic := strings.TrimSpace(r.PostFormValue("topic"))
	if topic == "" {
		s.render(w, http.StatusOK, pageData{})
		return
	}

	res, err := s.research(r.Context(), topic, parseProgressID(r.PostFormValue("progress_id")))
	if err != nil {
		s.logger.Error("research failed", "topic", topic, "error", err)
		s.render(w, http.StatusOK, pageData{Topic: topic, Error: fmt.Sprintf("An error occurred: %v", err)})
		return
	}

	report, err := renderMarkdown(res.Final)
	if err != nil {
		s.logger.Error("render report failed", "session", res.SessionID, "error", err)
		s.render(w, http.StatusOK, pageData{Topic: topic, Error: fmt.Sprintf("An error occurred: %v", err)})
		return
	}

	s.render(w, http.StatusOK, pageData{
		Topic: topic,
		Result: &resultView{
			Topic:       res.Topic,
			Report:      report,
			DownloadURL: "/reports/" + res.SessionID + "/download",
			Filename:    crew.ReportFilename(res.Topic),
			Tasks:       res.Tasks,
			Duration:    res.Duration.Round(time.Millisecond).String(),
			TotalTokens: res.Usage.TotalTokens,
		},
	})
}

// research runs the crew for topic. Progress goes only to the websocket
// clients subscribed to progressID; an empty id disables progress.
func (s *Server) research(ctx context.Context, topic, progressID string) (*crew.Result, error) {
	optFns := append([]func(o *crew.Options){}, s.crewOpts...)
	optFns = append(optFns, func(o *crew.Options) {
		o.ArtifactStore = s.artifacts
		o.Logger = s.logger
		o.OnProgress = func(p crew.Progress) {
			s.hub.Broadcast(progressID, Event{Type: string(p.Type), Payload: p})
		}
	})

	c, err := crew.CreateResearchCrew(topic, s.llm, optFns...)
	if err != nil {
		return nil, err
	}
	return c.Kickoff(ctx)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	report, err := s.artifacts.Get(id, crew.ReportArtifact)
	if errors.Is(err, artifact.ErrNotFound) {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("load report failed", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	topic := "report"
	if t, err := s.artifacts.Get(id, crew.TopicArtifact); err == nil && len(t) > 0 {
		topic = string(t)
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": crew.ReportFilename(topic),
	}))
	_, _ = w.Write(report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"status":"ok","uptime":%q}`, time.Since(s.startedAt).Round(time.Second).String())
}
