// Package logging provides a minimal logging interface and adapters for researchcrew.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the runner, agents and web server use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping a *slog.Logger
//   - CrewLogger, a structured logger with run context and task / model helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// All methods take a message followed by slog-style key/value pairs:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	logger.Info("crew.kickoff", "topic", topic, "tasks", 4)
package logging
