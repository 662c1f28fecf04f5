// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package obslog provides a structured slog.Logger factory shared by the
// workflow engine and the browser-automation daemon and CLI binaries.
package obslog

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the log output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// LevelTrace is more verbose than Debug; used for wire-protocol frame
// tracing on the BA daemon's request/response path.
const LevelTrace = slog.Level(-8)

// Standard field keys shared across the three cores so a log aggregator can
// correlate lines regardless of which core emitted them.
const (
	WorkflowIDKey = "workflow_id"
	StepIndexKey  = "step_index"
	SessionIDKey  = "session_id"
	ActionKey     = "action"
	DurationKey   = "duration_ms"
)

// Config controls logger construction.
type Config struct {
	Level     string // debug, info, warn, error, trace
	Format    Format
	Output    io.Writer
	AddSource bool
}

// DefaultConfig returns info-level JSON logging to stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: FormatJSON,
		Output: os.Stderr,
	}
}

// FromEnv builds a Config from FLOWKIT_LOG_LEVEL / FLOWKIT_LOG_FORMAT /
// FLOWKIT_LOG_SOURCE, falling back to DefaultConfig.
func FromEnv() *Config {
	cfg := DefaultConfig()
	if level := os.Getenv("FLOWKIT_LOG_LEVEL"); level != "" {
		cfg.Level = strings.ToLower(level)
	}
	if format := os.Getenv("FLOWKIT_LOG_FORMAT"); format != "" {
		cfg.Format = Format(strings.ToLower(format))
	}
	if os.Getenv("FLOWKIT_LOG_SOURCE") == "1" {
		cfg.AddSource = true
	}
	return cfg
}

// New constructs a slog.Logger from cfg (nil uses DefaultConfig).
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatText:
		handler = slog.NewTextHandler(cfg.Output, opts)
	default:
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithWorkflowRun returns a logger scoped to one workflow execution.
func WithWorkflowRun(logger *slog.Logger, workflowID string) *slog.Logger {
	return logger.With(slog.String(WorkflowIDKey, workflowID))
}

// WithSession returns a logger scoped to one browser session.
func WithSession(logger *slog.Logger, sessionID string) *slog.Logger {
	return logger.With(slog.String(SessionIDKey, sessionID))
}

// Duration creates a millisecond-denominated duration attribute.
func Duration(ms int64) slog.Attr {
	return slog.Int64(DurationKey, ms)
}

// Err creates an error attribute.
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}
