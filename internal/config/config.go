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

// Package config loads flowkit's daemon and CLI configuration from a YAML
// file overlaid with environment variables, following the same
// defaults-then-file-then-env precedence as the teacher's config loader.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

// Config is the complete flowkit configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Index   IndexConfig   `yaml:"index"`
	Workflow WorkflowConfig `yaml:"workflow"`
}

// LogConfig configures internal/obslog.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// DaemonConfig configures the browser-automation daemon listener.
type DaemonConfig struct {
	SocketPath     string        `yaml:"socket_path"`
	TCPAddr        string        `yaml:"tcp_addr"`
	MaxSessions    int           `yaml:"max_sessions"`
	SessionIdleTTL time.Duration `yaml:"session_idle_ttl"`
	RatePerSecond  float64       `yaml:"rate_per_second"`
	RateBurst      int           `yaml:"rate_burst"`
	AuditDBPath    string        `yaml:"audit_db_path"`
	EventLogCap    int           `yaml:"event_log_capacity"`
	// WSEndpoint is a devtools-protocol WebSocket endpoint (e.g. a
	// headless Chromium's --remote-debugging-port target). When empty,
	// sessions are driven by an in-memory FakeDriver instead, which is
	// useful for development and for CLI/daemon wiring tests that don't
	// need a real browser process.
	WSEndpoint string `yaml:"ws_endpoint"`
}

// IndexConfig configures the full-text index build/serve defaults.
type IndexConfig struct {
	DataDir    string `yaml:"data_dir"`
	WatchPaths []string `yaml:"watch_paths"`
}

// WorkflowConfig configures the workflow engine's registry persistence.
type WorkflowConfig struct {
	RegistryDBPath string `yaml:"registry_db_path"`
}

// Default returns a Config with the teacher-style sane defaults: JSON
// logging at info level, a loopback TCP daemon address, and on-disk
// persistence under ./flowkit-data.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Daemon: DaemonConfig{
			TCPAddr:        "127.0.0.1:7337",
			MaxSessions:    16,
			SessionIdleTTL: 30 * time.Minute,
			RatePerSecond:  10,
			RateBurst:      20,
			AuditDBPath:    "./flowkit-data/audit.db",
			EventLogCap:    1024,
		},
		Index: IndexConfig{
			DataDir: "./flowkit-data/index",
		},
		Workflow: WorkflowConfig{
			RegistryDBPath: "./flowkit-data/workflows.db",
		},
	}
}

// Load builds a Config from Default(), overlaid by configPath (if non-empty
// and present) and then by environment variables.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := cfg.loadFromFile(configPath); err != nil {
				return nil, &xerrors.IoError{Path: configPath, Cause: err}
			}
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("FLOWKIT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FLOWKIT_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("FLOWKIT_DAEMON_TCP_ADDR"); v != "" {
		c.Daemon.TCPAddr = v
	}
	if v := os.Getenv("FLOWKIT_DAEMON_SOCKET_PATH"); v != "" {
		c.Daemon.SocketPath = v
	}
	if v := os.Getenv("FLOWKIT_DAEMON_WS_ENDPOINT"); v != "" {
		c.Daemon.WSEndpoint = v
	}
	if v := os.Getenv("FLOWKIT_DAEMON_MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Daemon.MaxSessions = n
		}
	}
	if v := os.Getenv("FLOWKIT_INDEX_DATA_DIR"); v != "" {
		c.Index.DataDir = v
	}
	if v := os.Getenv("FLOWKIT_WORKFLOW_REGISTRY_DB"); v != "" {
		c.Workflow.RegistryDBPath = v
	}
}

// Validate rejects configurations that would fail at startup anyway.
func (c *Config) Validate() error {
	if c.Daemon.MaxSessions <= 0 {
		return &xerrors.ValidationFailedError{Message: "daemon.max_sessions must be positive"}
	}
	if c.Daemon.TCPAddr == "" && c.Daemon.SocketPath == "" {
		return &xerrors.ValidationFailedError{Message: "daemon requires either tcp_addr or socket_path"}
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return &xerrors.ValidationFailedError{Message: fmt.Sprintf("unknown log format %q", c.Log.Format)}
	}
	return nil
}
