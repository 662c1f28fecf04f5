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

// Package daemonrun wires together the listener, browser registry, rate
// limiter, audit sink, and dispatcher that make up the browser automation
// daemon, so both the flowctld binary and flowctl's "daemon" convenience
// subcommand build the identical runtime from one place.
package daemonrun

import (
	"context"
	"log/slog"
	"net"

	"github.com/wrikka/wpackages-sub001/internal/browser"
	"github.com/wrikka/wpackages-sub001/internal/config"
	"github.com/wrikka/wpackages-sub001/internal/daemon"
	"github.com/wrikka/wpackages-sub001/internal/obslog"
)

// Options overrides config-file listener values; zero values fall back to
// cfg.Daemon's own settings.
type Options struct {
	SocketPath  string
	TCPAddr     string
	AllowRemote bool
}

// Runtime is a fully wired daemon runtime, bound to a listener but not yet
// serving.
type Runtime struct {
	Logger     *slog.Logger
	Listener   net.Listener
	Registry   *browser.Registry
	Audit      *daemon.AuditSink // nil if no audit_db_path configured or it failed to open
	Dispatcher *daemon.Dispatcher
	Server     *daemon.Server
}

// Build constructs a Runtime from cfg, overridden by opts.
func Build(cfg *config.Config, opts Options) (*Runtime, error) {
	logger := obslog.New(&obslog.Config{Level: cfg.Log.Level, Format: obslog.Format(cfg.Log.Format)})

	socketPath := cfg.Daemon.SocketPath
	if opts.SocketPath != "" {
		socketPath = opts.SocketPath
	}
	tcpAddr := cfg.Daemon.TCPAddr
	if opts.TCPAddr != "" {
		tcpAddr = opts.TCPAddr
	}

	ln, err := daemon.New(daemon.ListenConfig{
		SocketPath:  socketPath,
		TCPAddr:     tcpAddr,
		AllowRemote: opts.AllowRemote,
	})
	if err != nil {
		return nil, err
	}

	wsEndpoint := cfg.Daemon.WSEndpoint
	factory := func(ctx context.Context, headless bool, dataDir string, stealth bool) (browser.Driver, error) {
		if wsEndpoint == "" {
			return browser.NewFakeDriver(), nil
		}
		return browser.DialWSDriver(ctx, wsEndpoint, headless, dataDir, stealth)
	}
	if wsEndpoint == "" {
		logger.Warn("daemon.ws_endpoint not configured; sessions run against an in-memory fake driver, not a real browser")
	}
	registry := browser.NewRegistry(factory, cfg.Daemon.EventLogCap, logger)

	var audit *daemon.AuditSink
	if cfg.Daemon.AuditDBPath != "" {
		audit, err = daemon.NewAuditSink(cfg.Daemon.AuditDBPath, logger)
		if err != nil {
			logger.Warn("failed to open audit sink; continuing without durable audit trail", obslog.Err(err))
			audit = nil
		}
	}

	limiter := daemon.NewSessionRateLimiter(cfg.Daemon.RatePerSecond, cfg.Daemon.RateBurst)
	dispatcher := daemon.NewDispatcher(registry, audit, limiter)
	server := daemon.NewServer(dispatcher, logger)

	return &Runtime{
		Logger:     logger,
		Listener:   ln,
		Registry:   registry,
		Audit:      audit,
		Dispatcher: dispatcher,
		Server:     server,
	}, nil
}

// Serve blocks, serving the runtime's listener until ctx is cancelled.
func (r *Runtime) Serve(ctx context.Context) error {
	return r.Server.Serve(ctx, r.Listener)
}

// Shutdown stops serving and closes every session and the audit sink.
func (r *Runtime) Shutdown(ctx context.Context) {
	r.Server.Close()
	r.Registry.CloseAll(ctx)
	if r.Audit != nil {
		r.Audit.Close()
	}
}
