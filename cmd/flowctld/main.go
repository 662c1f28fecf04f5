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

// Command flowctld runs the browser-automation daemon: it owns the
// browser.Registry, dispatches wire-protocol requests from flowctl (or any
// other client), rate-limits and audits commands, and serves them over a
// Unix socket or loopback TCP listener.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wrikka/wpackages-sub001/internal/config"
	"github.com/wrikka/wpackages-sub001/internal/daemonrun"
	"github.com/wrikka/wpackages-sub001/internal/obslog"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to config file")
		socketPath  = flag.String("socket", "", "Unix socket path (overrides config)")
		tcpAddr     = flag.String("tcp", "", "TCP address to listen on (overrides config)")
		allowRemote = flag.Bool("allow-remote", false, "Allow binding to non-localhost addresses (SECURITY WARNING)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("flowctld %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	if *allowRemote {
		slog.SetDefault(obslog.New(&obslog.Config{Level: cfg.Log.Level, Format: obslog.Format(cfg.Log.Format)}))
		slog.Warn("--allow-remote is enabled; the daemon will accept connections from any network address and drives a real browser under commands from whoever can reach it")
	}

	rt, err := daemonrun.Build(cfg, daemonrun.Options{
		SocketPath:  *socketPath,
		TCPAddr:     *tcpAddr,
		AllowRemote: *allowRemote,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start daemon:", err)
		os.Exit(1)
	}
	slog.SetDefault(rt.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- rt.Serve(ctx) }()

	rt.Logger.Info("flowctld listening", slog.String("addr", rt.Listener.Addr().String()))

	select {
	case sig := <-sigCh:
		rt.Logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()
		rt.Shutdown(context.Background())
	case err := <-errCh:
		if err != nil {
			rt.Logger.Error("daemon error", obslog.Err(err))
			os.Exit(1)
		}
	}
}
