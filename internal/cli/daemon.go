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

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wrikka/wpackages-sub001/internal/config"
	"github.com/wrikka/wpackages-sub001/internal/daemonrun"
)

// addDaemonCommand adds "flowctl daemon", a convenience wrapper that builds
// the same daemonrun.Runtime as the flowctld binary, for local development
// where a separate daemon process is overkill.
func addDaemonCommand(root *cobra.Command) {
	var configPath string
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the browser automation daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	root.AddCommand(cmd)
}

func runDaemon(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	rt, err := daemonrun.Build(cfg, daemonrun.Options{})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- rt.Serve(ctx) }()

	fmt.Printf("flowctld listening on %s\n", rt.Listener.Addr().String())

	select {
	case <-sigCh:
		cancel()
		rt.Shutdown(context.Background())
		return nil
	case err := <-errCh:
		return err
	}
}
