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

// Package cli builds flowctl's Cobra command tree: one subcommand per BA
// action, a thin client dial per invocation, and a shared JSON/plain output
// and exit-code convention, in the spirit of the teacher's internal/cli
// root command plus internal/commands/shared helpers.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wrikka/wpackages-sub001/internal/cliclient"
	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

// Exit codes, mirroring the teacher's shared.ExitError convention.
const (
	ExitSuccess        = 0
	ExitCommandFailed  = 1
	ExitDaemonNotFound = 2
)

// globalFlags holds the persistent flags every subcommand reads.
type globalFlags struct {
	session string
	headed  bool
	addr    string
	jsonOut bool
	dataDir string
	stealth bool
	dialTO  time.Duration
}

var flags globalFlags

// NewRootCommand builds the flowctl root command. Subcommands register
// themselves onto it via the add*Commands helpers in the other files of
// this package.
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	root := &cobra.Command{
		Use:   "flowctl",
		Short: "flowctl drives a browser session through flowctld",
		Long: `flowctl is the command-line client for flowctld, the browser
automation daemon. Every subcommand sends one wire-protocol request for a
named session and prints the daemon's response.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	root.PersistentFlags().StringVar(&flags.session, "session", "default", "session id to target")
	root.PersistentFlags().BoolVar(&flags.headed, "headed", false, "run with a visible browser window (default is headless)")
	root.PersistentFlags().StringVar(&flags.addr, "addr", "127.0.0.1:7337", "flowctld address (host:port or unix socket path)")
	root.PersistentFlags().BoolVar(&flags.jsonOut, "json", false, "print the raw JSON response instead of a formatted summary")
	root.PersistentFlags().StringVar(&flags.dataDir, "datadir", "", "browser profile data directory")
	root.PersistentFlags().BoolVar(&flags.stealth, "stealth", false, "enable stealth/anti-detection mode")
	root.PersistentFlags().DurationVar(&flags.dialTO, "dial-timeout", 5*time.Second, "timeout for connecting to flowctld")

	addNavigationCommands(root)
	addInteractionCommands(root)
	addQueryCommands(root)
	addNetworkCommands(root)
	addDaemonCommand(root)
	addInteractiveCommand(root)

	return root
}

// HandleExitError prints err (if any) and exits with the matching code.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", err.Error())
	code := ExitCommandFailed
	var notRunning *xerrors.DaemonNotRunningError
	if xerrors.As(err, &notRunning) {
		code = ExitDaemonNotFound
	}
	os.Exit(code)
}

// call dials flowctld, sends one action/params, prints the response per the
// --json flag, and returns a non-nil error (causing a non-zero exit) when
// the daemon reports failure.
func call(action string, params any) error {
	client, err := cliclient.Dial(flags.addr, flags.dialTO)
	if err != nil {
		return err
	}
	defer client.Close()

	var raw json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return err
		}
		raw = encoded
	}

	resp, err := client.Call(cliclient.Request{
		Action: action,
		Params: raw,
		Context: cliclient.RequestContext{
			Session:  flags.session,
			Headless: !flags.headed,
			DataDir:  flags.dataDir,
			Stealth:  flags.stealth,
		},
	})
	if err != nil {
		return err
	}

	printResponse(resp)
	if !resp.Success {
		return fmt.Errorf("%s", resp.Error)
	}
	return nil
}

func parseIndexArg(s string) (int, error) {
	var idx int
	if _, err := fmt.Sscanf(s, "%d", &idx); err != nil {
		return 0, fmt.Errorf("invalid index %q: %w", s, err)
	}
	return idx, nil
}

func printResponse(resp cliclient.Response) {
	if flags.jsonOut {
		encoded, _ := json.Marshal(resp)
		fmt.Println(string(encoded))
		return
	}
	if !resp.Success {
		fmt.Fprintln(os.Stderr, resp.Error)
		return
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		fmt.Println("ok")
		return
	}
	var pretty any
	if err := json.Unmarshal(resp.Data, &pretty); err == nil {
		if s, ok := pretty.(string); ok {
			fmt.Println(s)
			return
		}
		encoded, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(encoded))
		return
	}
	fmt.Println(string(resp.Data))
}
