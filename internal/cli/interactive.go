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
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// addInteractiveCommand adds "flowctl interactive", a REPL that reads one
// subcommand line at a time from stdin and executes it against the same
// flowctld connection settings (--session, --addr, etc. stay in effect for
// the whole REPL unless a line overrides them).
func addInteractiveCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "interactive",
		Short: "Read and execute flowctl commands from stdin, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Root().Version)
		},
	})
}

func runInteractive(version string) error {
	fmt.Println("flowctl interactive mode; type a command (e.g. 'open https://example.com') or 'exit'")
	outer := flags
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("flowctl> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		tokens := strings.Fields(line)
		sub := NewRootCommand(version, "", "")
		// NewRootCommand resets the persistent flags to their defaults;
		// restore the REPL's own settings before this line's flags apply.
		flags = outer
		sub.SetArgs(tokens)
		if err := sub.Execute(); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
}
