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
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func selectorOnlyCommand(use, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(action, map[string]string{"selector": args[0]})
		},
	}
}

func addInteractionCommands(root *cobra.Command) {
	root.AddCommand(selectorOnlyCommand("click <selector>", "Click", "Click an element"))
	root.AddCommand(selectorOnlyCommand("hover <selector>", "Hover", "Hover over an element"))
	root.AddCommand(selectorOnlyCommand("scroll <selector>", "Scroll", "Scroll an element into view"))
	root.AddCommand(selectorOnlyCommand("check <selector>", "Check", "Check a checkbox or radio button"))
	root.AddCommand(selectorOnlyCommand("uncheck <selector>", "Uncheck", "Uncheck a checkbox"))

	root.AddCommand(&cobra.Command{
		Use:   "upload <selector> <path>",
		Short: "Upload a file to a file input",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("Upload", map[string]string{"selector": args[0], "path": args[1]})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "type <selector> <text>",
		Short: "Type text into an element, appending to its current value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("Type", map[string]string{"selector": args[0], "text": args[1]})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "type-secret <selector> <secret>",
		Short: "Type a secret into an element; never logged or echoed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("TypeSecret", map[string]string{"selector": args[0], "text": args[1]})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "fill <selector> <text>",
		Short: "Replace an element's value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("Fill", map[string]string{"selector": args[0], "text": args[1]})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "automated-fill <selector=value>...",
		Short: "Fill multiple fields in one call; values are redacted from the action log",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := make(map[string]string, len(args))
			for _, pair := range args {
				selector, value, ok := strings.Cut(pair, "=")
				if !ok {
					return &argError{arg: pair}
				}
				fields[selector] = value
			}
			return call("AutomatedFill", map[string]map[string]string{"fields": fields})
		},
	})

	waitFor := &cobra.Command{
		Use:   "wait-for <selector>",
		Short: "Wait for a selector to resolve to an element",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeoutMS, _ := cmd.Flags().GetInt64("timeout-ms")
			return call("WaitFor", map[string]any{"selector": args[0], "timeout_ms": timeoutMS})
		},
	}
	waitFor.Flags().Int64("timeout-ms", 30000, "maximum time to wait, in milliseconds")
	root.AddCommand(waitFor)

	root.AddCommand(selectorOnlyCommand("find <selector>", "FindElement", "Resolve a selector, self-healing against the last snapshot if needed"))
}

type argError struct{ arg string }

func (e *argError) Error() string { return "expected selector=value, got " + strconv.Quote(e.arg) }
