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

import "github.com/spf13/cobra"

func addQueryCommands(root *cobra.Command) {
	root.AddCommand(selectorOnlyCommand("get-text <selector>", "GetText", "Read an element's visible text"))
	root.AddCommand(selectorOnlyCommand("get-html <selector>", "GetHtml", "Read an element's outer HTML"))
	root.AddCommand(selectorOnlyCommand("get-value <selector>", "GetValue", "Read a form element's value"))
	root.AddCommand(selectorOnlyCommand("get-count <selector>", "GetCount", "Count elements matching a selector"))
	root.AddCommand(selectorOnlyCommand("is-visible <selector>", "IsVisible", "Check whether an element is visible"))
	root.AddCommand(selectorOnlyCommand("is-enabled <selector>", "IsEnabled", "Check whether an element is enabled"))
	root.AddCommand(selectorOnlyCommand("is-checked <selector>", "IsChecked", "Check whether a checkbox is checked"))
	root.AddCommand(selectorOnlyCommand("extract-table <selector>", "ExtractTable", "Extract a table element as rows of cell text"))

	root.AddCommand(&cobra.Command{
		Use:   "get-attr <selector> <attr>",
		Short: "Read an element attribute",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("GetAttr", map[string]string{"selector": args[0], "attr": args[1]})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "get-title",
		Short: "Read the active tab's title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("GetTitle", nil)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "get-url",
		Short: "Read the active tab's URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("GetUrl", nil)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "snapshot",
		Short: "Capture an accessibility-tree snapshot of the active tab",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("Snapshot", nil)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "diff-snapshot",
		Short: "Diff the two most recent snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("DiffSnapshot", nil)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "Print the session's action log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("GetHistory", nil)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "execute-js <script>",
		Short: "Evaluate JavaScript in the active tab and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("ExecuteJs", map[string]string{"script": args[0]})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "screenshot",
		Short: "Capture a screenshot of the active tab, base64-encoded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("Screenshot", nil)
		},
	})
}
