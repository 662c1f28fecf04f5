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

func addNavigationCommands(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "open <url>",
		Short: "Navigate the active tab to a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("Open", map[string]string{"url": args[0]})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "back",
		Short: "Navigate back in the active tab's history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("Back", nil)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "forward",
		Short: "Navigate forward in the active tab's history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("Forward", nil)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "reload",
		Short: "Reload the active tab",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("Reload", nil)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "tabs",
		Short: "List open tabs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("Tabs", nil)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "new-tab",
		Short: "Open a new tab and make it active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("NewTab", nil)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "switch-tab <index>",
		Short: "Switch the active tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndexArg(args[0])
			if err != nil {
				return err
			}
			return call("SwitchTab", map[string]int{"index": idx})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "close-tab <index>",
		Short: "Close a tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndexArg(args[0])
			if err != nil {
				return err
			}
			return call("CloseTab", map[string]int{"index": idx})
		},
	})
}
