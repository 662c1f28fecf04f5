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

	"github.com/spf13/cobra"
)

func addNetworkCommands(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "network",
		Short: "Print captured network requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("Network", nil)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "har",
		Short: "Print captured requests as HAR-style entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("GetHar", nil)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "websockets",
		Short: "Print captured WebSocket frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("GetWebSocketFrames", nil)
		},
	})

	cookies := &cobra.Command{
		Use:   "cookies",
		Short: "Inspect or mutate the session's cookie jar",
	}
	cookies.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "List cookies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("CookiesGet", nil)
		},
	})
	cookies.AddCommand(&cobra.Command{
		Use:   "add <name> <value> <domain>",
		Short: "Add a cookie",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("CookiesAdd", map[string]string{
				"name": args[0], "value": args[1], "domain": args[2],
			})
		},
	})
	cookies.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a cookie by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("CookiesDelete", map[string]string{"name": args[0]})
		},
	})
	root.AddCommand(cookies)

	root.AddCommand(&cobra.Command{
		Use:   "set-geolocation <lat> <lon> <accuracy>",
		Short: "Override the browser's reported geolocation",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return err
			}
			lon, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return err
			}
			accuracy, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return err
			}
			return call("SetGeolocation", map[string]float64{"lat": lat, "lon": lon, "accuracy": accuracy})
		},
	})
}
