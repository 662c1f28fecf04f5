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
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wrikka/wpackages-sub001/internal/browser"
	"github.com/wrikka/wpackages-sub001/internal/daemon"
)

// startTestDaemon spins up a real daemon.Server on a loopback TCP port
// backed by a FakeDriver, returning its address for --addr.
func startTestDaemon(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	factory := func(ctx context.Context, headless bool, dataDir string, stealth bool) (browser.Driver, error) {
		return browser.NewFakeDriver(), nil
	}
	registry := browser.NewRegistry(factory, 64, slog.New(slog.NewTextHandler(nil, nil)))
	dispatcher := daemon.NewDispatcher(registry, nil, nil)
	server := daemon.NewServer(dispatcher, slog.New(slog.NewTextHandler(nil, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go server.Serve(ctx, ln)

	return ln.Addr().String()
}

func execCommand(t *testing.T, addr string, args ...string) error {
	t.Helper()
	root := NewRootCommand("test", "test", "test")
	root.SetArgs(append([]string{"--addr", addr, "--session", "s1"}, args...))
	return root.Execute()
}

func TestCLI_OpenAndGetTitle(t *testing.T) {
	addr := startTestDaemon(t)
	require.NoError(t, execCommand(t, addr, "open", "https://example.com"))
	require.NoError(t, execCommand(t, addr, "get-title"))
}

func TestCLI_ClickUnknownSelectorFails(t *testing.T) {
	addr := startTestDaemon(t)
	require.NoError(t, execCommand(t, addr, "open", "https://example.com"))
	err := execCommand(t, addr, "click", "#nope")
	require.Error(t, err)
}

func TestCLI_TabsLifecycle(t *testing.T) {
	addr := startTestDaemon(t)
	require.NoError(t, execCommand(t, addr, "open", "https://example.com"))
	require.NoError(t, execCommand(t, addr, "new-tab"))
	require.NoError(t, execCommand(t, addr, "tabs"))
	require.NoError(t, execCommand(t, addr, "switch-tab", "0"))
	require.NoError(t, execCommand(t, addr, "close-tab", "1"))
}

func TestCLI_AutomatedFillRejectsMalformedPair(t *testing.T) {
	addr := startTestDaemon(t)
	err := execCommand(t, addr, "automated-fill", "missing-equals-sign")
	require.Error(t, err)
}

func TestCLI_DaemonNotRunningReportsError(t *testing.T) {
	root := NewRootCommand("test", "test", "test")
	root.SetArgs([]string{"--addr", "127.0.0.1:1", "--session", "s1", "get-title"})
	require.Error(t, root.Execute())
}
