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

package daemon

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UnixSocket(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix sockets not supported")
	}
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "flowctld.sock")

	ln, err := New(ListenConfig{SocketPath: sockPath})
	require.NoError(t, err)
	defer ln.Close()

	info, err := os.Stat(sockPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNew_UnixSocket_CreatesDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix sockets not supported")
	}
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "n", "s.sock")

	ln, err := New(ListenConfig{SocketPath: sockPath})
	require.NoError(t, err)
	defer ln.Close()

	_, err = os.Stat(sockPath)
	assert.NoError(t, err)
}

func TestNew_TCP_Localhost(t *testing.T) {
	for _, addr := range []string{"127.0.0.1:0", "localhost:0", "[::1]:0"} {
		ln, err := New(ListenConfig{TCPAddr: addr})
		require.NoError(t, err, addr)
		ln.Close()
	}
}

func TestNew_TCP_BlocksRemote(t *testing.T) {
	cases := []struct {
		name string
		addr string
	}{
		{"empty host binds all interfaces", ":0"},
		{"explicit all-interfaces", "0.0.0.0:0"},
		{"any other address blocked", "192.168.1.1:0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(ListenConfig{TCPAddr: tc.addr})
			assert.Error(t, err)
		})
	}
}

func TestNew_TCP_AllowRemote(t *testing.T) {
	ln, err := New(ListenConfig{TCPAddr: "0.0.0.0:0", AllowRemote: true})
	require.NoError(t, err)
	ln.Close()
}
