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

package fti

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_NewWatcherStagesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello world"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("goodbye world"), 0o600))

	idx := NewIndex(DefaultIndexConfig())
	w, err := NewWatcher(WatcherConfig{Dir: dir, Index: idx, DebounceDelay: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	require.NoError(t, idx.Build())
	stats := idx.Stats()
	assert.Equal(t, 2, stats.DocCount)
}

func TestWatcher_RequiresIndex(t *testing.T) {
	_, err := NewWatcher(WatcherConfig{Dir: t.TempDir()})
	require.Error(t, err)
}

func TestWatcher_RequiresDir(t *testing.T) {
	idx := NewIndex(DefaultIndexConfig())
	_, err := NewWatcher(WatcherConfig{Index: idx})
	require.Error(t, err)
}

func TestWatcher_StagesNewFileAfterCreate(t *testing.T) {
	dir := t.TempDir()
	idx := NewIndex(DefaultIndexConfig())
	w, err := NewWatcher(WatcherConfig{Dir: dir, Index: idx, DebounceDelay: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("fresh content"), 0o600))

	require.Eventually(t, func() bool {
		return idx.Stats().DocCount >= 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatcher_IncrementallyUpdatesBuiltIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("version one"), 0o600))

	idx := NewIndex(DefaultIndexConfig())
	w, err := NewWatcher(WatcherConfig{Dir: dir, Index: idx, DebounceDelay: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	require.NoError(t, idx.Build())

	require.NoError(t, os.WriteFile(path, []byte("version two updated"), 0o600))

	require.Eventually(t, func() bool {
		res, err := idx.Search("updated", SearchOptions{})
		return err == nil && res.TotalHits == 1
	}, 2*time.Second, 20*time.Millisecond)

	stats := idx.Stats()
	assert.Equal(t, 1, stats.DocCount)
}
