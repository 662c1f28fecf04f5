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
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher stages add_document/update/remove calls against an Index for
// every file change under a configured directory, draining into the
// index's next build() (while Mutable) or applying incrementally (once
// Built). Not part of the core search contract: a convenience for
// keeping a corpus index fresh as its source documents change on disk.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	index     *Index
	logger    *slog.Logger

	dir       string
	fieldName string

	debounceDelay time.Duration

	mu      sync.Mutex
	staged  map[string]uint64 // file path -> assigned doc id
	pending map[string]*time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WatcherConfig configures a corpus Watcher.
type WatcherConfig struct {
	// Dir is the directory tree to watch; all regular files under it
	// (recursively) are staged as one document each.
	Dir string
	// Index receives the staged/updated/removed documents.
	Index *Index
	// FieldName is the document field the file's content is stored
	// under. Defaults to "body".
	FieldName string
	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
	// DebounceDelay coalesces rapid successive writes to one file.
	// Defaults to 200ms.
	DebounceDelay time.Duration
}

// NewWatcher builds a Watcher, performs an initial scan of cfg.Dir to
// seed the index, and starts watching for subsequent changes.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.Index == nil {
		return nil, fmt.Errorf("fti: watcher requires an Index")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("fti: watcher requires a directory")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fti: failed to create file watcher: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fieldName := cfg.FieldName
	if fieldName == "" {
		fieldName = "body"
	}
	debounceDelay := cfg.DebounceDelay
	if debounceDelay == 0 {
		debounceDelay = 200 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		fsWatcher:     fsWatcher,
		index:         cfg.Index,
		logger:        logger,
		dir:           cfg.Dir,
		fieldName:     fieldName,
		debounceDelay: debounceDelay,
		staged:        make(map[string]uint64),
		pending:       make(map[string]*time.Timer),
		ctx:           ctx,
		cancel:        cancel,
	}

	if err := w.addTreeLocked(); err != nil {
		fsWatcher.Close()
		cancel()
		return nil, err
	}

	if err := w.scanInitial(); err != nil {
		logger.Warn("fti watcher: initial scan failed", "error", err)
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// addTreeLocked registers every directory under w.dir with fsnotify;
// fsnotify.Watcher does not watch subtrees automatically.
func (w *Watcher) addTreeLocked() error {
	return filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsWatcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) scanInitial() error {
	return filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		w.stageFile(path)
		return nil
	})
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			switch {
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				w.scheduleStage(event.Name)
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				w.scheduleRemove(event.Name)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("fti watcher error", "error", err)
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) scheduleStage(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounceDelay, func() { w.stageFile(path) })
}

func (w *Watcher) scheduleRemove(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
	w.removeFile(path)
}

// stageFile reads path and either appends it to the index (Mutable) or
// incrementally adds/updates it (Built).
func (w *Watcher) stageFile(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("fti watcher: read failed", "path", path, "error", err)
		return
	}

	meta, _ := json.Marshal(map[string]string{"path": path})
	input := DocumentInput{Fields: map[string]string{w.fieldName: string(content)}, Metadata: meta}

	w.mu.Lock()
	id, known := w.staged[path]
	w.mu.Unlock()

	if w.index.IsBuilt() {
		if known {
			if err := w.index.UpdateDocument(id, input); err != nil {
				w.logger.Warn("fti watcher: update failed", "path", path, "error", err)
			}
			return
		}
		newID, err := w.index.AddDocument(input)
		if err != nil {
			w.logger.Warn("fti watcher: add failed", "path", path, "error", err)
			return
		}
		w.mu.Lock()
		w.staged[path] = newID
		w.mu.Unlock()
		return
	}

	if known {
		// Replace the staged copy so the next build sees one document per file.
		w.index.mu.Lock()
		if w.index.st == stateMutable {
			w.index.docs[id] = input.asDocument(id)
		}
		w.index.mu.Unlock()
		return
	}

	ids, err := w.index.AddDocuments(input)
	if err != nil {
		w.logger.Warn("fti watcher: stage failed", "path", path, "error", err)
		return
	}
	w.mu.Lock()
	w.staged[path] = ids[0]
	w.mu.Unlock()
}

func (w *Watcher) removeFile(path string) {
	w.mu.Lock()
	id, known := w.staged[path]
	if known {
		delete(w.staged, path)
	}
	w.mu.Unlock()

	if !known {
		return
	}
	if !w.index.IsBuilt() {
		w.index.mu.Lock()
		if w.index.st == stateMutable {
			delete(w.index.docs, id)
		}
		w.index.mu.Unlock()
		return
	}
	if err := w.index.RemoveDocument(id); err != nil {
		w.logger.Warn("fti watcher: remove failed", "path", path, "error", err)
	}
}

// Close stops watching and releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	w.cancel()

	w.mu.Lock()
	for _, t := range w.pending {
		t.Stop()
	}
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsWatcher.Close()
}
