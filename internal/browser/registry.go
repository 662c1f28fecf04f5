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

package browser

import (
	"context"
	"log/slog"
	"sync"
)

// DriverFactory constructs a fresh Driver for a newly created session.
type DriverFactory func(ctx context.Context, headless bool, dataDir string, stealth bool) (Driver, error)

// Registry is the process-wide map of named sessions. The mutex is held
// only for lookup/insert/delete; once a *Session handle is obtained,
// command execution against it runs lock-free (the Session has its own
// internal mutex guarding its mutable page/log state).
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	newDriver  DriverFactory
	eventLogCap int
	logger     *slog.Logger
}

// NewRegistry returns an empty Registry. newDriver is called to construct
// the Driver for each newly created session; eventLogCap bounds each
// session's three ring logs.
func NewRegistry(newDriver DriverFactory, eventLogCap int, logger *slog.Logger) *Registry {
	if eventLogCap <= 0 {
		eventLogCap = 1024
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(nil, nil))
	}
	return &Registry{
		sessions:    make(map[string]*Session),
		newDriver:   newDriver,
		eventLogCap: eventLogCap,
		logger:      logger,
	}
}

// GetOrCreate is the only session factory. It is idempotent for a matching
// headless value; a request with a different headless value recreates the
// session (closing the old one first). datadir and stealth only apply at
// creation.
func (r *Registry) GetOrCreate(ctx context.Context, id string, headless bool, dataDir string, stealth bool) (*Session, error) {
	r.mu.Lock()
	existing, ok := r.sessions[id]
	r.mu.Unlock()

	if ok {
		if existing.Headless == headless {
			return existing, nil
		}
		if err := r.Close(ctx, id); err != nil {
			return nil, err
		}
	}

	driver, err := r.newDriver(ctx, headless, dataDir, stealth)
	if err != nil {
		return nil, err
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	sess := &Session{
		ID:              id,
		Headless:        headless,
		DataDir:         dataDir,
		Stealth:         stealth,
		driver:          driver,
		activePageIndex: -1,
		actionLog:       NewRingLog[ActionRecord](r.eventLogCap),
		networkRequests: NewRingLog[InterceptedRequest](r.eventLogCap),
		networkEvents:   NewRingLog[NetworkEvent](r.eventLogCap),
		websocketFrames: NewRingLog[WebSocketFrame](r.eventLogCap),
		cancelPumps:     cancel,
		pumpsDone:       make(chan struct{}),
	}

	if err := startEventPumps(pumpCtx, sess, r.logger); err != nil {
		cancel()
		driver.Close(ctx)
		return nil, err
	}

	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()
	return sess, nil
}

// Get returns an existing session, or nil if none is live under id.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Close destroys the session under id, if any, stopping its event pumps
// and closing its driver.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	sess.cancelPumps()
	<-sess.pumpsDone
	return sess.driver.Close(ctx)
}

// CloseAll destroys every live session, for daemon shutdown.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Close(ctx, id)
	}
}
