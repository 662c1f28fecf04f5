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

// Package browser implements the browser-automation daemon's session
// registry, CDP-like driver capability, accessibility-tree snapshotting,
// and self-healing element location.
package browser

import (
	"context"
	"sync"
	"time"
)

// PageState is cached from the last navigation or snapshot.
type PageState struct {
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// SnapshotNode is one entry in a condensed accessibility tree. RefID is
// stable only within the snapshot it belongs to.
type SnapshotNode struct {
	RefID    int            `json:"ref_id"`
	Role     string         `json:"role"`
	Name     string         `json:"name,omitempty"`
	Value    string         `json:"value,omitempty"`
	Children []SnapshotNode `json:"children,omitempty"`
}

// Snapshot is one captured accessibility tree for a page.
type Snapshot struct {
	URL       string         `json:"url"`
	Nodes     []SnapshotNode `json:"nodes"`
	CapturedAt time.Time     `json:"captured_at"`
}

// SnapshotDiff is the node-level delta between two snapshots.
type SnapshotDiff struct {
	Added   []SnapshotNode `json:"added"`
	Removed []SnapshotNode `json:"removed"`
	Changed []SnapshotNode `json:"changed"`
}

// InterceptedRequest records one observed network request lifecycle event.
type InterceptedRequest struct {
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	Status    int       `json:"status,omitempty"`
	Phase     string    `json:"phase"` // "request" | "response" | "failed"
}

// NetworkEvent is a page-lifecycle or console event observed on a page.
type NetworkEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"` // "console" | "load" | "domcontentloaded" | ...
	Message   string    `json:"message,omitempty"`
}

// WebSocketFrame records one frame sent or received over a page-level
// websocket connection.
type WebSocketFrame struct {
	Timestamp time.Time `json:"timestamp"`
	Direction string    `json:"direction"` // "sent" | "received"
	Payload   string    `json:"payload"`
}

// ActionRecord is appended for every command that mutates or queries a page.
type ActionRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	ActionKind string    `json:"action_kind"`
	ParamsJSON string    `json:"params_json,omitempty"`
}

// page is one open tab/page within a session.
type page struct {
	state PageState
}

// Session is one named, long-lived browser context. Created lazily on
// first command referencing its id; destroyed on explicit close or daemon
// shutdown.
type Session struct {
	ID       string
	Headless bool
	DataDir  string
	Stealth  bool

	driver Driver

	mu               sync.Mutex
	pages            []*page
	activePageIndex  int
	snapshotHistory  []Snapshot
	lastSnapshot     *Snapshot

	actionLog        *RingLog[ActionRecord]
	networkRequests  *RingLog[InterceptedRequest]
	networkEvents    *RingLog[NetworkEvent]
	websocketFrames  *RingLog[WebSocketFrame]

	truncated bool

	cancelPumps context.CancelFunc
	pumpsDone   chan struct{}

	// cmdMu serializes top-level command dispatch on this session: one
	// command in flight per session, per spec's concurrency policy.
	// Independent of mu, which guards only in-memory page/log state.
	cmdMu sync.Mutex
}

// Lock and Unlock serialize command dispatch on the session: callers (the
// daemon dispatcher) hold this for the duration of one command so that two
// concurrent requests against the same session never interleave.
func (s *Session) Lock()   { s.cmdMu.Lock() }
func (s *Session) Unlock() { s.cmdMu.Unlock() }

// activePage returns the session's active page, or nil if none exists.
func (s *Session) activePage() *page {
	if s.activePageIndex < 0 || s.activePageIndex >= len(s.pages) {
		return nil
	}
	return s.pages[s.activePageIndex]
}
