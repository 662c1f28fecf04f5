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
	"time"

	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

// WaitForNetworkIdle blocks until no network request has been observed for
// idleWindow, or timeout elapses. It polls the session's network log
// instead of requiring the driver to support a dedicated idle event,
// keeping it usable against both FakeDriver and WSDriver.
func (s *Session) WaitForNetworkIdle(ctx context.Context, idleWindow, timeout time.Duration) error {
	const pollInterval = 50 * time.Millisecond
	deadline := time.Now().Add(timeout)

	lastActivity := s.lastNetworkActivity()
	for {
		now := time.Now()
		if now.Sub(lastActivity) >= idleWindow {
			s.logAction("wait_for_network_idle", map[string]string{"idle_window": idleWindow.String()})
			return nil
		}
		if now.After(deadline) {
			return &xerrors.BrowserTimeoutError{Op: "wait_for_network_idle"}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
		if activity := s.lastNetworkActivity(); activity.After(lastActivity) {
			lastActivity = activity
		}
	}
}

// lastNetworkActivity returns the timestamp of the most recently observed
// network request, or the zero time if none have been observed yet.
func (s *Session) lastNetworkActivity() time.Time {
	reqs := s.networkRequests.Snapshot()
	if len(reqs) == 0 {
		return time.Time{}
	}
	return reqs[len(reqs)-1].Timestamp
}
