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

	"golang.org/x/sync/errgroup"
)

// startEventPumps launches one goroutine per event family (network,
// page/console, websocket), each draining its driver channel into its own
// ring log. Every append is a single RingLog.Append call: O(1), no
// scanning. Each pump stops when ctx is canceled or its own driver channel
// closes; pumpsDone is closed once all three have stopped.
func startEventPumps(ctx context.Context, sess *Session, logger *slog.Logger) error {
	streams, err := sess.driver.Events(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case ev, ok := <-streams.Network:
				if !ok {
					return nil
				}
				sess.networkRequests.Append(ev)
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case ev, ok := <-streams.Page:
				if !ok {
					return nil
				}
				sess.networkEvents.Append(ev)
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case ev, ok := <-streams.WebSocket:
				if !ok {
					return nil
				}
				sess.websocketFrames.Append(ev)
			}
		}
	})

	go func() {
		if err := g.Wait(); err != nil && err != context.Canceled {
			logger.Warn("browser event pump stopped", "session", sess.ID, "error", err)
		}
		close(sess.pumpsDone)
	}()
	return nil
}
