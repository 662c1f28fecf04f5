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
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch_RejectsMissingSession(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Dispatch(context.Background(), Request{Action: "Open"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "session")
}

func TestDispatch_OpenThenGetTitleRoundTrips(t *testing.T) {
	d := newTestDispatcher()
	ctx := context.Background()

	resp := d.Dispatch(ctx, Request{
		Action:  "Open",
		Params:  json.RawMessage(`{"url":"https://example.com"}`),
		Context: RequestContext{Session: "s1", Headless: true},
	})
	require.True(t, resp.Success, resp.Error)

	resp = d.Dispatch(ctx, Request{
		Action:  "GetTitle",
		Context: RequestContext{Session: "s1", Headless: true},
	})
	require.True(t, resp.Success, resp.Error)
}

func TestDispatch_UnknownActionFails(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Dispatch(context.Background(), Request{
		Action:  "DoesNotExist",
		Context: RequestContext{Session: "s1", Headless: true},
	})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unknown action")
}

func TestDispatch_MalformedParamsFails(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Dispatch(context.Background(), Request{
		Action:  "Open",
		Params:  json.RawMessage(`{not json`),
		Context: RequestContext{Session: "s1", Headless: true},
	})
	assert.False(t, resp.Success)
}

func TestDispatch_RateLimiterBlocksExcessCommands(t *testing.T) {
	d := newTestDispatcher()
	d.limiter = NewSessionRateLimiter(1, 1)

	ctx := context.Background()
	getTitle := func() bool {
		return d.Dispatch(ctx, Request{
			Action:  "GetTitle",
			Context: RequestContext{Session: "s1", Headless: true},
		}).Success
	}
	// The first call (Open) consumes the single burst token and must
	// succeed; the GetTitle calls that follow immediately are throttled.
	first := d.Dispatch(ctx, Request{
		Action:  "Open",
		Params:  json.RawMessage(`{"url":"https://example.com"}`),
		Context: RequestContext{Session: "s1", Headless: true},
	})
	require.True(t, first.Success, first.Error)

	blocked := 0
	for i := 0; i < 5; i++ {
		if !getTitle() {
			blocked++
		}
	}
	assert.Greater(t, blocked, 0, "expected at least one rate-limited call")
}
