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

import "context"

// Cookie is one browser cookie.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain,omitempty"`
	Path     string `json:"path,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HTTPOnly bool   `json:"http_only,omitempty"`
}

// EventStreams groups the three independent async event channels a driver
// exposes: network request lifecycle, page lifecycle/console, and
// websocket frames. Each is drained by its own pump goroutine into its own
// ring log, per spec's "three async pumps, one per event family".
type EventStreams struct {
	Network   <-chan InterceptedRequest
	Page      <-chan NetworkEvent
	WebSocket <-chan WebSocketFrame
}

// Driver is the CDP-like capability a Session drives a real or fake
// browser process through. The production implementation dials a
// websocket-based remote-debugging endpoint; tests use an in-memory fake.
type Driver interface {
	// NewPage opens a blank page and returns its current state.
	NewPage(ctx context.Context) (PageState, error)
	// Navigate loads url in the page at pageIndex.
	Navigate(ctx context.Context, pageIndex int, url string) (PageState, error)
	// ClosePage closes the page at pageIndex.
	ClosePage(ctx context.Context, pageIndex int) error

	// Query runs selector against the page, for actions whose inputs are a
	// bare CSS/XPath-ish selector string (Click/Hover/Type/Fill/...).
	Query(ctx context.Context, pageIndex int, selector string) (found bool, err error)

	Click(ctx context.Context, pageIndex int, selector string) error
	Hover(ctx context.Context, pageIndex int, selector string) error
	Scroll(ctx context.Context, pageIndex int, selector string) error
	Check(ctx context.Context, pageIndex int, selector string, checked bool) error
	Upload(ctx context.Context, pageIndex int, selector, path string) error
	Type(ctx context.Context, pageIndex int, selector, text string) error
	Fill(ctx context.Context, pageIndex int, selector, text string) error

	GetText(ctx context.Context, pageIndex int, selector string) (string, error)
	GetHTML(ctx context.Context, pageIndex int, selector string) (string, error)
	GetValue(ctx context.Context, pageIndex int, selector string) (string, error)
	GetAttr(ctx context.Context, pageIndex int, selector, attr string) (string, error)
	IsVisible(ctx context.Context, pageIndex int, selector string) (bool, error)
	IsEnabled(ctx context.Context, pageIndex int, selector string) (bool, error)
	IsChecked(ctx context.Context, pageIndex int, selector string) (bool, error)
	GetCount(ctx context.Context, pageIndex int, selector string) (int, error)
	ExtractTable(ctx context.Context, pageIndex int, selector string) ([][]string, error)

	Back(ctx context.Context, pageIndex int) (PageState, error)
	Forward(ctx context.Context, pageIndex int) (PageState, error)
	Reload(ctx context.Context, pageIndex int) (PageState, error)
	CurrentState(ctx context.Context, pageIndex int) (PageState, error)

	Snapshot(ctx context.Context, pageIndex int) (Snapshot, error)
	FindBySelector(ctx context.Context, pageIndex int, cssOrXPath string) (ref int, ok bool, err error)

	Cookies(ctx context.Context) ([]Cookie, error)
	AddCookie(ctx context.Context, c Cookie) error
	DeleteCookie(ctx context.Context, name string) error

	SetGeolocation(ctx context.Context, lat, lon, accuracy float64) error

	Screenshot(ctx context.Context, pageIndex int) ([]byte, error)
	ExecuteJS(ctx context.Context, pageIndex int, script string) (any, error)

	// Events returns the three per-family event channels; each is closed
	// when ctx is canceled or the underlying connection drops.
	Events(ctx context.Context) (EventStreams, error)

	// Close releases the driver's underlying browser process/connection.
	Close(ctx context.Context) error
}
