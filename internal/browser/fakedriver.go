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
	"fmt"
	"sync"

	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

// FakeDriver is an in-memory Driver for tests and for daemons with no
// daemon.ws_endpoint configured. Elements are addressed by selector string
// in a flat map; no real DOM is modeled.
type FakeDriver struct {
	mu        sync.Mutex
	pages     []fakePage
	network   chan InterceptedRequest
	page      chan NetworkEvent
	websocket chan WebSocketFrame
	closed    bool
	Snapshots map[int]Snapshot // pre-seeded snapshots, keyed by page index
}

type fakePage struct {
	state    PageState
	elements map[string]fakeElement
}

type fakeElement struct {
	text    string
	html    string
	value   string
	attrs   map[string]string
	visible bool
	enabled bool
	checked bool
	count   int
}

// NewFakeDriver returns an empty FakeDriver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		network:   make(chan InterceptedRequest, 64),
		page:      make(chan NetworkEvent, 64),
		websocket: make(chan WebSocketFrame, 64),
		Snapshots: make(map[int]Snapshot),
	}
}

// Seed registers a fake element at selector on the given page, for tests to
// assert against.
func (f *FakeDriver) Seed(pageIndex int, selector string, el fakeElement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.pages) <= pageIndex {
		f.pages = append(f.pages, fakePage{elements: make(map[string]fakeElement)})
	}
	if f.pages[pageIndex].elements == nil {
		f.pages[pageIndex].elements = make(map[string]fakeElement)
	}
	f.pages[pageIndex].elements[selector] = el
}

func (f *FakeDriver) pageOrErr(pageIndex int) (*fakePage, error) {
	if pageIndex < 0 || pageIndex >= len(f.pages) {
		return nil, &xerrors.NoPageError{Session: "fake"}
	}
	return &f.pages[pageIndex], nil
}

func (f *FakeDriver) elementOrErr(pageIndex int, selector string) (fakeElement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.pageOrErr(pageIndex)
	if err != nil {
		return fakeElement{}, err
	}
	el, ok := p.elements[selector]
	if !ok {
		return fakeElement{}, &xerrors.ElementNotFoundError{Selector: selector}
	}
	return el, nil
}

func (f *FakeDriver) NewPage(ctx context.Context) (PageState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, fakePage{elements: make(map[string]fakeElement)})
	return f.pages[len(f.pages)-1].state, nil
}

func (f *FakeDriver) Navigate(ctx context.Context, pageIndex int, url string) (PageState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.pageOrErr(pageIndex)
	if err != nil {
		return PageState{}, err
	}
	p.state = PageState{URL: url, Title: "fake: " + url}
	return p.state, nil
}

func (f *FakeDriver) ClosePage(ctx context.Context, pageIndex int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.pageOrErr(pageIndex); err != nil {
		return err
	}
	f.pages = append(f.pages[:pageIndex], f.pages[pageIndex+1:]...)
	return nil
}

func (f *FakeDriver) Query(ctx context.Context, pageIndex int, selector string) (bool, error) {
	_, err := f.elementOrErr(pageIndex, selector)
	if err != nil {
		var nf *xerrors.ElementNotFoundError
		if xerrors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (f *FakeDriver) Click(ctx context.Context, pageIndex int, selector string) error {
	_, err := f.elementOrErr(pageIndex, selector)
	return err
}

func (f *FakeDriver) Hover(ctx context.Context, pageIndex int, selector string) error {
	_, err := f.elementOrErr(pageIndex, selector)
	return err
}

func (f *FakeDriver) Scroll(ctx context.Context, pageIndex int, selector string) error {
	_, err := f.elementOrErr(pageIndex, selector)
	return err
}

func (f *FakeDriver) Check(ctx context.Context, pageIndex int, selector string, checked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.pageOrErr(pageIndex)
	if err != nil {
		return err
	}
	el, ok := p.elements[selector]
	if !ok {
		return &xerrors.ElementNotFoundError{Selector: selector}
	}
	el.checked = checked
	p.elements[selector] = el
	return nil
}

func (f *FakeDriver) Upload(ctx context.Context, pageIndex int, selector, path string) error {
	_, err := f.elementOrErr(pageIndex, selector)
	return err
}

func (f *FakeDriver) Type(ctx context.Context, pageIndex int, selector, text string) error {
	return f.setValue(pageIndex, selector, text)
}

func (f *FakeDriver) Fill(ctx context.Context, pageIndex int, selector, text string) error {
	return f.setValue(pageIndex, selector, text)
}

func (f *FakeDriver) setValue(pageIndex int, selector, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.pageOrErr(pageIndex)
	if err != nil {
		return err
	}
	el, ok := p.elements[selector]
	if !ok {
		return &xerrors.ElementNotFoundError{Selector: selector}
	}
	el.value = text
	p.elements[selector] = el
	return nil
}

func (f *FakeDriver) GetText(ctx context.Context, pageIndex int, selector string) (string, error) {
	el, err := f.elementOrErr(pageIndex, selector)
	return el.text, err
}

func (f *FakeDriver) GetHTML(ctx context.Context, pageIndex int, selector string) (string, error) {
	el, err := f.elementOrErr(pageIndex, selector)
	return el.html, err
}

func (f *FakeDriver) GetValue(ctx context.Context, pageIndex int, selector string) (string, error) {
	el, err := f.elementOrErr(pageIndex, selector)
	return el.value, err
}

func (f *FakeDriver) GetAttr(ctx context.Context, pageIndex int, selector, attr string) (string, error) {
	el, err := f.elementOrErr(pageIndex, selector)
	if err != nil {
		return "", err
	}
	return el.attrs[attr], nil
}

func (f *FakeDriver) IsVisible(ctx context.Context, pageIndex int, selector string) (bool, error) {
	el, err := f.elementOrErr(pageIndex, selector)
	return el.visible, err
}

func (f *FakeDriver) IsEnabled(ctx context.Context, pageIndex int, selector string) (bool, error) {
	el, err := f.elementOrErr(pageIndex, selector)
	return el.enabled, err
}

func (f *FakeDriver) IsChecked(ctx context.Context, pageIndex int, selector string) (bool, error) {
	el, err := f.elementOrErr(pageIndex, selector)
	return el.checked, err
}

func (f *FakeDriver) GetCount(ctx context.Context, pageIndex int, selector string) (int, error) {
	el, err := f.elementOrErr(pageIndex, selector)
	return el.count, err
}

func (f *FakeDriver) ExtractTable(ctx context.Context, pageIndex int, selector string) ([][]string, error) {
	if _, err := f.elementOrErr(pageIndex, selector); err != nil {
		return nil, err
	}
	return [][]string{}, nil
}

func (f *FakeDriver) Back(ctx context.Context, pageIndex int) (PageState, error) {
	return f.CurrentState(ctx, pageIndex)
}

func (f *FakeDriver) Forward(ctx context.Context, pageIndex int) (PageState, error) {
	return f.CurrentState(ctx, pageIndex)
}

func (f *FakeDriver) Reload(ctx context.Context, pageIndex int) (PageState, error) {
	return f.CurrentState(ctx, pageIndex)
}

func (f *FakeDriver) CurrentState(ctx context.Context, pageIndex int) (PageState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.pageOrErr(pageIndex)
	if err != nil {
		return PageState{}, err
	}
	return p.state, nil
}

func (f *FakeDriver) Snapshot(ctx context.Context, pageIndex int) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.pageOrErr(pageIndex); err != nil {
		return Snapshot{}, err
	}
	if s, ok := f.Snapshots[pageIndex]; ok {
		return s, nil
	}
	return Snapshot{URL: f.pages[pageIndex].state.URL}, nil
}

func (f *FakeDriver) FindBySelector(ctx context.Context, pageIndex int, cssOrXPath string) (int, bool, error) {
	ok, err := f.Query(ctx, pageIndex, cssOrXPath)
	if err != nil || !ok {
		return 0, false, err
	}
	return 1, true, nil
}

func (f *FakeDriver) Cookies(ctx context.Context) ([]Cookie, error) { return nil, nil }

func (f *FakeDriver) AddCookie(ctx context.Context, c Cookie) error { return nil }

func (f *FakeDriver) DeleteCookie(ctx context.Context, name string) error { return nil }

func (f *FakeDriver) SetGeolocation(ctx context.Context, lat, lon, accuracy float64) error {
	return nil
}

func (f *FakeDriver) Screenshot(ctx context.Context, pageIndex int) ([]byte, error) {
	if _, err := f.pageOrErr(pageIndex); err != nil {
		return nil, err
	}
	return []byte("fake-png-bytes"), nil
}

func (f *FakeDriver) ExecuteJS(ctx context.Context, pageIndex int, script string) (any, error) {
	if _, err := f.pageOrErr(pageIndex); err != nil {
		return nil, err
	}
	return fmt.Sprintf("executed: %s", script), nil
}

func (f *FakeDriver) Events(ctx context.Context) (EventStreams, error) {
	return EventStreams{Network: f.network, Page: f.page, WebSocket: f.websocket}, nil
}

// EmitNetwork, EmitPage, and EmitWebSocket push a synthetic event onto the
// corresponding stream, for tests exercising the event pumps.
func (f *FakeDriver) EmitNetwork(ev InterceptedRequest) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if !closed {
		f.network <- ev
	}
}

func (f *FakeDriver) EmitPage(ev NetworkEvent) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if !closed {
		f.page <- ev
	}
}

func (f *FakeDriver) EmitWebSocket(ev WebSocketFrame) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if !closed {
		f.websocket <- ev
	}
}

func (f *FakeDriver) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.network)
		close(f.page)
		close(f.websocket)
	}
	return nil
}
