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
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

// wireRequest is one CDP-like command sent over the remote-debugging
// websocket: {id, method, params}. The browser process being driven is
// expected to echo id back on its response.
type wireRequest struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// wireResponse is either a command reply (ID matches a pending request) or
// an unsolicited event (Method set, ID zero).
type wireResponse struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *wireError      `json:"error,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

type wireError struct {
	Message string `json:"message"`
}

// WSDriver drives a real browser process over its remote-debugging
// websocket endpoint using a CDP-like JSON command/event protocol.
type WSDriver struct {
	conn    *websocket.Conn
	nextID  atomic.Uint64
	readCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	pending map[uint64]chan wireResponse

	network   chan InterceptedRequest
	page      chan NetworkEvent
	websocket chan WebSocketFrame

	readDone chan struct{}
}

// DialWSDriver connects to a remote-debugging endpoint (e.g. a headless
// Chromium instance launched with --remote-debugging-port) and returns a
// Driver bound to it.
func DialWSDriver(ctx context.Context, endpoint string, headless bool, dataDir string, stealth bool) (Driver, error) {
	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, xerrors.Wrapf(err, "dial browser endpoint %s", endpoint)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	d := &WSDriver{
		conn:      conn,
		readCtx:   readCtx,
		cancel:    cancel,
		pending:   make(map[uint64]chan wireResponse),
		network:   make(chan InterceptedRequest, 256),
		page:      make(chan NetworkEvent, 256),
		websocket: make(chan WebSocketFrame, 256),
		readDone:  make(chan struct{}),
	}
	go d.readLoop()

	if err := d.call(ctx, "Target.setDiscoverBrowserContextsEnabled", map[string]bool{"headless": headless, "stealth": stealth, "dataDir": dataDir != ""}, nil); err != nil {
		d.Close(ctx)
		return nil, err
	}
	return d, nil
}

func (d *WSDriver) readLoop() {
	defer close(d.readDone)
	for {
		var resp wireResponse
		err := wsjson.Read(d.readCtx, d.conn, &resp)
		if err != nil {
			d.mu.Lock()
			for id, ch := range d.pending {
				close(ch)
				delete(d.pending, id)
			}
			d.mu.Unlock()
			close(d.network)
			close(d.page)
			close(d.websocket)
			return
		}

		if resp.Method != "" && resp.ID == 0 {
			d.routeEvent(resp)
			continue
		}

		d.mu.Lock()
		ch, ok := d.pending[resp.ID]
		if ok {
			delete(d.pending, resp.ID)
		}
		d.mu.Unlock()
		if ok {
			ch <- resp
			close(ch)
		}
	}
}

func (d *WSDriver) routeEvent(resp wireResponse) {
	switch resp.Method {
	case "Network.requestWillBeSent", "Network.responseReceived", "Network.loadingFailed":
		var ev InterceptedRequest
		if json.Unmarshal(resp.Params, &ev) == nil {
			ev.Timestamp = time.Now()
			select {
			case d.network <- ev:
			default:
			}
		}
	case "Page.loadEventFired", "Page.domContentEventFired", "Runtime.consoleAPICalled":
		var ev NetworkEvent
		if json.Unmarshal(resp.Params, &ev) == nil {
			ev.Timestamp = time.Now()
			select {
			case d.page <- ev:
			default:
			}
		}
	case "Network.webSocketFrameSent", "Network.webSocketFrameReceived":
		var ev WebSocketFrame
		if json.Unmarshal(resp.Params, &ev) == nil {
			ev.Timestamp = time.Now()
			select {
			case d.websocket <- ev:
			default:
			}
		}
	}
}

// call sends a command and blocks for its matching reply, decoding Result
// into out if non-nil.
func (d *WSDriver) call(ctx context.Context, method string, params any, out any) error {
	id := d.nextID.Add(1)
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return err
	}

	replyCh := make(chan wireResponse, 1)
	d.mu.Lock()
	d.pending[id] = replyCh
	d.mu.Unlock()

	req := wireRequest{ID: id, Method: method, Params: paramsJSON}
	if err := wsjson.Write(ctx, d.conn, req); err != nil {
		d.mu.Lock()
		delete(d.pending, id)
		d.mu.Unlock()
		return xerrors.Wrapf(err, "send %s", method)
	}

	select {
	case resp, ok := <-replyCh:
		if !ok {
			return &xerrors.BrowserError{Cause: fmt.Errorf("connection closed waiting for %s", method)}
		}
		if resp.Error != nil {
			return &xerrors.BrowserError{Cause: fmt.Errorf("%s: %s", method, resp.Error.Message)}
		}
		if out != nil && resp.Result != nil {
			return json.Unmarshal(resp.Result, out)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *WSDriver) NewPage(ctx context.Context) (PageState, error) {
	var state PageState
	err := d.call(ctx, "Target.createTarget", map[string]string{"url": "about:blank"}, &state)
	return state, err
}

func (d *WSDriver) Navigate(ctx context.Context, pageIndex int, url string) (PageState, error) {
	var state PageState
	err := d.call(ctx, "Page.navigate", map[string]any{"pageIndex": pageIndex, "url": url}, &state)
	if err == nil && state.URL == "" {
		state.URL = url
	}
	return state, err
}

func (d *WSDriver) ClosePage(ctx context.Context, pageIndex int) error {
	return d.call(ctx, "Target.closeTarget", map[string]int{"pageIndex": pageIndex}, nil)
}

func (d *WSDriver) Query(ctx context.Context, pageIndex int, selector string) (bool, error) {
	var out struct {
		Found bool `json:"found"`
	}
	err := d.call(ctx, "DOM.querySelector", map[string]any{"pageIndex": pageIndex, "selector": selector}, &out)
	return out.Found, err
}

func (d *WSDriver) Click(ctx context.Context, pageIndex int, selector string) error {
	return d.call(ctx, "Input.dispatchClick", map[string]any{"pageIndex": pageIndex, "selector": selector}, nil)
}

func (d *WSDriver) Hover(ctx context.Context, pageIndex int, selector string) error {
	return d.call(ctx, "Input.dispatchMouseMove", map[string]any{"pageIndex": pageIndex, "selector": selector}, nil)
}

func (d *WSDriver) Scroll(ctx context.Context, pageIndex int, selector string) error {
	return d.call(ctx, "DOM.scrollIntoViewIfNeeded", map[string]any{"pageIndex": pageIndex, "selector": selector}, nil)
}

func (d *WSDriver) Check(ctx context.Context, pageIndex int, selector string, checked bool) error {
	return d.call(ctx, "DOM.setChecked", map[string]any{"pageIndex": pageIndex, "selector": selector, "checked": checked}, nil)
}

func (d *WSDriver) Upload(ctx context.Context, pageIndex int, selector, path string) error {
	return d.call(ctx, "DOM.setFileInputFiles", map[string]any{"pageIndex": pageIndex, "selector": selector, "files": []string{path}}, nil)
}

func (d *WSDriver) Type(ctx context.Context, pageIndex int, selector, text string) error {
	return d.call(ctx, "Input.insertText", map[string]any{"pageIndex": pageIndex, "selector": selector, "text": text}, nil)
}

func (d *WSDriver) Fill(ctx context.Context, pageIndex int, selector, text string) error {
	return d.call(ctx, "DOM.setValue", map[string]any{"pageIndex": pageIndex, "selector": selector, "value": text}, nil)
}

func (d *WSDriver) GetText(ctx context.Context, pageIndex int, selector string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	err := d.call(ctx, "DOM.getTextContent", map[string]any{"pageIndex": pageIndex, "selector": selector}, &out)
	return out.Text, err
}

func (d *WSDriver) GetHTML(ctx context.Context, pageIndex int, selector string) (string, error) {
	var out struct {
		HTML string `json:"html"`
	}
	err := d.call(ctx, "DOM.getOuterHTML", map[string]any{"pageIndex": pageIndex, "selector": selector}, &out)
	return out.HTML, err
}

func (d *WSDriver) GetValue(ctx context.Context, pageIndex int, selector string) (string, error) {
	var out struct {
		Value string `json:"value"`
	}
	err := d.call(ctx, "DOM.getValue", map[string]any{"pageIndex": pageIndex, "selector": selector}, &out)
	return out.Value, err
}

func (d *WSDriver) GetAttr(ctx context.Context, pageIndex int, selector, attr string) (string, error) {
	var out struct {
		Value string `json:"value"`
	}
	err := d.call(ctx, "DOM.getAttribute", map[string]any{"pageIndex": pageIndex, "selector": selector, "attr": attr}, &out)
	return out.Value, err
}

func (d *WSDriver) IsVisible(ctx context.Context, pageIndex int, selector string) (bool, error) {
	var out struct {
		Visible bool `json:"visible"`
	}
	err := d.call(ctx, "DOM.isVisible", map[string]any{"pageIndex": pageIndex, "selector": selector}, &out)
	return out.Visible, err
}

func (d *WSDriver) IsEnabled(ctx context.Context, pageIndex int, selector string) (bool, error) {
	var out struct {
		Enabled bool `json:"enabled"`
	}
	err := d.call(ctx, "DOM.isEnabled", map[string]any{"pageIndex": pageIndex, "selector": selector}, &out)
	return out.Enabled, err
}

func (d *WSDriver) IsChecked(ctx context.Context, pageIndex int, selector string) (bool, error) {
	var out struct {
		Checked bool `json:"checked"`
	}
	err := d.call(ctx, "DOM.isChecked", map[string]any{"pageIndex": pageIndex, "selector": selector}, &out)
	return out.Checked, err
}

func (d *WSDriver) GetCount(ctx context.Context, pageIndex int, selector string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := d.call(ctx, "DOM.querySelectorAllCount", map[string]any{"pageIndex": pageIndex, "selector": selector}, &out)
	return out.Count, err
}

func (d *WSDriver) ExtractTable(ctx context.Context, pageIndex int, selector string) ([][]string, error) {
	var out struct {
		Rows [][]string `json:"rows"`
	}
	err := d.call(ctx, "DOM.extractTable", map[string]any{"pageIndex": pageIndex, "selector": selector}, &out)
	return out.Rows, err
}

func (d *WSDriver) Back(ctx context.Context, pageIndex int) (PageState, error) {
	var state PageState
	err := d.call(ctx, "Page.goBack", map[string]int{"pageIndex": pageIndex}, &state)
	return state, err
}

func (d *WSDriver) Forward(ctx context.Context, pageIndex int) (PageState, error) {
	var state PageState
	err := d.call(ctx, "Page.goForward", map[string]int{"pageIndex": pageIndex}, &state)
	return state, err
}

func (d *WSDriver) Reload(ctx context.Context, pageIndex int) (PageState, error) {
	var state PageState
	err := d.call(ctx, "Page.reload", map[string]int{"pageIndex": pageIndex}, &state)
	return state, err
}

func (d *WSDriver) CurrentState(ctx context.Context, pageIndex int) (PageState, error) {
	var state PageState
	err := d.call(ctx, "Page.getCurrentState", map[string]int{"pageIndex": pageIndex}, &state)
	return state, err
}

func (d *WSDriver) Snapshot(ctx context.Context, pageIndex int) (Snapshot, error) {
	var snap Snapshot
	err := d.call(ctx, "Accessibility.getFullAXTree", map[string]int{"pageIndex": pageIndex}, &snap)
	if err == nil && snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now()
	}
	return snap, err
}

func (d *WSDriver) FindBySelector(ctx context.Context, pageIndex int, cssOrXPath string) (int, bool, error) {
	var out struct {
		RefID int  `json:"ref_id"`
		Found bool `json:"found"`
	}
	err := d.call(ctx, "DOM.resolveNode", map[string]any{"pageIndex": pageIndex, "selector": cssOrXPath}, &out)
	return out.RefID, out.Found, err
}

func (d *WSDriver) Cookies(ctx context.Context) ([]Cookie, error) {
	var out struct {
		Cookies []Cookie `json:"cookies"`
	}
	err := d.call(ctx, "Network.getAllCookies", nil, &out)
	return out.Cookies, err
}

func (d *WSDriver) AddCookie(ctx context.Context, c Cookie) error {
	return d.call(ctx, "Network.setCookie", c, nil)
}

func (d *WSDriver) DeleteCookie(ctx context.Context, name string) error {
	return d.call(ctx, "Network.deleteCookies", map[string]string{"name": name}, nil)
}

func (d *WSDriver) SetGeolocation(ctx context.Context, lat, lon, accuracy float64) error {
	return d.call(ctx, "Emulation.setGeolocationOverride", map[string]float64{"latitude": lat, "longitude": lon, "accuracy": accuracy}, nil)
}

func (d *WSDriver) Screenshot(ctx context.Context, pageIndex int) ([]byte, error) {
	var out struct {
		Data []byte `json:"data"`
	}
	err := d.call(ctx, "Page.captureScreenshot", map[string]int{"pageIndex": pageIndex}, &out)
	return out.Data, err
}

func (d *WSDriver) ExecuteJS(ctx context.Context, pageIndex int, script string) (any, error) {
	var out struct {
		Result any `json:"result"`
	}
	err := d.call(ctx, "Runtime.evaluate", map[string]any{"pageIndex": pageIndex, "expression": script}, &out)
	return out.Result, err
}

func (d *WSDriver) Events(ctx context.Context) (EventStreams, error) {
	return EventStreams{Network: d.network, Page: d.page, WebSocket: d.websocket}, nil
}

func (d *WSDriver) Close(ctx context.Context) error {
	d.cancel()
	err := d.conn.Close(websocket.StatusNormalClosure, "session closed")
	<-d.readDone
	return err
}
