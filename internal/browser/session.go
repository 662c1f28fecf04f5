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
	"time"

	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

// redactedValue is logged in place of any argument an action declares
// sensitive (TypeSecret's secret, AutomatedFill's field values).
const redactedValue = "***redacted***"

func (s *Session) logAction(kind string, params any) {
	buf, err := json.Marshal(params)
	paramsJSON := ""
	if err == nil {
		paramsJSON = string(buf)
	}
	s.actionLog.Append(ActionRecord{
		Timestamp:  time.Now(),
		ActionKind: kind,
		ParamsJSON: paramsJSON,
	})
}

// resolvePageIndex returns explicit if it is a valid page index, or the
// session's active page index if explicit is negative. Returns NoPageError
// if there is no active page to fall back to.
func (s *Session) resolvePageIndex(explicit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if explicit >= 0 {
		if explicit >= len(s.pages) {
			return 0, &xerrors.InvalidIndexError{Index: explicit, Len: len(s.pages)}
		}
		return explicit, nil
	}
	if s.activePageIndex < 0 || s.activePageIndex >= len(s.pages) {
		return 0, &xerrors.NoPageError{Session: s.ID}
	}
	return s.activePageIndex, nil
}

// Open navigates to url, creating the session's first page if none exists
// yet, otherwise navigating the active page.
func (s *Session) Open(ctx context.Context, url string) (PageState, error) {
	s.mu.Lock()
	hasPage := len(s.pages) > 0
	s.mu.Unlock()
	if !hasPage {
		if _, err := s.NewTab(ctx); err != nil {
			return PageState{}, err
		}
	}
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return PageState{}, err
	}
	state, err := s.driver.Navigate(ctx, idx, url)
	if err != nil {
		return PageState{}, err
	}
	s.mu.Lock()
	s.pages[idx].state = state
	s.mu.Unlock()
	s.logAction("open", map[string]string{"url": url})
	return state, nil
}

// NewTab opens a blank page and switches the session's active page to it.
func (s *Session) NewTab(ctx context.Context) (int, error) {
	state, err := s.driver.NewPage(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.pages = append(s.pages, &page{state: state})
	idx := len(s.pages) - 1
	s.activePageIndex = idx
	s.mu.Unlock()
	s.logAction("new_tab", nil)
	return idx, nil
}

// SwitchTab changes the active page index.
func (s *Session) SwitchTab(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.pages) {
		return &xerrors.InvalidIndexError{Index: index, Len: len(s.pages)}
	}
	s.activePageIndex = index
	s.logAction("switch_tab", map[string]int{"index": index})
	return nil
}

// CloseTab closes the page at index, adjusting the active index if needed.
func (s *Session) CloseTab(ctx context.Context, index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.pages) {
		s.mu.Unlock()
		return &xerrors.InvalidIndexError{Index: index, Len: len(s.pages)}
	}
	s.mu.Unlock()

	if err := s.driver.ClosePage(ctx, index); err != nil {
		return err
	}

	s.mu.Lock()
	s.pages = append(s.pages[:index], s.pages[index+1:]...)
	switch {
	case len(s.pages) == 0:
		s.activePageIndex = -1
	case s.activePageIndex >= index:
		s.activePageIndex--
		if s.activePageIndex < 0 {
			s.activePageIndex = 0
		}
	}
	s.mu.Unlock()
	s.logAction("close_tab", map[string]int{"index": index})
	return nil
}

// TabInfo describes one open tab for the Tabs action.
type TabInfo struct {
	Index  int       `json:"index"`
	Active bool      `json:"active"`
	State  PageState `json:"state"`
}

// ListTabs returns the session's open tabs in index order.
func (s *Session) ListTabs() []TabInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	tabs := make([]TabInfo, len(s.pages))
	for i, p := range s.pages {
		tabs[i] = TabInfo{Index: i, Active: i == s.activePageIndex, State: p.state}
	}
	return tabs
}

func (s *Session) Back(ctx context.Context) (PageState, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return PageState{}, err
	}
	state, err := s.driver.Back(ctx, idx)
	s.logAction("back", nil)
	return state, err
}

func (s *Session) Forward(ctx context.Context) (PageState, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return PageState{}, err
	}
	state, err := s.driver.Forward(ctx, idx)
	s.logAction("forward", nil)
	return state, err
}

func (s *Session) Reload(ctx context.Context) (PageState, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return PageState{}, err
	}
	state, err := s.driver.Reload(ctx, idx)
	s.logAction("reload", nil)
	return state, err
}

func (s *Session) Click(ctx context.Context, selector string) error {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return err
	}
	err = s.driver.Click(ctx, idx, resolved)
	s.logAction("click", map[string]string{"selector": selector})
	return err
}

func (s *Session) Hover(ctx context.Context, selector string) error {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return err
	}
	err = s.driver.Hover(ctx, idx, resolved)
	s.logAction("hover", map[string]string{"selector": selector})
	return err
}

func (s *Session) Scroll(ctx context.Context, selector string) error {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return err
	}
	err = s.driver.Scroll(ctx, idx, resolved)
	s.logAction("scroll", map[string]string{"selector": selector})
	return err
}

func (s *Session) Check(ctx context.Context, selector string) error {
	return s.setChecked(ctx, selector, true, "check")
}

func (s *Session) Uncheck(ctx context.Context, selector string) error {
	return s.setChecked(ctx, selector, false, "uncheck")
}

func (s *Session) setChecked(ctx context.Context, selector string, checked bool, kind string) error {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return err
	}
	err = s.driver.Check(ctx, idx, resolved, checked)
	s.logAction(kind, map[string]string{"selector": selector})
	return err
}

func (s *Session) Upload(ctx context.Context, selector, path string) error {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return err
	}
	err = s.driver.Upload(ctx, idx, resolved, path)
	s.logAction("upload", map[string]string{"selector": selector, "path": path})
	return err
}

func (s *Session) Type(ctx context.Context, selector, text string) error {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return err
	}
	err = s.driver.Type(ctx, idx, resolved, text)
	s.logAction("type", map[string]string{"selector": selector, "text": text})
	return err
}

// TypeSecret behaves like Type but never writes the typed value to the
// action log, for credentials and other sensitive form input.
func (s *Session) TypeSecret(ctx context.Context, selector, secret string) error {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return err
	}
	err = s.driver.Type(ctx, idx, resolved, secret)
	s.logAction("type_secret", map[string]string{"selector": selector, "text": redactedValue})
	return err
}

func (s *Session) Fill(ctx context.Context, selector, text string) error {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return err
	}
	err = s.driver.Fill(ctx, idx, resolved, text)
	s.logAction("fill", map[string]string{"selector": selector, "text": text})
	return err
}

// AutomatedFill fills every selector->value pair in fields, in map
// iteration order, stopping at the first error. Field values are never
// written to the action log since the set commonly includes credentials.
func (s *Session) AutomatedFill(ctx context.Context, fields map[string]string) error {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(fields))
	for selector, value := range fields {
		resolved, err := s.resolveSelector(ctx, idx, selector)
		if err != nil {
			return err
		}
		if err := s.driver.Fill(ctx, idx, resolved, value); err != nil {
			return err
		}
		keys = append(keys, selector)
	}
	s.logAction("automated_fill", map[string]any{"selectors": keys})
	return nil
}

func (s *Session) GetText(ctx context.Context, selector string) (string, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return "", err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return "", err
	}
	return s.driver.GetText(ctx, idx, resolved)
}

func (s *Session) GetHTML(ctx context.Context, selector string) (string, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return "", err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return "", err
	}
	return s.driver.GetHTML(ctx, idx, resolved)
}

func (s *Session) GetValue(ctx context.Context, selector string) (string, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return "", err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return "", err
	}
	return s.driver.GetValue(ctx, idx, resolved)
}

func (s *Session) GetAttr(ctx context.Context, selector, attr string) (string, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return "", err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return "", err
	}
	return s.driver.GetAttr(ctx, idx, resolved, attr)
}

func (s *Session) IsVisible(ctx context.Context, selector string) (bool, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return false, err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return false, err
	}
	return s.driver.IsVisible(ctx, idx, resolved)
}

func (s *Session) IsEnabled(ctx context.Context, selector string) (bool, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return false, err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return false, err
	}
	return s.driver.IsEnabled(ctx, idx, resolved)
}

func (s *Session) IsChecked(ctx context.Context, selector string) (bool, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return false, err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return false, err
	}
	return s.driver.IsChecked(ctx, idx, resolved)
}

func (s *Session) GetCount(ctx context.Context, selector string) (int, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return 0, err
	}
	// GetCount queries a selector's match count directly; no self-healing,
	// since zero matches is a valid (non-error) answer.
	return s.driver.GetCount(ctx, idx, selector)
}

func (s *Session) ExtractTable(ctx context.Context, selector string) ([][]string, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return nil, err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return nil, err
	}
	return s.driver.ExtractTable(ctx, idx, resolved)
}

func (s *Session) GetTitle(ctx context.Context) (string, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return "", err
	}
	state, err := s.driver.CurrentState(ctx, idx)
	if err != nil {
		return "", err
	}
	return state.Title, nil
}

func (s *Session) GetURL(ctx context.Context) (string, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return "", err
	}
	state, err := s.driver.CurrentState(ctx, idx)
	if err != nil {
		return "", err
	}
	return state.URL, nil
}

// Snapshot captures the active page's condensed accessibility tree,
// recording it in history for DiffSnapshot.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := s.driver.Snapshot(ctx, idx)
	if err != nil {
		return Snapshot{}, err
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now()
	}
	s.mu.Lock()
	s.snapshotHistory = append(s.snapshotHistory, snap)
	s.lastSnapshot = &snap
	s.mu.Unlock()
	s.logAction("snapshot", nil)
	return snap, nil
}

// DiffSnapshot compares the two most recently captured snapshots. It
// returns InvalidCommandError if fewer than two snapshots have been taken.
func (s *Session) DiffSnapshot() (SnapshotDiff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.snapshotHistory)
	if n < 2 {
		return SnapshotDiff{}, &xerrors.InvalidCommandError{Message: "diff_snapshot requires at least two prior snapshots"}
	}
	return DiffSnapshot(s.snapshotHistory[n-2], s.snapshotHistory[n-1]), nil
}

// WaitFor polls selector's presence every 100ms until it resolves, timeout
// elapses, or ctx is canceled.
func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(timeout)
	const pollInterval = 100 * time.Millisecond
	for {
		found, err := s.driver.Query(ctx, idx, selector)
		if err != nil {
			return err
		}
		if found {
			s.logAction("wait_for", map[string]string{"selector": selector})
			return nil
		}
		if time.Now().After(deadline) {
			return &xerrors.BrowserTimeoutError{Op: "wait_for " + selector}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// FindElement resolves selector, applying self-healing, and returns the
// selector that actually matched.
func (s *Session) FindElement(ctx context.Context, selector string) (string, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return "", err
	}
	resolved, err := s.resolveSelector(ctx, idx, selector)
	if err != nil {
		return "", err
	}
	s.logAction("find_element", map[string]string{"selector": selector})
	return resolved, nil
}

// GetHistory returns the session's action log, oldest first.
func (s *Session) GetHistory() []ActionRecord {
	return s.actionLog.Snapshot()
}

// Network returns the observed network request lifecycle log.
func (s *Session) Network() []InterceptedRequest {
	return s.networkRequests.Snapshot()
}

// HAREntry is one minimal HTTP Archive-style entry derived from an
// InterceptedRequest.
type HAREntry struct {
	StartedDateTime time.Time `json:"startedDateTime"`
	Request         struct {
		Method string `json:"method"`
		URL    string `json:"url"`
	} `json:"request"`
	Response struct {
		Status int `json:"status"`
	} `json:"response"`
}

// GetHar renders the session's network log as a minimal HAR-like entry
// list, sufficient for export/debugging without a full HAR schema.
func (s *Session) GetHar() []HAREntry {
	reqs := s.networkRequests.Snapshot()
	entries := make([]HAREntry, 0, len(reqs))
	for _, r := range reqs {
		var e HAREntry
		e.StartedDateTime = r.Timestamp
		e.Request.Method = r.Method
		e.Request.URL = r.URL
		e.Response.Status = r.Status
		entries = append(entries, e)
	}
	return entries
}

// GetWebSocketFrames returns the observed websocket frame log.
func (s *Session) GetWebSocketFrames() []WebSocketFrame {
	return s.websocketFrames.Snapshot()
}

func (s *Session) Cookies(ctx context.Context) ([]Cookie, error) {
	return s.driver.Cookies(ctx)
}

func (s *Session) AddCookie(ctx context.Context, c Cookie) error {
	err := s.driver.AddCookie(ctx, c)
	s.logAction("add_cookie", map[string]string{"name": c.Name, "domain": c.Domain})
	return err
}

func (s *Session) DeleteCookie(ctx context.Context, name string) error {
	err := s.driver.DeleteCookie(ctx, name)
	s.logAction("delete_cookie", map[string]string{"name": name})
	return err
}

func (s *Session) SetGeolocation(ctx context.Context, lat, lon, accuracy float64) error {
	err := s.driver.SetGeolocation(ctx, lat, lon, accuracy)
	s.logAction("set_geolocation", map[string]float64{"lat": lat, "lon": lon, "accuracy": accuracy})
	return err
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return nil, err
	}
	data, err := s.driver.Screenshot(ctx, idx)
	s.logAction("screenshot", nil)
	return data, err
}

func (s *Session) ExecuteJS(ctx context.Context, script string) (any, error) {
	idx, err := s.resolvePageIndex(-1)
	if err != nil {
		return nil, err
	}
	result, err := s.driver.ExecuteJS(ctx, idx, script)
	s.logAction("execute_js", map[string]string{"script": script})
	return result, err
}
