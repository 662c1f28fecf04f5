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
	"time"

	"github.com/wrikka/wpackages-sub001/internal/browser"
	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

// Dispatcher routes wire-protocol Requests to browser.Session methods.
type Dispatcher struct {
	registry *browser.Registry
	audit    *AuditSink // nil disables durable audit logging
	limiter  *SessionRateLimiter
}

// NewDispatcher builds a Dispatcher. audit and limiter may be nil to
// disable durable auditing or rate limiting respectively.
func NewDispatcher(registry *browser.Registry, audit *AuditSink, limiter *SessionRateLimiter) *Dispatcher {
	return &Dispatcher{registry: registry, audit: audit, limiter: limiter}
}

// Dispatch executes one Request and returns its Response. It never panics
// on malformed input: decode failures and unknown actions become
// InvalidCommand responses, per spec's "unknown actions return
// success=false" contract.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	if req.Context.Session == "" {
		return fail(req.Action, &xerrors.InvalidCommandError{Message: "context.session is required"})
	}
	if d.limiter != nil && !d.limiter.Allow(req.Context.Session) {
		return fail(req.Action, &xerrors.InvalidCommandError{Message: "rate limit exceeded for session " + req.Context.Session})
	}

	sess, err := d.registry.GetOrCreate(ctx, req.Context.Session, req.Context.Headless, req.Context.DataDir, req.Context.Stealth)
	if err != nil {
		return fail(req.Action, err)
	}

	sess.Lock()
	resp := d.execute(ctx, sess, req)
	sess.Unlock()

	if d.audit != nil {
		d.audit.Record(AuditEntry{
			Timestamp: time.Now(),
			Session:   req.Context.Session,
			Action:    req.Action,
			Success:   resp.Success,
			Error:     resp.Error,
		})
	}
	return resp
}

func (d *Dispatcher) execute(ctx context.Context, sess *browser.Session, req Request) Response {
	var p json.RawMessage = req.Params
	decode := func(v any) error {
		if len(p) == 0 {
			return nil
		}
		return json.Unmarshal(p, v)
	}

	switch req.Action {
	case "Open":
		var params struct {
			URL string `json:"url"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		state, err := sess.Open(ctx, params.URL)
		return respond(req.Action, state, err)

	case "Tabs":
		return respond(req.Action, sess.ListTabs(), nil)

	case "NewTab":
		idx, err := sess.NewTab(ctx)
		return respond(req.Action, map[string]int{"index": idx}, err)

	case "SwitchTab":
		var params struct {
			Index int `json:"index"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		return respond(req.Action, nil, sess.SwitchTab(params.Index))

	case "CloseTab":
		var params struct {
			Index int `json:"index"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		return respond(req.Action, nil, sess.CloseTab(ctx, params.Index))

	case "Back":
		state, err := sess.Back(ctx)
		return respond(req.Action, state, err)
	case "Forward":
		state, err := sess.Forward(ctx)
		return respond(req.Action, state, err)
	case "Reload":
		state, err := sess.Reload(ctx)
		return respond(req.Action, state, err)

	case "Click", "Hover", "Scroll", "Check", "Uncheck":
		var params struct {
			Selector string `json:"selector"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		var err error
		switch req.Action {
		case "Click":
			err = sess.Click(ctx, params.Selector)
		case "Hover":
			err = sess.Hover(ctx, params.Selector)
		case "Scroll":
			err = sess.Scroll(ctx, params.Selector)
		case "Check":
			err = sess.Check(ctx, params.Selector)
		case "Uncheck":
			err = sess.Uncheck(ctx, params.Selector)
		}
		return respond(req.Action, nil, err)

	case "Upload":
		var params struct {
			Selector string `json:"selector"`
			Path     string `json:"path"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		return respond(req.Action, nil, sess.Upload(ctx, params.Selector, params.Path))

	case "Type", "TypeSecret", "Fill":
		var params struct {
			Selector string `json:"selector"`
			Text     string `json:"text"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		var err error
		switch req.Action {
		case "Type":
			err = sess.Type(ctx, params.Selector, params.Text)
		case "TypeSecret":
			err = sess.TypeSecret(ctx, params.Selector, params.Text)
		case "Fill":
			err = sess.Fill(ctx, params.Selector, params.Text)
		}
		return respond(req.Action, nil, err)

	case "AutomatedFill":
		var params struct {
			Fields map[string]string `json:"fields"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		return respond(req.Action, nil, sess.AutomatedFill(ctx, params.Fields))

	case "GetText", "GetHtml", "GetValue":
		var params struct {
			Selector string `json:"selector"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		var value string
		var err error
		switch req.Action {
		case "GetText":
			value, err = sess.GetText(ctx, params.Selector)
		case "GetHtml":
			value, err = sess.GetHTML(ctx, params.Selector)
		case "GetValue":
			value, err = sess.GetValue(ctx, params.Selector)
		}
		return respond(req.Action, value, err)

	case "GetAttr":
		var params struct {
			Selector string `json:"selector"`
			Attr     string `json:"attr"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		value, err := sess.GetAttr(ctx, params.Selector, params.Attr)
		return respond(req.Action, value, err)

	case "IsVisible", "IsEnabled", "IsChecked":
		var params struct {
			Selector string `json:"selector"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		var value bool
		var err error
		switch req.Action {
		case "IsVisible":
			value, err = sess.IsVisible(ctx, params.Selector)
		case "IsEnabled":
			value, err = sess.IsEnabled(ctx, params.Selector)
		case "IsChecked":
			value, err = sess.IsChecked(ctx, params.Selector)
		}
		return respond(req.Action, value, err)

	case "GetCount":
		var params struct {
			Selector string `json:"selector"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		count, err := sess.GetCount(ctx, params.Selector)
		return respond(req.Action, count, err)

	case "ExtractTable":
		var params struct {
			Selector string `json:"selector"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		rows, err := sess.ExtractTable(ctx, params.Selector)
		return respond(req.Action, rows, err)

	case "GetTitle":
		title, err := sess.GetTitle(ctx)
		return respond(req.Action, title, err)
	case "GetUrl":
		url, err := sess.GetURL(ctx)
		return respond(req.Action, url, err)

	case "Snapshot":
		snap, err := sess.Snapshot(ctx)
		return respond(req.Action, snap, err)
	case "DiffSnapshot":
		diff, err := sess.DiffSnapshot()
		return respond(req.Action, diff, err)

	case "WaitFor":
		var params struct {
			Selector  string `json:"selector"`
			TimeoutMS int64  `json:"timeout_ms"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		timeout := time.Duration(params.TimeoutMS) * time.Millisecond
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		return respond(req.Action, nil, sess.WaitFor(ctx, params.Selector, timeout))

	case "FindElement":
		var params struct {
			Selector string `json:"selector"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		resolved, err := sess.FindElement(ctx, params.Selector)
		return respond(req.Action, resolved, err)

	case "GetHistory":
		return respond(req.Action, sess.GetHistory(), nil)

	case "Network":
		return respond(req.Action, sess.Network(), nil)
	case "GetHar":
		return respond(req.Action, sess.GetHar(), nil)
	case "GetWebSocketFrames":
		return respond(req.Action, sess.GetWebSocketFrames(), nil)

	case "CookiesGet":
		cookies, err := sess.Cookies(ctx)
		return respond(req.Action, cookies, err)
	case "CookiesAdd":
		var c browser.Cookie
		if err := decode(&c); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		return respond(req.Action, nil, sess.AddCookie(ctx, c))
	case "CookiesDelete":
		var params struct {
			Name string `json:"name"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		return respond(req.Action, nil, sess.DeleteCookie(ctx, params.Name))

	case "SetGeolocation":
		var params struct {
			Lat      float64 `json:"lat"`
			Lon      float64 `json:"lon"`
			Accuracy float64 `json:"accuracy"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		return respond(req.Action, nil, sess.SetGeolocation(ctx, params.Lat, params.Lon, params.Accuracy))

	case "Screenshot":
		data, err := sess.Screenshot(ctx)
		return respond(req.Action, data, err)

	case "ExecuteJs":
		var params struct {
			Script string `json:"script"`
		}
		if err := decode(&params); err != nil {
			return fail(req.Action, &xerrors.InvalidCommandError{Message: err.Error()})
		}
		result, err := sess.ExecuteJS(ctx, params.Script)
		return respond(req.Action, result, err)

	default:
		return fail(req.Action, &xerrors.InvalidCommandError{Message: "unknown action: " + req.Action})
	}
}

func respond(action string, data any, err error) Response {
	if err != nil {
		return fail(action, err)
	}
	return ok(action, data)
}
