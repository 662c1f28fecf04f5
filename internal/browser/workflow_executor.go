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

	"github.com/wrikka/wpackages-sub001/pkg/workflow"
	"github.com/wrikka/wpackages-sub001/pkg/workflow/expression"
	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

// SessionExecutor is the host binding that lets a workflow.Engine drive a
// browser Session, per spec.md §6.4: execute_action forwards to the action
// catalog below, evaluate_condition runs WE's own condition tree in-process
// (no wire roundtrip through the daemon), and extract_value resolves to
// GetAttr (when an attribute is requested) or GetText. Grounded on
// internal/daemon/dispatch.go's action-name switch, reused here against the
// Session directly instead of a decoded wire Request.
type SessionExecutor struct {
	Session *Session
	eval    *expression.Evaluator
}

// NewSessionExecutor wraps sess as a workflow.Executor.
func NewSessionExecutor(sess *Session) *SessionExecutor {
	return &SessionExecutor{Session: sess, eval: expression.New()}
}

var _ workflow.Executor = (*SessionExecutor)(nil)

// ExecuteAction dispatches one workflow Action step to the underlying
// Session, mirroring the action catalog internal/daemon/dispatch.go exposes
// over the wire protocol.
func (x *SessionExecutor) ExecuteAction(ctx context.Context, name string, params json.RawMessage, ec *workflow.ExecutionContext) (json.RawMessage, error) {
	x.Session.Lock()
	defer x.Session.Unlock()

	decode := func(v any) error {
		if len(params) == 0 {
			return nil
		}
		return json.Unmarshal(params, v)
	}

	switch name {
	case "Open":
		var p struct {
			URL string `json:"url"`
		}
		if err := decode(&p); err != nil {
			return nil, &xerrors.InvalidCommandError{Message: err.Error()}
		}
		state, err := x.Session.Open(ctx, p.URL)
		return encodeResult(state, err)

	case "Click", "Hover", "Scroll", "Check", "Uncheck":
		var p struct {
			Selector string `json:"selector"`
		}
		if err := decode(&p); err != nil {
			return nil, &xerrors.InvalidCommandError{Message: err.Error()}
		}
		var err error
		switch name {
		case "Click":
			err = x.Session.Click(ctx, p.Selector)
		case "Hover":
			err = x.Session.Hover(ctx, p.Selector)
		case "Scroll":
			err = x.Session.Scroll(ctx, p.Selector)
		case "Check":
			err = x.Session.Check(ctx, p.Selector)
		case "Uncheck":
			err = x.Session.Uncheck(ctx, p.Selector)
		}
		return nil, err

	case "Upload":
		var p struct {
			Selector string `json:"selector"`
			Path     string `json:"path"`
		}
		if err := decode(&p); err != nil {
			return nil, &xerrors.InvalidCommandError{Message: err.Error()}
		}
		return nil, x.Session.Upload(ctx, p.Selector, p.Path)

	case "Type", "TypeSecret", "Fill":
		var p struct {
			Selector string `json:"selector"`
			Text     string `json:"text"`
		}
		if err := decode(&p); err != nil {
			return nil, &xerrors.InvalidCommandError{Message: err.Error()}
		}
		var err error
		switch name {
		case "Type":
			err = x.Session.Type(ctx, p.Selector, p.Text)
		case "TypeSecret":
			err = x.Session.TypeSecret(ctx, p.Selector, p.Text)
		case "Fill":
			err = x.Session.Fill(ctx, p.Selector, p.Text)
		}
		return nil, err

	case "AutomatedFill":
		var p struct {
			Fields map[string]string `json:"fields"`
		}
		if err := decode(&p); err != nil {
			return nil, &xerrors.InvalidCommandError{Message: err.Error()}
		}
		return nil, x.Session.AutomatedFill(ctx, p.Fields)

	case "GetText", "GetHtml", "GetValue", "GetAttr":
		var p struct {
			Selector string `json:"selector"`
			Attr     string `json:"attr"`
		}
		if err := decode(&p); err != nil {
			return nil, &xerrors.InvalidCommandError{Message: err.Error()}
		}
		var value string
		var err error
		switch name {
		case "GetText":
			value, err = x.Session.GetText(ctx, p.Selector)
		case "GetHtml":
			value, err = x.Session.GetHTML(ctx, p.Selector)
		case "GetValue":
			value, err = x.Session.GetValue(ctx, p.Selector)
		case "GetAttr":
			value, err = x.Session.GetAttr(ctx, p.Selector, p.Attr)
		}
		return encodeResult(value, err)

	case "IsVisible", "IsEnabled", "IsChecked":
		var p struct {
			Selector string `json:"selector"`
		}
		if err := decode(&p); err != nil {
			return nil, &xerrors.InvalidCommandError{Message: err.Error()}
		}
		var value bool
		var err error
		switch name {
		case "IsVisible":
			value, err = x.Session.IsVisible(ctx, p.Selector)
		case "IsEnabled":
			value, err = x.Session.IsEnabled(ctx, p.Selector)
		case "IsChecked":
			value, err = x.Session.IsChecked(ctx, p.Selector)
		}
		return encodeResult(value, err)

	case "GetCount":
		var p struct {
			Selector string `json:"selector"`
		}
		if err := decode(&p); err != nil {
			return nil, &xerrors.InvalidCommandError{Message: err.Error()}
		}
		count, err := x.Session.GetCount(ctx, p.Selector)
		return encodeResult(count, err)

	case "ExtractTable":
		var p struct {
			Selector string `json:"selector"`
		}
		if err := decode(&p); err != nil {
			return nil, &xerrors.InvalidCommandError{Message: err.Error()}
		}
		rows, err := x.Session.ExtractTable(ctx, p.Selector)
		return encodeResult(rows, err)

	case "GetTitle":
		title, err := x.Session.GetTitle(ctx)
		return encodeResult(title, err)

	case "GetUrl":
		url, err := x.Session.GetURL(ctx)
		return encodeResult(url, err)

	case "Screenshot":
		data, err := x.Session.Screenshot(ctx)
		return encodeResult(data, err)

	case "ExecuteJs":
		var p struct {
			Script string `json:"script"`
		}
		if err := decode(&p); err != nil {
			return nil, &xerrors.InvalidCommandError{Message: err.Error()}
		}
		value, err := x.Session.ExecuteJS(ctx, p.Script)
		return encodeResult(value, err)

	default:
		return nil, &xerrors.InvalidCommandError{Message: "unknown action: " + name}
	}
}

// EvaluateCondition runs WE's own condition tree against ec.Variables,
// in-process: per spec.md §6.4 the host binding never round-trips a
// condition check through BA, since conditions are evaluated purely over
// variables a prior Extract step (or the workflow's initial variables)
// already populated.
func (x *SessionExecutor) EvaluateCondition(_ context.Context, cond *workflow.Condition, ec *workflow.ExecutionContext) (bool, error) {
	return workflow.EvaluateCondition(cond, ec.Variables, x.eval)
}

// ExtractValue resolves selector to a string: GetAttr(selector, attribute)
// when attribute is non-empty, GetText(selector) otherwise.
func (x *SessionExecutor) ExtractValue(ctx context.Context, selector string, attribute string, _ *workflow.ExecutionContext) (string, error) {
	x.Session.Lock()
	defer x.Session.Unlock()

	if attribute != "" {
		return x.Session.GetAttr(ctx, selector, attribute)
	}
	return x.Session.GetText(ctx, selector)
}

func encodeResult(v any, err error) (json.RawMessage, error) {
	if err != nil {
		return nil, err
	}
	data, encErr := json.Marshal(v)
	if encErr != nil {
		return nil, encErr
	}
	return data, nil
}
