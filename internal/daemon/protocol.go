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

// Package daemon implements the browser automation daemon's wire protocol:
// a newline-delimited JSON request/response listener (one Request or
// Response per line; chosen over length-prefixing for the transport because
// every Request/Response already round-trips through encoding/json and a
// human can read a raw socket with netcat), per-session rate limiting, and
// an optional durable audit sink.
package daemon

import "encoding/json"

// RequestContext identifies and configures the session a Request targets.
type RequestContext struct {
	Session  string `json:"session"`
	Headless bool   `json:"headless"`
	DataDir  string `json:"datadir,omitempty"`
	Stealth  bool   `json:"stealth,omitempty"`
}

// Request is one wire-protocol command, per spec's BA wire protocol.
type Request struct {
	Action  string          `json:"action"`
	Params  json.RawMessage `json:"params,omitempty"`
	Context RequestContext  `json:"context"`
}

// Response is the reply to one Request. Error, when set, follows the BA
// failure taxonomy (NoPage, ElementNotFound, InvalidCommand,
// DaemonNotRunning, Browser, InvalidIndex, Timeout).
type Response struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(action string, data any) Response {
	return Response{Action: action, Success: true, Data: data}
}

func fail(action string, err error) Response {
	return Response{Action: action, Success: false, Error: err.Error()}
}
