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

// Package cliclient is flowctl's thin wire-protocol client: it dials
// flowctld, sends one newline-delimited JSON Request, and decodes the
// matching Response. Mirrors the request/response round-trip shape of the
// teacher's shared.MakeAPIRequest helper, adapted from HTTP to the raw
// socket transport the browser-automation daemon actually speaks.
package cliclient

import (
	"encoding/json"
	"net"
	"time"

	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

// Client is a single-shot connection to flowctld. It is not safe for
// concurrent use across goroutines; flowctl issues one command per process
// invocation.
type Client struct {
	conn net.Conn
	dec  *json.Decoder
	enc  *json.Encoder
}

// Dial connects to addr, which is either a host:port (TCP) or a filesystem
// path to a Unix socket (detected by the absence of a port separator that
// parses as one via net.SplitHostPort).
func Dial(addr string, timeout time.Duration) (*Client, error) {
	network := "tcp"
	if _, _, err := net.SplitHostPort(addr); err != nil {
		network = "unix"
	}

	conn, err := net.DialTimeout(network, addr, timeout)
	if err != nil {
		return nil, &xerrors.DaemonNotRunningError{Addr: addr}
	}
	return &Client{
		conn: conn,
		dec:  json.NewDecoder(conn),
		enc:  json.NewEncoder(conn),
	}, nil
}

// Request is the wire shape flowctl sends; duplicated from
// internal/daemon.Request rather than imported, so flowctl never needs to
// link the browser driver stack just to talk to it over the wire.
type Request struct {
	Action  string          `json:"action"`
	Params  json.RawMessage `json:"params,omitempty"`
	Context RequestContext  `json:"context"`
}

// RequestContext identifies and configures the session a Request targets.
type RequestContext struct {
	Session  string `json:"session"`
	Headless bool   `json:"headless"`
	DataDir  string `json:"datadir,omitempty"`
	Stealth  bool   `json:"stealth,omitempty"`
}

// Response is the reply to one Request.
type Response struct {
	Action  string          `json:"action"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Call sends req and returns the daemon's Response.
func (c *Client) Call(req Request) (Response, error) {
	if err := c.enc.Encode(req); err != nil {
		return Response{}, xerrors.Wrapf(err, "send request %s", req.Action)
	}
	var resp Response
	if err := c.dec.Decode(&resp); err != nil {
		return Response{}, xerrors.Wrapf(err, "read response for %s", req.Action)
	}
	return resp, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
