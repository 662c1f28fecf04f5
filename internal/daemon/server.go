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
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
)

// Server accepts connections on a net.Listener and serves the wire protocol
// over each: one JSON Request per line in, one JSON Response per line out.
// Connections are handled concurrently; each connection serializes its own
// requests (the dispatcher additionally serializes per-session below that).
type Server struct {
	dispatcher *Dispatcher
	logger     *slog.Logger

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
}

// NewServer builds a Server around dispatcher.
func NewServer(dispatcher *Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(nil, nil))
	}
	return &Server{
		dispatcher: dispatcher,
		logger:     logger,
		conns:      make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections on ln until ctx is cancelled or Accept fails.
// It blocks; callers typically run it in its own goroutine and cancel ctx
// (or close ln) to stop it.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && !netErr.Timeout() {
				return err
			}
			return err
		}
		s.track(conn)
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		conn.Close()
		return
	}
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// Close closes every connection currently being served.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for conn := range s.conns {
		conn.Close()
	}
	return nil
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.untrack(conn)
	defer conn.Close()

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if err != io.EOF && ctx.Err() == nil {
				s.logger.Debug("connection read error", "remote", conn.RemoteAddr(), "error", err)
			}
			return
		}

		resp := s.dispatcher.Dispatch(ctx, req)

		if err := enc.Encode(resp); err != nil {
			s.logger.Debug("connection write error", "remote", conn.RemoteAddr(), "error", err)
			return
		}
	}
}
