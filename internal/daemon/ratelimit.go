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
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SessionRateLimiter applies one token-bucket limiter per session, so a
// runaway automation loop on one session never starves commands against
// other sessions.
type SessionRateLimiter struct {
	mu            sync.Mutex
	limiters      map[string]*limiterEntry
	ratePerSecond float64
	burst         int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewSessionRateLimiter builds a limiter with ratePerSecond sustained rate
// and burst capacity, applied independently per session ID.
func NewSessionRateLimiter(ratePerSecond float64, burst int) *SessionRateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &SessionRateLimiter{
		limiters:      make(map[string]*limiterEntry),
		ratePerSecond: ratePerSecond,
		burst:         burst,
	}
}

// Allow reports whether a command against session may proceed now,
// consuming a token if so.
func (s *SessionRateLimiter) Allow(session string) bool {
	s.mu.Lock()
	entry, ok := s.limiters[session]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(s.ratePerSecond), s.burst)}
		s.limiters[session] = entry
	}
	entry.lastSeen = time.Now()
	s.mu.Unlock()

	return entry.limiter.Allow()
}

// Cleanup evicts limiters for sessions that haven't issued a command in
// maxAge, bounding memory for long-running daemons with high session churn.
func (s *SessionRateLimiter) Cleanup(maxAge time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for session, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > maxAge {
			delete(s.limiters, session)
		}
	}
}
