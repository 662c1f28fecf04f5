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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionRateLimiter_AllowsBurstThenBlocks(t *testing.T) {
	l := NewSessionRateLimiter(1, 2)
	assert.True(t, l.Allow("s1"))
	assert.True(t, l.Allow("s1"))
	assert.False(t, l.Allow("s1"))
}

func TestSessionRateLimiter_SessionsAreIndependent(t *testing.T) {
	l := NewSessionRateLimiter(1, 1)
	assert.True(t, l.Allow("s1"))
	assert.True(t, l.Allow("s2"))
	assert.False(t, l.Allow("s1"))
}

func TestSessionRateLimiter_CleanupEvictsStaleSessions(t *testing.T) {
	l := NewSessionRateLimiter(1, 1)
	l.Allow("s1")
	l.Cleanup(-time.Second)

	l.mu.Lock()
	_, stillPresent := l.limiters["s1"]
	l.mu.Unlock()
	assert.False(t, stillPresent)
}

func TestNewSessionRateLimiter_DefaultsOnNonPositiveInputs(t *testing.T) {
	l := NewSessionRateLimiter(0, 0)
	assert.Equal(t, 10.0, l.ratePerSecond)
	assert.Equal(t, 20, l.burst)
}
